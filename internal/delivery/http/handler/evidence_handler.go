package handler

import (
	"errors"

	"teamforge/internal/domain/evidence"
	"teamforge/internal/domain/skill"
	"teamforge/internal/pkg/response"
	"teamforge/internal/usecase"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

type EvidenceHandler struct {
	uc usecase.VerificationUsecase
}

func NewEvidenceHandler(uc usecase.VerificationUsecase) *EvidenceHandler {
	return &EvidenceHandler{uc: uc}
}

type submitEvidenceRequest struct {
	UserID        uuid.UUID `json:"user_id"`
	SkillID       uuid.UUID `json:"skill_id"`
	Source        string    `json:"source"`
	QuizScore     float64   `json:"quiz_score"`
	ProjectID     uuid.UUID `json:"project_id"`
	CertificateID uuid.UUID `json:"certificate_id"`
}

type approveCertificateRequest struct {
	UserID        uuid.UUID `json:"user_id"`
	SkillID       uuid.UUID `json:"skill_id"`
	CertificateID uuid.UUID `json:"certificate_id"`
}

type userSkillRecordResponse struct {
	UserID    uuid.UUID `json:"user_id"`
	SkillID   uuid.UUID `json:"skill_id"`
	Credit    float64   `json:"credit"`
	State     string    `json:"state"`
	Level     int       `json:"level"`
	UpdatedAt string    `json:"updated_at"`
}

func recordResponse(rec skill.UserSkillRecord) userSkillRecordResponse {
	return userSkillRecordResponse{
		UserID:    rec.UserID,
		SkillID:   rec.SkillID,
		Credit:    rec.Credit,
		State:     string(rec.State),
		Level:     rec.Level,
		UpdatedAt: rec.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}

func (h *EvidenceHandler) RegisterRoutes(r fiber.Router) {
	if r == nil {
		return
	}

	grp := r.Group("/evidence")
	grp.Post("/", h.Submit)
	grp.Post("/certificates/approve", h.ApproveCertificate)

	r.Get("/users/:userId/skills/:skillId", h.GetRecord)
}

func (h *EvidenceHandler) Submit(c fiber.Ctx) error {
	var req submitEvidenceRequest
	if err := c.Bind().Body(&req); err != nil {
		return response.Error(c, fiber.StatusBadRequest, response.MessageBadRequest, nil)
	}

	rec, err := h.uc.SubmitEvidence(c.Context(), usecase.SubmitEvidenceInput{
		UserID:        req.UserID,
		SkillID:       req.SkillID,
		Source:        skill.EvidenceSource(req.Source),
		QuizScore:     req.QuizScore,
		ProjectID:     req.ProjectID,
		CertificateID: req.CertificateID,
	})
	if err != nil {
		return evidenceErrorResponse(c, err)
	}

	return response.Success(c, fiber.StatusOK, "Evidence recorded", recordResponse(rec))
}

func (h *EvidenceHandler) ApproveCertificate(c fiber.Ctx) error {
	var req approveCertificateRequest
	if err := c.Bind().Body(&req); err != nil {
		return response.Error(c, fiber.StatusBadRequest, response.MessageBadRequest, nil)
	}

	rec, err := h.uc.ApproveCertificate(c.Context(), req.UserID, req.SkillID, req.CertificateID)
	if err != nil {
		return evidenceErrorResponse(c, err)
	}

	return response.Success(c, fiber.StatusOK, "Certificate approved", recordResponse(rec))
}

func (h *EvidenceHandler) GetRecord(c fiber.Ctx) error {
	userID, err := uuid.Parse(c.Params("userId"))
	if err != nil {
		return response.Error(c, fiber.StatusBadRequest, response.MessageBadRequest, nil)
	}
	skillID, err := uuid.Parse(c.Params("skillId"))
	if err != nil {
		return response.Error(c, fiber.StatusBadRequest, response.MessageBadRequest, nil)
	}

	rec, err := h.uc.GetUserSkillRecord(c.Context(), userID, skillID)
	if err != nil {
		if errors.Is(err, usecase.ErrNotFound) {
			return response.Error(c, fiber.StatusNotFound, response.MessageNotFound, nil)
		}
		return evidenceErrorResponse(c, err)
	}

	return response.Success(c, fiber.StatusOK, response.MessageOK, recordResponse(rec))
}

func evidenceErrorResponse(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, evidence.ErrUnknownSkill):
		return response.Error(c, fiber.StatusNotFound, "Unknown skill", nil)
	case errors.Is(err, evidence.ErrInvalidEvidence):
		return response.Error(c, fiber.StatusUnprocessableEntity, "Invalid evidence", nil)
	case errors.Is(err, usecase.ErrInvalidInput):
		return response.Error(c, fiber.StatusBadRequest, response.MessageBadRequest, nil)
	default:
		return response.Error(c, fiber.StatusInternalServerError, response.MessageInternalServerError, nil)
	}
}
