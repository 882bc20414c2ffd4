package handler

import (
	"errors"

	"teamforge/internal/domain/matching"
	"teamforge/internal/domain/skill"
	"teamforge/internal/pkg/response"
	"teamforge/internal/repository"
	"teamforge/internal/usecase"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

type RecommendHandler struct {
	uc   usecase.RecommendUsecase
	opps repository.OpportunityRepository
}

func NewRecommendHandler(uc usecase.RecommendUsecase, opps repository.OpportunityRepository) *RecommendHandler {
	return &RecommendHandler{uc: uc, opps: opps}
}

type requiredSkillRequest struct {
	SkillID      uuid.UUID `json:"skill_id"`
	MinimumLevel int       `json:"minimum_level"`
	Mandatory    bool      `json:"mandatory"`
}

type createOpportunityRequest struct {
	Title          string                 `json:"title"`
	RequiredSkills []requiredSkillRequest `json:"required_skills"`
	TeamSize       int                    `json:"team_size"`
	Latitude       *float64               `json:"latitude"`
	Longitude      *float64               `json:"longitude"`
	RegionCode     string                 `json:"region_code"`
	TeamMix        map[string]int         `json:"team_mix"`
}

type recommendRequest struct {
	CandidateIDs []uuid.UUID `json:"candidate_ids"`
	TopK         int         `json:"top_k"`
}

type matchFactorsResponse struct {
	SkillOverlap     float64     `json:"skill_overlap"`
	Location         float64     `json:"location"`
	Complementarity  float64     `json:"complementarity"`
	MandatoryMissing bool        `json:"mandatory_missing"`
	MissingSkills    []uuid.UUID `json:"missing_skills,omitempty"`
}

type matchScoreResponse struct {
	CandidateID uuid.UUID            `json:"candidate_id"`
	Score       float64              `json:"score"`
	Factors     matchFactorsResponse `json:"factors"`
}

func (h *RecommendHandler) RegisterRoutes(r fiber.Router) {
	if r == nil {
		return
	}

	grp := r.Group("/opportunities")
	grp.Post("/", h.CreateOpportunity)
	grp.Post("/:id/recommendations", h.Recommend)
}

func (h *RecommendHandler) CreateOpportunity(c fiber.Ctx) error {
	var req createOpportunityRequest
	if err := c.Bind().Body(&req); err != nil {
		return response.Error(c, fiber.StatusBadRequest, response.MessageBadRequest, nil)
	}
	if req.Title == "" {
		return response.Error(c, fiber.StatusBadRequest, response.MessageBadRequest, nil)
	}

	opp := skill.Opportunity{
		Title:    req.Title,
		TeamSize: req.TeamSize,
		Location: skill.Location{RegionCode: req.RegionCode},
	}
	if req.Latitude != nil && req.Longitude != nil {
		opp.Location.Latitude = *req.Latitude
		opp.Location.Longitude = *req.Longitude
		opp.Location.HasCoords = true
	}
	for _, rs := range req.RequiredSkills {
		opp.RequiredSkills = append(opp.RequiredSkills, skill.RequiredSkill{
			SkillID:      rs.SkillID,
			MinimumLevel: rs.MinimumLevel,
			Mandatory:    rs.Mandatory,
		})
	}
	if len(req.TeamMix) > 0 {
		opp.TeamMix = make(map[skill.Category]int, len(req.TeamMix))
		for raw, count := range req.TeamMix {
			cat, ok := skill.ParseCategory(raw)
			if !ok {
				return response.Error(c, fiber.StatusBadRequest, "Unknown category", nil)
			}
			opp.TeamMix[cat] = count
		}
	}

	created, err := h.opps.Create(c.Context(), opp)
	if err != nil {
		return response.Error(c, fiber.StatusInternalServerError, response.MessageInternalServerError, nil)
	}

	return response.Success(c, fiber.StatusOK, "Opportunity created", fiber.Map{"id": created.ID})
}

func (h *RecommendHandler) Recommend(c fiber.Ctx) error {
	oppID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, fiber.StatusBadRequest, response.MessageBadRequest, nil)
	}

	var req recommendRequest
	if err := c.Bind().Body(&req); err != nil {
		return response.Error(c, fiber.StatusBadRequest, response.MessageBadRequest, nil)
	}

	scores, err := h.uc.RecommendForOpportunity(c.Context(), oppID, req.CandidateIDs, req.TopK)
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrOpportunityNotFound):
			return response.Error(c, fiber.StatusNotFound, response.MessageNotFound, nil)
		case errors.Is(err, usecase.ErrInvalidInput):
			return response.Error(c, fiber.StatusBadRequest, response.MessageBadRequest, nil)
		default:
			return response.Error(c, fiber.StatusInternalServerError, response.MessageInternalServerError, nil)
		}
	}

	return response.Success(c, fiber.StatusOK, response.MessageOK, toMatchScoreResponses(scores))
}

func toMatchScoreResponses(scores []matching.MatchScore) []matchScoreResponse {
	out := make([]matchScoreResponse, 0, len(scores))
	for _, s := range scores {
		missing := make([]uuid.UUID, 0, len(s.Factors.MissingSkills))
		for _, m := range s.Factors.MissingSkills {
			missing = append(missing, m.SkillID)
		}
		out = append(out, matchScoreResponse{
			CandidateID: s.CandidateID,
			Score:       s.Score,
			Factors: matchFactorsResponse{
				SkillOverlap:     s.Factors.SkillOverlap,
				Location:         s.Factors.Location,
				Complementarity:  s.Factors.Complementarity,
				MandatoryMissing: s.Factors.MandatoryMissing,
				MissingSkills:    missing,
			},
		})
	}
	return out
}
