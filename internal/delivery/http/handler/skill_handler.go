package handler

import (
	"errors"

	"teamforge/internal/pkg/response"
	"teamforge/internal/usecase"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

type SkillHandler struct {
	uc usecase.TaxonomyUsecase
}

type skillResponse struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Category string    `json:"category"`
}

type createSkillRequest struct {
	Name     string `json:"name"`
	Category string `json:"category"`
}

func NewSkillHandler(uc usecase.TaxonomyUsecase) *SkillHandler {
	return &SkillHandler{uc: uc}
}

func (h *SkillHandler) RegisterRoutes(r fiber.Router) {
	if r == nil {
		return
	}

	grp := r.Group("/skills")
	grp.Get("/", h.List)
	grp.Post("/", h.Create)
	grp.Post("/reload", h.Reload)
}

func (h *SkillHandler) List(c fiber.Ctx) error {
	items, err := h.uc.ListSkills(c.Context())
	if err != nil {
		return response.Error(c, fiber.StatusInternalServerError, response.MessageInternalServerError, nil)
	}

	res := make([]skillResponse, 0, len(items))
	for _, it := range items {
		res = append(res, skillResponse{ID: it.ID, Name: it.Name, Category: string(it.Category)})
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, res)
}

func (h *SkillHandler) Create(c fiber.Ctx) error {
	var req createSkillRequest
	if err := c.Bind().Body(&req); err != nil {
		return response.Error(c, fiber.StatusBadRequest, response.MessageBadRequest, nil)
	}

	created, err := h.uc.AddSkill(c.Context(), req.Name, req.Category)
	if err != nil {
		if errors.Is(err, usecase.ErrInvalidInput) {
			return response.Error(c, fiber.StatusBadRequest, response.MessageBadRequest, nil)
		}
		return response.Error(c, fiber.StatusInternalServerError, response.MessageInternalServerError, nil)
	}

	return response.Success(c, fiber.StatusOK, "Skill created successfully", skillResponse{ID: created.ID, Name: created.Name, Category: string(created.Category)})
}

func (h *SkillHandler) Reload(c fiber.Ctx) error {
	if err := h.uc.Reload(c.Context()); err != nil {
		return response.Error(c, fiber.StatusInternalServerError, response.MessageInternalServerError, nil)
	}
	return response.Success(c, fiber.StatusOK, "Taxonomy reloaded", nil)
}
