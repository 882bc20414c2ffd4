package handler

import (
	"errors"
	"strconv"

	"teamforge/internal/pkg/response"
	"teamforge/internal/usecase"

	"github.com/gofiber/fiber/v3"
)

type LeaderboardHandler struct {
	uc usecase.LeaderboardUsecase
}

func NewLeaderboardHandler(uc usecase.LeaderboardUsecase) *LeaderboardHandler {
	return &LeaderboardHandler{uc: uc}
}

const defaultLeaderboardLimit = 50

func (h *LeaderboardHandler) RegisterRoutes(r fiber.Router) {
	if r == nil {
		return
	}
	r.Get("/leaderboard", h.Rank)
}

func (h *LeaderboardHandler) Rank(c fiber.Ctx) error {
	category := c.Query("category")

	limit := defaultLeaderboardLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return response.Error(c, fiber.StatusBadRequest, response.MessageBadRequest, nil)
		}
		limit = n
	}

	ranked, err := h.uc.Rank(c.Context(), category, limit)
	if err != nil {
		if errors.Is(err, usecase.ErrInvalidInput) {
			return response.Error(c, fiber.StatusBadRequest, "Unknown category", nil)
		}
		return response.Error(c, fiber.StatusInternalServerError, response.MessageInternalServerError, nil)
	}

	return response.Success(c, fiber.StatusOK, response.MessageOK, ranked)
}
