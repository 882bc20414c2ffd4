package routes

import (
	"teamforge/internal/delivery/http/handler"

	"github.com/gofiber/fiber/v3"
)

type Registry struct {
	health      *handler.HealthHandler
	skills      *handler.SkillHandler
	evidence    *handler.EvidenceHandler
	leaderboard *handler.LeaderboardHandler
	recommend   *handler.RecommendHandler
}

func NewRegistry(
	skills *handler.SkillHandler,
	evidence *handler.EvidenceHandler,
	leaderboard *handler.LeaderboardHandler,
	recommend *handler.RecommendHandler,
) *Registry {
	return &Registry{
		health:      handler.NewHealthHandler(),
		skills:      skills,
		evidence:    evidence,
		leaderboard: leaderboard,
		recommend:   recommend,
	}
}

func (r *Registry) Register(app *fiber.App) {
	if app == nil {
		return
	}

	r.health.RegisterRoutes(app)
	r.registerAPI(app)
}

func (r *Registry) registerAPI(app *fiber.App) {
	api := app.Group("/api")
	v1 := api.Group("/v1")

	r.skills.RegisterRoutes(v1)
	r.evidence.RegisterRoutes(v1)
	r.leaderboard.RegisterRoutes(v1)
	r.recommend.RegisterRoutes(v1)
}
