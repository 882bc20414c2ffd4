package app

import (
	"fmt"
	"strings"

	"teamforge/internal/config"
	"teamforge/internal/delivery/http/handler"
	"teamforge/internal/delivery/http/middleware"
	"teamforge/internal/delivery/http/routes"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"
)

type App struct {
	Fiber     *fiber.App
	Container *Container
}

func New(c *Container) *App {
	f := fiber.New(fiber.Config{
		AppName: c.Config.App.AppName,
	})

	registerGlobalMiddleware(f, c)
	registerRoutes(f, c)

	return &App{Fiber: f, Container: c}
}

func Bootstrap(cfg config.Config, tuning config.Tuning, logger *zap.Logger) (*App, func() error, error) {
	c, err := NewContainer(cfg, tuning, logger)
	if err != nil {
		return nil, nil, err
	}

	app := New(c)
	return app, c.Close, nil
}

func registerGlobalMiddleware(app *fiber.App, c *Container) {
	if app == nil {
		return
	}

	app.Use(middleware.NewErrorMiddleware(c.Logger).Middleware())
	app.Use(middleware.NewAccessLogMiddleware(c.Logger).Middleware())
}

func registerRoutes(app *fiber.App, c *Container) {
	if app == nil {
		return
	}

	registry := routes.NewRegistry(
		handler.NewSkillHandler(c.Taxonomy),
		handler.NewEvidenceHandler(c.Verification),
		handler.NewLeaderboardHandler(c.Leaderboard),
		handler.NewRecommendHandler(c.Recommend, c.Opportunities),
	)
	registry.Register(app)
}

func ListenAddr(port string) (string, error) {
	p := strings.TrimSpace(port)
	if p == "" {
		return "", fmt.Errorf("empty HTTP port")
	}
	if strings.HasPrefix(p, ":") {
		return p, nil
	}
	return ":" + p, nil
}
