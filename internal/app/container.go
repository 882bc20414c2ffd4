package app

import (
	"context"
	"time"

	"teamforge/internal/config"
	"teamforge/internal/database"
	"teamforge/internal/database/migration"
	dbpostgres "teamforge/internal/database/postgres"
	"teamforge/internal/database/seeder"
	"teamforge/internal/domain/taxonomy"
	"teamforge/internal/infrastructure/cache"
	"teamforge/internal/repository"
	"teamforge/internal/usecase"

	"go.uber.org/zap"
)

type Container struct {
	Config config.Config
	Tuning config.Tuning
	Logger *zap.Logger

	DB    database.DB
	Redis *cache.Redis

	Catalog *taxonomy.Catalog

	Skills        repository.SkillRepository
	Records       repository.UserSkillRepository
	Opportunities repository.OpportunityRepository
	Profiles      repository.ProfileRepository

	Taxonomy     usecase.TaxonomyUsecase
	Verification usecase.VerificationUsecase
	Leaderboard  *usecase.Leaderboard
	Recommend    usecase.RecommendUsecase
}

func NewContainer(cfg config.Config, tuning config.Tuning, logger *zap.Logger) (*Container, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := dbpostgres.Connect(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	if err := (migration.Runner{Dir: cfg.App.MigrationsDir}).Run(ctx, db.SQLDB()); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := (seeder.Runner{Seeders: seeder.Defaults()}).Run(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	redisCache := cache.NewRedis(cfg.Redis, logger)

	c := &Container{
		Config: cfg,
		Tuning: tuning,
		Logger: logger,
		DB:     db,
		Redis:  redisCache,

		Catalog: taxonomy.NewCatalog(nil),

		Skills:        repository.NewPostgresSkillRepository(db),
		Records:       repository.NewPostgresUserSkillRepository(db),
		Opportunities: repository.NewPostgresOpportunityRepository(db),
		Profiles:      repository.NewPostgresProfileRepository(db),
	}

	taxonomyUC := usecase.NewTaxonomyUsecase(c.Skills, c.Catalog, logger)
	if err := taxonomyUC.Reload(ctx); err != nil {
		_ = c.Close()
		return nil, err
	}
	c.Taxonomy = taxonomyUC

	lb := usecase.NewLeaderboardUsecase(redisCache, logger)
	if err := lb.Warm(ctx, c.Records, c.Catalog); err != nil {
		_ = c.Close()
		return nil, err
	}
	c.Leaderboard = lb

	c.Verification = usecase.NewVerificationUsecase(
		c.Records, c.Catalog, tuning.Policy, tuning.Leveling, logger, lb,
	)

	rec, err := usecase.NewRecommendUsecase(
		c.Records, c.Profiles, c.Opportunities, c.Catalog, tuning.Matching, redisCache, logger,
	)
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	c.Recommend = rec

	return c, nil
}

func (c *Container) Close() error {
	if c == nil {
		return nil
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
	if c.DB == nil {
		return nil
	}
	return c.DB.Close()
}
