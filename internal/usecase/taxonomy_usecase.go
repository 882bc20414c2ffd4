package usecase

import (
	"context"
	"strings"

	"teamforge/internal/domain/skill"
	"teamforge/internal/domain/taxonomy"
	"teamforge/internal/repository"

	"go.uber.org/zap"
)

type TaxonomyUsecase interface {
	ListSkills(ctx context.Context) ([]skill.Skill, error)
	AddSkill(ctx context.Context, name, category string) (skill.Skill, error)
	Reload(ctx context.Context) error
}

type Taxonomy struct {
	repo    repository.SkillRepository
	catalog *taxonomy.Catalog
	logger  *zap.Logger
}

func NewTaxonomyUsecase(repo repository.SkillRepository, catalog *taxonomy.Catalog, logger *zap.Logger) *Taxonomy {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Taxonomy{repo: repo, catalog: catalog, logger: logger}
}

func (t *Taxonomy) ListSkills(_ context.Context) ([]skill.Skill, error) {
	return t.catalog.Snapshot().All(), nil
}

// AddSkill persists the skill and reloads the snapshot so subsequent evidence
// submissions can reference it.
func (t *Taxonomy) AddSkill(ctx context.Context, name, category string) (skill.Skill, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return skill.Skill{}, ErrInvalidInput
	}
	cat, ok := skill.ParseCategory(strings.TrimSpace(strings.ToLower(category)))
	if !ok {
		return skill.Skill{}, ErrInvalidInput
	}

	created, err := t.repo.Create(ctx, skill.Skill{Name: name, Category: cat})
	if err != nil {
		t.logger.Error("skill create failed", zap.Error(err))
		return skill.Skill{}, ErrInternal
	}

	if err := t.Reload(ctx); err != nil {
		return skill.Skill{}, err
	}
	return created, nil
}

func (t *Taxonomy) Reload(ctx context.Context) error {
	skills, err := t.repo.FindAll(ctx)
	if err != nil {
		t.logger.Error("taxonomy reload failed", zap.Error(err))
		return ErrInternal
	}
	t.catalog.Reload(skills)
	t.logger.Info("taxonomy reloaded", zap.Int("skills", len(skills)))
	return nil
}
