package seeder

import (
	"context"
	"fmt"

	"teamforge/internal/database"
	"teamforge/internal/domain/skill"
)

type SkillsSeeder struct{}

func (SkillsSeeder) Name() string { return "skills" }

func (SkillsSeeder) Run(ctx context.Context, db database.DB) error {
	if err := EnsureTableColumns(ctx, db, "skills", "id", "name", "category", "created_at"); err != nil {
		return err
	}

	tx, err := db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(context.Background())
	}()

	items := []struct {
		Name     string
		Category skill.Category
	}{
		{Name: "React", Category: skill.CategoryFrontend},
		{Name: "TypeScript", Category: skill.CategoryFrontend},
		{Name: "Vue", Category: skill.CategoryFrontend},
		{Name: "Go", Category: skill.CategoryBackend},
		{Name: "Python", Category: skill.CategoryBackend},
		{Name: "PostgreSQL", Category: skill.CategoryBackend},
		{Name: "Docker", Category: skill.CategoryDevOps},
		{Name: "Kubernetes", Category: skill.CategoryDevOps},
		{Name: "Terraform", Category: skill.CategoryDevOps},
		{Name: "Figma", Category: skill.CategoryDesign},
		{Name: "UX Research", Category: skill.CategoryDesign},
		{Name: "Product Strategy", Category: skill.CategoryOther},
	}

	for _, it := range items {
		_, err := tx.Exec(
			ctx,
			`INSERT INTO skills (id, name, category) VALUES (gen_random_uuid(), $1, $2) ON CONFLICT (name) DO NOTHING`,
			it.Name,
			string(it.Category),
		)
		if err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
