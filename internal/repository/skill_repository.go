package repository

import (
	"context"
	"errors"

	"teamforge/internal/database"
	"teamforge/internal/domain/skill"

	"github.com/google/uuid"
)

var ErrSkillNotFound = errors.New("skill not found")

type SkillRepository interface {
	FindAll(ctx context.Context) ([]skill.Skill, error)
	Create(ctx context.Context, s skill.Skill) (skill.Skill, error)
}

type PostgresSkillRepository struct {
	db database.DB
}

func NewPostgresSkillRepository(db database.DB) *PostgresSkillRepository {
	return &PostgresSkillRepository{db: db}
}

func (r *PostgresSkillRepository) FindAll(ctx context.Context) ([]skill.Skill, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, name, category, created_at FROM skills ORDER BY name ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]skill.Skill, 0)
	for rows.Next() {
		var s skill.Skill
		var category string
		if err := rows.Scan(&s.ID, &s.Name, &category, &s.CreatedAt); err != nil {
			return nil, err
		}
		if c, ok := skill.ParseCategory(category); ok {
			s.Category = c
		} else {
			s.Category = skill.CategoryOther
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *PostgresSkillRepository) Create(ctx context.Context, s skill.Skill) (skill.Skill, error) {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO skills (id, name, category) VALUES ($1, $2, $3)`,
		s.ID, s.Name, string(s.Category),
	)
	if err != nil {
		return skill.Skill{}, err
	}
	return s, nil
}
