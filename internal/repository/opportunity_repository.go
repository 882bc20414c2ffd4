package repository

import (
	"context"
	"database/sql"
	"errors"

	"teamforge/internal/database"
	"teamforge/internal/domain/skill"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var ErrOpportunityNotFound = errors.New("opportunity not found")

type OpportunityRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (skill.Opportunity, error)
	Create(ctx context.Context, opp skill.Opportunity) (skill.Opportunity, error)
}

type PostgresOpportunityRepository struct {
	db database.DB
}

func NewPostgresOpportunityRepository(db database.DB) *PostgresOpportunityRepository {
	return &PostgresOpportunityRepository{db: db}
}

func (r *PostgresOpportunityRepository) FindByID(ctx context.Context, id uuid.UUID) (skill.Opportunity, error) {
	row := r.db.QueryRow(ctx,
		`SELECT id, title, team_size, COALESCE(latitude, 0), COALESCE(longitude, 0), latitude IS NOT NULL AND longitude IS NOT NULL, COALESCE(region_code, ''), created_at
		 FROM opportunities WHERE id = $1`,
		id,
	)

	var opp skill.Opportunity
	if err := row.Scan(&opp.ID, &opp.Title, &opp.TeamSize, &opp.Location.Latitude, &opp.Location.Longitude, &opp.Location.HasCoords, &opp.Location.RegionCode, &opp.CreatedAt); err != nil {
		if err == sql.ErrNoRows || errors.Is(err, pgx.ErrNoRows) {
			return skill.Opportunity{}, ErrOpportunityNotFound
		}
		return skill.Opportunity{}, err
	}

	reqs, err := r.findRequiredSkills(ctx, id)
	if err != nil {
		return skill.Opportunity{}, err
	}
	opp.RequiredSkills = reqs

	mix, err := r.findTeamMix(ctx, id)
	if err != nil {
		return skill.Opportunity{}, err
	}
	opp.TeamMix = mix

	return opp, nil
}

func (r *PostgresOpportunityRepository) findRequiredSkills(ctx context.Context, oppID uuid.UUID) ([]skill.RequiredSkill, error) {
	rows, err := r.db.Query(ctx,
		`SELECT skill_id, COALESCE(minimum_level, 0), mandatory
		 FROM opportunity_required_skills WHERE opportunity_id = $1 ORDER BY skill_id ASC`,
		oppID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]skill.RequiredSkill, 0)
	for rows.Next() {
		var rs skill.RequiredSkill
		if err := rows.Scan(&rs.SkillID, &rs.MinimumLevel, &rs.Mandatory); err != nil {
			return nil, err
		}
		out = append(out, rs)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *PostgresOpportunityRepository) findTeamMix(ctx context.Context, oppID uuid.UUID) (map[skill.Category]int, error) {
	rows, err := r.db.Query(ctx,
		`SELECT category, member_count FROM opportunity_team_mix WHERE opportunity_id = $1`,
		oppID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	mix := make(map[skill.Category]int)
	for rows.Next() {
		var category string
		var count int
		if err := rows.Scan(&category, &count); err != nil {
			return nil, err
		}
		if c, ok := skill.ParseCategory(category); ok {
			mix[c] = count
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(mix) == 0 {
		return nil, nil
	}
	return mix, nil
}

func (r *PostgresOpportunityRepository) Create(ctx context.Context, opp skill.Opportunity) (skill.Opportunity, error) {
	if opp.ID == uuid.Nil {
		opp.ID = uuid.New()
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return skill.Opportunity{}, err
	}
	defer func() {
		_ = tx.Rollback(context.Background())
	}()

	var lat, lon any
	if opp.Location.HasCoords {
		lat, lon = opp.Location.Latitude, opp.Location.Longitude
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO opportunities (id, title, team_size, latitude, longitude, region_code)
		 VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''))`,
		opp.ID, opp.Title, opp.TeamSize, lat, lon, opp.Location.RegionCode,
	); err != nil {
		return skill.Opportunity{}, err
	}

	for _, rs := range opp.RequiredSkills {
		if rs.SkillID == uuid.Nil {
			continue
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO opportunity_required_skills (opportunity_id, skill_id, minimum_level, mandatory)
			 VALUES ($1, $2, $3, $4)`,
			opp.ID, rs.SkillID, rs.MinimumLevel, rs.Mandatory,
		); err != nil {
			return skill.Opportunity{}, err
		}
	}

	for category, count := range opp.TeamMix {
		if _, err := tx.Exec(ctx,
			`INSERT INTO opportunity_team_mix (opportunity_id, category, member_count)
			 VALUES ($1, $2, $3)`,
			opp.ID, string(category), count,
		); err != nil {
			return skill.Opportunity{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return skill.Opportunity{}, err
	}
	return opp, nil
}
