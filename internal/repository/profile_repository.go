package repository

import (
	"context"

	"teamforge/internal/database"
	"teamforge/internal/domain/skill"

	"github.com/google/uuid"
)

// ProfileRepository exposes the slice of the externally-owned user profile
// the engines need: location and availability.
type ProfileRepository interface {
	FindProfiles(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]skill.CandidateProfile, error)
}

type PostgresProfileRepository struct {
	db database.DB
}

func NewPostgresProfileRepository(db database.DB) *PostgresProfileRepository {
	return &PostgresProfileRepository{db: db}
}

func (r *PostgresProfileRepository) FindProfiles(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]skill.CandidateProfile, error) {
	out := make(map[uuid.UUID]skill.CandidateProfile, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}

	rows, err := r.db.Query(ctx,
		`SELECT user_id, COALESCE(latitude, 0), COALESCE(longitude, 0), latitude IS NOT NULL AND longitude IS NOT NULL, COALESCE(region_code, ''), COALESCE(available, TRUE)
		 FROM profiles WHERE user_id = ANY($1)`,
		userIDs,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var p skill.CandidateProfile
		if err := rows.Scan(&p.UserID, &p.Location.Latitude, &p.Location.Longitude, &p.Location.HasCoords, &p.Location.RegionCode, &p.Available); err != nil {
			return nil, err
		}
		out[p.UserID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
