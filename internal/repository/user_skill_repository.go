package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"teamforge/internal/database"
	"teamforge/internal/domain/skill"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var ErrRecordNotFound = errors.New("user skill record not found")

// ComputeLevelFunc recomputes a level from total credit and state. It runs
// inside the repository's read-modify-write so the stored level can never
// drift from the stored credit.
type ComputeLevelFunc func(credit float64, state skill.VerificationState) int

type UserSkillRepository interface {
	FindRecord(ctx context.Context, userID, skillID uuid.UUID) (skill.UserSkillRecord, error)
	FindRecordsByUser(ctx context.Context, userID uuid.UUID) ([]skill.UserSkillRecord, error)
	FindAllRecords(ctx context.Context) ([]skill.UserSkillRecord, error)
	ListEvents(ctx context.Context, userID, skillID uuid.UUID) ([]skill.EvidenceEvent, error)
	HasProjectEvidence(ctx context.Context, userID, skillID, projectID uuid.UUID) (bool, error)
	HasCertificateUpload(ctx context.Context, userID, skillID, certificateID uuid.UUID) (bool, error)
	HasCertificateReview(ctx context.Context, userID, skillID, certificateID uuid.UUID) (bool, error)

	// ApplyEvidence appends the event and folds its credit into the record
	// in one transaction: either both land or neither does.
	ApplyEvidence(ctx context.Context, ev skill.EvidenceEvent, nextState skill.VerificationState, computeLevel ComputeLevelFunc) (skill.UserSkillRecord, error)
}

type PostgresUserSkillRepository struct {
	db database.DB
}

func NewPostgresUserSkillRepository(db database.DB) *PostgresUserSkillRepository {
	return &PostgresUserSkillRepository{db: db}
}

const recordColumns = `user_id, skill_id, credit, state, level, updated_at`

func (r *PostgresUserSkillRepository) FindRecord(ctx context.Context, userID, skillID uuid.UUID) (skill.UserSkillRecord, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+recordColumns+` FROM user_skill_records WHERE user_id = $1 AND skill_id = $2`,
		userID, skillID,
	)
	return scanRecord(row)
}

func (r *PostgresUserSkillRepository) FindRecordsByUser(ctx context.Context, userID uuid.UUID) ([]skill.UserSkillRecord, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+recordColumns+` FROM user_skill_records WHERE user_id = $1 ORDER BY skill_id ASC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecords(rows)
}

func (r *PostgresUserSkillRepository) FindAllRecords(ctx context.Context) ([]skill.UserSkillRecord, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+recordColumns+` FROM user_skill_records ORDER BY user_id ASC, skill_id ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecords(rows)
}

func (r *PostgresUserSkillRepository) ListEvents(ctx context.Context, userID, skillID uuid.UUID) ([]skill.EvidenceEvent, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, user_id, skill_id, source, COALESCE(quiz_score, 0), project_id, certificate_id, credit_granted, recorded_at
		 FROM evidence_events
		 WHERE user_id = $1 AND skill_id = $2
		 ORDER BY recorded_at ASC, id ASC`,
		userID, skillID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]skill.EvidenceEvent, 0)
	for rows.Next() {
		var ev skill.EvidenceEvent
		var projectID, certificateID *uuid.UUID
		if err := rows.Scan(&ev.ID, &ev.UserID, &ev.SkillID, &ev.Source, &ev.QuizScore, &projectID, &certificateID, &ev.CreditGranted, &ev.RecordedAt); err != nil {
			return nil, err
		}
		if projectID != nil {
			ev.ProjectID = *projectID
		}
		if certificateID != nil {
			ev.CertificateID = *certificateID
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *PostgresUserSkillRepository) HasProjectEvidence(ctx context.Context, userID, skillID, projectID uuid.UUID) (bool, error) {
	var exists bool
	row := r.db.QueryRow(ctx,
		`SELECT EXISTS(
			SELECT 1 FROM evidence_events
			WHERE user_id = $1 AND skill_id = $2 AND project_id = $3 AND source = $4 AND credit_granted > 0
		)`,
		userID, skillID, projectID, string(skill.SourceProjectCompletion),
	)
	if err := row.Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *PostgresUserSkillRepository) HasCertificateUpload(ctx context.Context, userID, skillID, certificateID uuid.UUID) (bool, error) {
	var exists bool
	row := r.db.QueryRow(ctx,
		`SELECT EXISTS(
			SELECT 1 FROM evidence_events
			WHERE user_id = $1 AND skill_id = $2 AND certificate_id = $3 AND source = $4
		)`,
		userID, skillID, certificateID, string(skill.SourceCertificateUpload),
	)
	if err := row.Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *PostgresUserSkillRepository) HasCertificateReview(ctx context.Context, userID, skillID, certificateID uuid.UUID) (bool, error) {
	var exists bool
	row := r.db.QueryRow(ctx,
		`SELECT EXISTS(
			SELECT 1 FROM evidence_events
			WHERE user_id = $1 AND skill_id = $2 AND certificate_id = $3 AND source = $4 AND credit_granted > 0
		)`,
		userID, skillID, certificateID, string(skill.SourceCertificateReview),
	)
	if err := row.Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *PostgresUserSkillRepository) ApplyEvidence(ctx context.Context, ev skill.EvidenceEvent, nextState skill.VerificationState, computeLevel ComputeLevelFunc) (skill.UserSkillRecord, error) {
	if computeLevel == nil {
		return skill.UserSkillRecord{}, fmt.Errorf("nil compute level func")
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return skill.UserSkillRecord{}, err
	}
	defer func() {
		_ = tx.Rollback(context.Background())
	}()

	if _, err := tx.Exec(ctx,
		`INSERT INTO evidence_events (id, user_id, skill_id, source, quiz_score, project_id, certificate_id, credit_granted, recorded_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		ev.ID, ev.UserID, ev.SkillID, string(ev.Source), ev.QuizScore,
		nullableUUID(ev.ProjectID), nullableUUID(ev.CertificateID),
		ev.CreditGranted, ev.RecordedAt,
	); err != nil {
		return skill.UserSkillRecord{}, err
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO user_skill_records (user_id, skill_id, credit, state, level, updated_at)
		 VALUES ($1, $2, 0, $3, 0, $4)
		 ON CONFLICT (user_id, skill_id) DO NOTHING`,
		ev.UserID, ev.SkillID, string(skill.StateUnverified), ev.RecordedAt,
	); err != nil {
		return skill.UserSkillRecord{}, err
	}

	// Row lock serializes concurrent submissions for the same pair, so the
	// credit sum never loses an update.
	var credit float64
	var state skill.VerificationState
	row := tx.QueryRow(ctx,
		`SELECT credit, state FROM user_skill_records WHERE user_id = $1 AND skill_id = $2 FOR UPDATE`,
		ev.UserID, ev.SkillID,
	)
	if err := row.Scan(&credit, &state); err != nil {
		return skill.UserSkillRecord{}, err
	}

	credit += ev.CreditGranted
	if nextState == "" {
		nextState = state
	}
	level := computeLevel(credit, nextState)
	now := time.Now().UTC()

	if _, err := tx.Exec(ctx,
		`UPDATE user_skill_records SET credit = $3, state = $4, level = $5, updated_at = $6
		 WHERE user_id = $1 AND skill_id = $2`,
		ev.UserID, ev.SkillID, credit, string(nextState), level, now,
	); err != nil {
		return skill.UserSkillRecord{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return skill.UserSkillRecord{}, err
	}

	return skill.UserSkillRecord{
		UserID:    ev.UserID,
		SkillID:   ev.SkillID,
		Credit:    credit,
		State:     nextState,
		Level:     level,
		UpdatedAt: now,
	}, nil
}

func nullableUUID(id uuid.UUID) any {
	if id == uuid.Nil {
		return nil
	}
	return id
}

func scanRecord(row database.Row) (skill.UserSkillRecord, error) {
	var rec skill.UserSkillRecord
	if err := row.Scan(&rec.UserID, &rec.SkillID, &rec.Credit, &rec.State, &rec.Level, &rec.UpdatedAt); err != nil {
		if err == sql.ErrNoRows || errors.Is(err, pgx.ErrNoRows) {
			return skill.UserSkillRecord{}, ErrRecordNotFound
		}
		return skill.UserSkillRecord{}, err
	}
	return rec, nil
}

func scanRecords(rows database.Rows) ([]skill.UserSkillRecord, error) {
	out := make([]skill.UserSkillRecord, 0)
	for rows.Next() {
		var rec skill.UserSkillRecord
		if err := rows.Scan(&rec.UserID, &rec.SkillID, &rec.Credit, &rec.State, &rec.Level, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
