package usecase

import (
	"context"
	"sync/atomic"
	"time"

	"teamforge/internal/domain/leaderboard"
	"teamforge/internal/domain/skill"
	"teamforge/internal/domain/taxonomy"
	"teamforge/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type RankedUser struct {
	UserID        uuid.UUID `json:"user_id"`
	TotalScore    int       `json:"total_score"`
	VerifiedCount int       `json:"verified_count"`
}

type LeaderboardUsecase interface {
	Rank(ctx context.Context, category string, limit int) ([]RankedUser, error)
}

const leaderboardCacheTTL = 30 * time.Second

type Leaderboard struct {
	agg    *leaderboard.Aggregator
	cache  Cache
	logger *zap.Logger

	// version bumps on every record update; stale cache entries just age out
	// under their old key.
	version atomic.Uint64
}

func NewLeaderboardUsecase(cache Cache, logger *zap.Logger) *Leaderboard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Leaderboard{
		agg:    leaderboard.NewAggregator(),
		cache:  cache,
		logger: logger,
	}
}

// Warm seeds the in-memory rankings from persisted records at startup.
func (l *Leaderboard) Warm(ctx context.Context, repo repository.UserSkillRepository, catalog *taxonomy.Catalog) error {
	records, err := repo.FindAllRecords(ctx)
	if err != nil {
		return err
	}
	snap := catalog.Snapshot()
	for _, rec := range records {
		l.applyRecord(rec, snap)
	}
	l.logger.Info("leaderboard warmed", zap.Int("records", len(records)))
	return nil
}

func (l *Leaderboard) applyRecord(rec skill.UserSkillRecord, snap *taxonomy.Snapshot) {
	category := skill.CategoryOther
	if sk, ok := snap.Lookup(rec.SkillID); ok {
		category = sk.Category
	}
	l.agg.Apply(rec.UserID, rec.SkillID, category, rec.Level, rec.State == skill.StateVerified)
}

// RecordUpdated implements RecordObserver.
func (l *Leaderboard) RecordUpdated(rec skill.UserSkillRecord, category skill.Category) {
	l.agg.Apply(rec.UserID, rec.SkillID, category, rec.Level, rec.State == skill.StateVerified)
	l.version.Add(1)
}

func (l *Leaderboard) Rank(ctx context.Context, category string, limit int) ([]RankedUser, error) {
	cat := skill.Category("")
	if category != "" {
		parsed, ok := skill.ParseCategory(category)
		if !ok {
			return nil, ErrInvalidInput
		}
		cat = parsed
	}

	key := leaderboardCacheKey(cat, limit, l.version.Load())
	if l.cache != nil {
		var cached []RankedUser
		if hit, err := l.cache.GetJSON(ctx, key, &cached); err == nil && hit {
			return cached, nil
		}
	}

	entries := l.agg.Rank(cat, limit)
	out := make([]RankedUser, 0, len(entries))
	for _, e := range entries {
		out = append(out, RankedUser{UserID: e.UserID, TotalScore: e.TotalScore, VerifiedCount: e.VerifiedCount})
	}

	if l.cache != nil {
		if err := l.cache.SetJSON(ctx, key, out, leaderboardCacheTTL); err != nil {
			l.logger.Debug("leaderboard cache write skipped", zap.Error(err))
		}
	}
	return out, nil
}
