package usecase

import (
	"context"
	"errors"
	"time"

	"teamforge/internal/domain/matching"
	"teamforge/internal/domain/skill"
	"teamforge/internal/domain/taxonomy"
	"teamforge/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrOpportunityNotFound = errors.New("opportunity not found")

type RecommendUsecase interface {
	Recommend(ctx context.Context, opp skill.Opportunity, candidateIDs []uuid.UUID, topK int) ([]matching.MatchScore, error)
	RecommendForOpportunity(ctx context.Context, oppID uuid.UUID, candidateIDs []uuid.UUID, topK int) ([]matching.MatchScore, error)
}

const recommendCacheTTL = 5 * time.Minute

type Recommender struct {
	records  repository.UserSkillRepository
	profiles repository.ProfileRepository
	opps     repository.OpportunityRepository
	catalog  *taxonomy.Catalog
	cfg      matching.Config
	cache    Cache
	logger   *zap.Logger
}

// NewRecommendUsecase fails fast on a bad matching config; a process with
// broken weights should not come up at all.
func NewRecommendUsecase(records repository.UserSkillRepository, profiles repository.ProfileRepository, opps repository.OpportunityRepository, catalog *taxonomy.Catalog, cfg matching.Config, cache Cache, logger *zap.Logger) (*Recommender, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recommender{
		records:  records,
		profiles: profiles,
		opps:     opps,
		catalog:  catalog,
		cfg:      cfg,
		cache:    cache,
		logger:   logger,
	}, nil
}

func (r *Recommender) RecommendForOpportunity(ctx context.Context, oppID uuid.UUID, candidateIDs []uuid.UUID, topK int) ([]matching.MatchScore, error) {
	if oppID == uuid.Nil {
		return nil, ErrInvalidInput
	}
	opp, err := r.opps.FindByID(ctx, oppID)
	if err != nil {
		if errors.Is(err, repository.ErrOpportunityNotFound) {
			return nil, ErrOpportunityNotFound
		}
		return nil, ErrInternal
	}
	return r.Recommend(ctx, opp, candidateIDs, topK)
}

func (r *Recommender) Recommend(ctx context.Context, opp skill.Opportunity, candidateIDs []uuid.UUID, topK int) ([]matching.MatchScore, error) {
	if len(candidateIDs) == 0 {
		return []matching.MatchScore{}, nil
	}

	pool, inputsVersion, err := r.buildPool(ctx, candidateIDs)
	if err != nil {
		return nil, err
	}

	pooledIDs := make([]uuid.UUID, 0, len(pool))
	for _, cand := range pool {
		pooledIDs = append(pooledIDs, cand.ID)
	}

	key := recommendCacheKey(opp, candidateIDs, pooledIDs, topK, inputsVersion)
	if r.cache != nil {
		var cached []matching.MatchScore
		if hit, err := r.cache.GetJSON(ctx, key, &cached); err == nil && hit {
			return cached, nil
		}
	}

	out := matching.Rank(r.cfg, opp, pool, topK)

	if r.cache != nil {
		if err := r.cache.SetJSON(ctx, key, out, recommendCacheTTL); err != nil {
			r.logger.Debug("recommendation cache write skipped", zap.Error(err))
		}
	}
	return out, nil
}

// buildPool turns candidate ids into engine inputs: skill levels joined with
// taxonomy categories, plus profile location. Unavailable candidates drop
// out before scoring. The returned time is the max updated-at across every
// record read, used as the cache invalidation key.
func (r *Recommender) buildPool(ctx context.Context, candidateIDs []uuid.UUID) ([]matching.Candidate, time.Time, error) {
	profiles, err := r.profiles.FindProfiles(ctx, candidateIDs)
	if err != nil {
		r.logger.Error("profile lookup failed", zap.Error(err))
		return nil, time.Time{}, ErrInternal
	}

	snap := r.catalog.Snapshot()
	pool := make([]matching.Candidate, 0, len(candidateIDs))
	var inputsVersion time.Time

	for _, id := range candidateIDs {
		if id == uuid.Nil {
			continue
		}

		profile, hasProfile := profiles[id]
		if hasProfile && !profile.Available {
			continue
		}

		records, err := r.records.FindRecordsByUser(ctx, id)
		if err != nil {
			r.logger.Error("record lookup failed", zap.String("user_id", id.String()), zap.Error(err))
			return nil, time.Time{}, ErrInternal
		}

		cand := matching.Candidate{ID: id, Location: profile.Location}
		for _, rec := range records {
			category := skill.CategoryOther
			if sk, ok := snap.Lookup(rec.SkillID); ok {
				category = sk.Category
			}
			cand.Skills = append(cand.Skills, matching.CandidateSkill{
				SkillID:  rec.SkillID,
				Category: category,
				Level:    rec.Level,
				Verified: rec.State == skill.StateVerified,
			})
			if rec.UpdatedAt.After(inputsVersion) {
				inputsVersion = rec.UpdatedAt
			}
		}
		pool = append(pool, cand)
	}

	return pool, inputsVersion, nil
}
