package usecase

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"teamforge/internal/domain/evidence"
	"teamforge/internal/domain/leveling"
	"teamforge/internal/domain/matching"
	"teamforge/internal/domain/skill"
	"teamforge/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRecommendUsecase_InvalidWeightsFailFast(t *testing.T) {
	cfg := matching.DefaultConfig()
	cfg.Weights.Skill = 0.9 // sum now 1.4

	_, err := NewRecommendUsecase(
		repository.NewInMemoryUserSkillRepository(),
		repository.NewInMemoryProfileRepository(),
		repository.NewInMemoryOpportunityRepository(),
		newTestCatalog(),
		cfg, nil, nil,
	)
	require.ErrorIs(t, err, matching.ErrInvalidWeights)
}

func TestRecommend_EndToEnd(t *testing.T) {
	golang := skill.Skill{ID: uuid.New(), Name: "Go", Category: skill.CategoryBackend}
	react := skill.Skill{ID: uuid.New(), Name: "React", Category: skill.CategoryFrontend}
	catalog := newTestCatalog(golang, react)

	records := repository.NewInMemoryUserSkillRepository()
	profiles := repository.NewInMemoryProfileRepository()
	opps := repository.NewInMemoryOpportunityRepository()

	v := NewVerificationUsecase(records, catalog, evidence.DefaultPolicy(), leveling.DefaultConfig(), nil)

	strong := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	weak := uuid.MustParse("00000000-0000-0000-0000-000000000002")
	away := uuid.MustParse("00000000-0000-0000-0000-000000000003")

	// strong: 100-credit Go record, level 4.
	for i := 0; i < 10; i++ {
		_, err := v.SubmitEvidence(context.Background(), SubmitEvidenceInput{
			UserID: strong, SkillID: golang.ID,
			Source: skill.SourceProjectCompletion, ProjectID: uuid.New(),
		})
		require.NoError(t, err)
	}
	// weak: one completion, level 1.
	_, err := v.SubmitEvidence(context.Background(), SubmitEvidenceInput{
		UserID: weak, SkillID: golang.ID,
		Source: skill.SourceProjectCompletion, ProjectID: uuid.New(),
	})
	require.NoError(t, err)
	// away: same strength as weak but marked unavailable.
	_, err = v.SubmitEvidence(context.Background(), SubmitEvidenceInput{
		UserID: away, SkillID: golang.ID,
		Source: skill.SourceProjectCompletion, ProjectID: uuid.New(),
	})
	require.NoError(t, err)

	profiles.Put(skill.CandidateProfile{UserID: strong, Available: true})
	profiles.Put(skill.CandidateProfile{UserID: weak, Available: true})
	profiles.Put(skill.CandidateProfile{UserID: away, Available: false})

	opp, err := opps.Create(context.Background(), skill.Opportunity{
		Title:          "hackathon backend",
		RequiredSkills: []skill.RequiredSkill{{SkillID: golang.ID, MinimumLevel: 3, Mandatory: true}},
		TeamMix:        map[skill.Category]int{skill.CategoryFrontend: 2},
	})
	require.NoError(t, err)

	rec, err := NewRecommendUsecase(records, profiles, opps, catalog, matching.DefaultConfig(), nil, nil)
	require.NoError(t, err)

	got, err := rec.RecommendForOpportunity(context.Background(), opp.ID, []uuid.UUID{strong, weak, away}, 10)
	require.NoError(t, err)
	require.Len(t, got, 2, "unavailable candidate excluded")

	assert.Equal(t, strong, got[0].CandidateID)
	assert.Equal(t, weak, got[1].CandidateID)
	assert.Greater(t, got[0].Score, got[1].Score)
	assert.InDelta(t, 1.0, got[0].Factors.SkillOverlap, 1e-9)
	assert.InDelta(t, 1.0/3.0, got[1].Factors.SkillOverlap, 1e-9)
	// Backend-dominant candidates complement a frontend-only team.
	assert.InDelta(t, 1.0, got[0].Factors.Complementarity, 1e-9)
}

type mapCache struct {
	entries map[string][]byte
}

func newMapCache() *mapCache {
	return &mapCache{entries: make(map[string][]byte)}
}

func (c *mapCache) GetJSON(_ context.Context, key string, out any) (bool, error) {
	b, ok := c.entries[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, out)
}

func (c *mapCache) SetJSON(_ context.Context, key string, value any, _ time.Duration) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.entries[key] = b
	return nil
}

func (c *mapCache) Delete(_ context.Context, key string) error {
	delete(c.entries, key)
	return nil
}

func TestRecommend_AvailabilityFlipBypassesCache(t *testing.T) {
	golang := skill.Skill{ID: uuid.New(), Name: "Go", Category: skill.CategoryBackend}
	catalog := newTestCatalog(golang)

	records := repository.NewInMemoryUserSkillRepository()
	profiles := repository.NewInMemoryProfileRepository()
	opps := repository.NewInMemoryOpportunityRepository()

	v := NewVerificationUsecase(records, catalog, evidence.DefaultPolicy(), leveling.DefaultConfig(), nil)

	alice := uuid.New()
	bob := uuid.New()
	for _, user := range []uuid.UUID{alice, bob} {
		_, err := v.SubmitEvidence(context.Background(), SubmitEvidenceInput{
			UserID: user, SkillID: golang.ID,
			Source: skill.SourceProjectCompletion, ProjectID: uuid.New(),
		})
		require.NoError(t, err)
	}
	profiles.Put(skill.CandidateProfile{UserID: alice, Available: true})
	profiles.Put(skill.CandidateProfile{UserID: bob, Available: true})

	opp, err := opps.Create(context.Background(), skill.Opportunity{
		Title:          "weekend team",
		RequiredSkills: []skill.RequiredSkill{{SkillID: golang.ID, MinimumLevel: 1}},
	})
	require.NoError(t, err)

	cache := newMapCache()
	rec, err := NewRecommendUsecase(records, profiles, opps, catalog, matching.DefaultConfig(), cache, nil)
	require.NoError(t, err)

	pool := []uuid.UUID{alice, bob}

	got, err := rec.RecommendForOpportunity(context.Background(), opp.ID, pool, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.NotEmpty(t, cache.entries)

	// Bob drops out; the cached two-candidate page must not be served.
	profiles.Put(skill.CandidateProfile{UserID: bob, Available: false})

	got, err = rec.RecommendForOpportunity(context.Background(), opp.ID, pool, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, alice, got[0].CandidateID)
}

func TestRecommend_UnknownOpportunity(t *testing.T) {
	rec, err := NewRecommendUsecase(
		repository.NewInMemoryUserSkillRepository(),
		repository.NewInMemoryProfileRepository(),
		repository.NewInMemoryOpportunityRepository(),
		newTestCatalog(),
		matching.DefaultConfig(), nil, nil,
	)
	require.NoError(t, err)

	_, err = rec.RecommendForOpportunity(context.Background(), uuid.New(), []uuid.UUID{uuid.New()}, 5)
	require.ErrorIs(t, err, ErrOpportunityNotFound)
}

func TestRecommend_EmptyPool(t *testing.T) {
	rec, err := NewRecommendUsecase(
		repository.NewInMemoryUserSkillRepository(),
		repository.NewInMemoryProfileRepository(),
		repository.NewInMemoryOpportunityRepository(),
		newTestCatalog(),
		matching.DefaultConfig(), nil, nil,
	)
	require.NoError(t, err)

	got, err := rec.Recommend(context.Background(), skill.Opportunity{ID: uuid.New()}, nil, 5)
	require.NoError(t, err)
	assert.Empty(t, got)
}
