package leaderboard

import (
	"testing"

	"teamforge/internal/domain/skill"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndex_RankOrderAndTieBreaks(t *testing.T) {
	idx := NewIndex()

	low := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	high := uuid.MustParse("00000000-0000-0000-0000-000000000002")
	other := uuid.MustParse("00000000-0000-0000-0000-000000000003")

	idx.Upsert(Entry{UserID: other, TotalScore: 9, VerifiedCount: 0})
	idx.Upsert(Entry{UserID: high, TotalScore: 5, VerifiedCount: 2})
	idx.Upsert(Entry{UserID: low, TotalScore: 5, VerifiedCount: 2})

	got := idx.TopK(0)
	require.Len(t, got, 3)
	assert.Equal(t, other, got[0].UserID)
	// Equal score, equal verified count: user id ascending.
	assert.Equal(t, low, got[1].UserID)
	assert.Equal(t, high, got[2].UserID)

	// Verified count breaks score ties before user id does.
	idx.Upsert(Entry{UserID: high, TotalScore: 5, VerifiedCount: 3})
	got = idx.TopK(0)
	assert.Equal(t, high, got[1].UserID)
	assert.Equal(t, low, got[2].UserID)
}

func TestIndex_UpsertReplaces(t *testing.T) {
	idx := NewIndex()
	u := uuid.New()

	idx.Upsert(Entry{UserID: u, TotalScore: 1})
	idx.Upsert(Entry{UserID: u, TotalScore: 7})

	require.Equal(t, 1, idx.Len())
	got := idx.TopK(1)
	require.Len(t, got, 1)
	assert.Equal(t, 7, got[0].TotalScore)
}

func TestIndex_TopKLimits(t *testing.T) {
	idx := NewIndex()
	for i := 0; i < 10; i++ {
		idx.Upsert(Entry{UserID: uuid.New(), TotalScore: i})
	}

	assert.Len(t, idx.TopK(3), 3)
	assert.Len(t, idx.TopK(100), 10)
	assert.Len(t, idx.TopK(0), 10)
}

func TestIndex_StableAcrossReads(t *testing.T) {
	idx := NewIndex()
	for i := 0; i < 20; i++ {
		idx.Upsert(Entry{UserID: uuid.New(), TotalScore: i % 4, VerifiedCount: i % 3})
	}

	first := idx.TopK(0)
	second := idx.TopK(0)
	assert.Equal(t, first, second)
}

func TestAggregator_CategoryAndGlobalRankings(t *testing.T) {
	agg := NewAggregator()

	alice := uuid.MustParse("00000000-0000-0000-0000-00000000000a")
	bob := uuid.MustParse("00000000-0000-0000-0000-00000000000b")

	goSkill := uuid.New()
	reactSkill := uuid.New()
	cssSkill := uuid.New()

	agg.Apply(alice, goSkill, skill.CategoryBackend, 4, true)
	agg.Apply(alice, reactSkill, skill.CategoryFrontend, 1, false)
	agg.Apply(bob, reactSkill, skill.CategoryFrontend, 3, true)
	agg.Apply(bob, cssSkill, skill.CategoryFrontend, 2, false)

	global := agg.Rank("", 0)
	require.Len(t, global, 2)
	assert.Equal(t, alice, global[0].UserID)
	assert.Equal(t, 5, global[0].TotalScore)
	assert.Equal(t, bob, global[1].UserID)
	assert.Equal(t, 5, global[1].TotalScore)

	frontend := agg.Rank(skill.CategoryFrontend, 0)
	require.Len(t, frontend, 2)
	assert.Equal(t, bob, frontend[0].UserID)
	assert.Equal(t, 5, frontend[0].TotalScore)
	assert.Equal(t, 1, frontend[1].TotalScore)

	backend := agg.Rank(skill.CategoryBackend, 0)
	require.NotEmpty(t, backend)
	assert.Equal(t, alice, backend[0].UserID)
	assert.Equal(t, 4, backend[0].TotalScore)
}

func TestAggregator_IncrementalUpdate(t *testing.T) {
	agg := NewAggregator()
	u := uuid.New()
	s := uuid.New()

	agg.Apply(u, s, skill.CategoryDevOps, 1, false)
	agg.Apply(u, s, skill.CategoryDevOps, 3, true)

	global := agg.Rank("", 0)
	require.Len(t, global, 1)
	assert.Equal(t, 3, global[0].TotalScore)
	assert.Equal(t, 1, global[0].VerifiedCount)
}
