package usecase

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"teamforge/internal/domain/skill"

	"github.com/google/uuid"
)

type recommendCacheKeyInput struct {
	OpportunityID  uuid.UUID              `json:"opportunity_id"`
	RequiredSkills []skill.RequiredSkill  `json:"required_skills"`
	TeamMix        map[skill.Category]int `json:"team_mix"`
	CandidateIDs   []string               `json:"candidate_ids"`
	// PooledIDs are the candidates that survived the availability filter, so
	// flipping availability changes the key rather than serving a stale page.
	PooledIDs []string `json:"pooled_ids"`
	TopK      int      `json:"top_k"`
	// InputsVersion is the max updated-at across every record that feeds the
	// scores; any evidence submission bumps it, invalidating the entry.
	InputsVersion int64 `json:"inputs_version"`
}

func recommendCacheKey(opp skill.Opportunity, candidateIDs, pooledIDs []uuid.UUID, topK int, inputsVersion time.Time) string {
	in := recommendCacheKeyInput{
		OpportunityID:  opp.ID,
		RequiredSkills: opp.RequiredSkills,
		TeamMix:        opp.TeamMix,
		CandidateIDs:   sortedIDs(candidateIDs),
		PooledIDs:      sortedIDs(pooledIDs),
		TopK:           topK,
		InputsVersion:  inputsVersion.UnixNano(),
	}

	b, _ := json.Marshal(in)
	sum := sha256.Sum256(b)
	return "recommend:" + hex.EncodeToString(sum[:])
}

func sortedIDs(ids []uuid.UUID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	sort.Strings(out)
	return out
}

func leaderboardCacheKey(category skill.Category, limit int, version uint64) string {
	c := string(category)
	if c == "" {
		c = "global"
	}
	return fmt.Sprintf("leaderboard:%s:%d:v%d", c, limit, version)
}
