package matching

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"sort"

	"teamforge/internal/domain/skill"

	"github.com/google/uuid"
)

var ErrInvalidWeights = errors.New("matchmaking weights must be non-negative and sum to 1")

const weightSumTolerance = 1e-9

// Weights combines the three sub-scores. Each sub-score is already in [0,1],
// so the combined score stays in [0,1] as long as the weights sum to 1.
type Weights struct {
	Skill           float64
	Location        float64
	Complementarity float64
}

func DefaultWeights() Weights {
	return Weights{Skill: 0.5, Location: 0.3, Complementarity: 0.2}
}

func (w Weights) Validate() error {
	if w.Skill < 0 || w.Location < 0 || w.Complementarity < 0 {
		return fmt.Errorf("%w: negative weight", ErrInvalidWeights)
	}
	sum := w.Skill + w.Location + w.Complementarity
	if math.Abs(sum-1) > weightSumTolerance {
		return fmt.Errorf("%w: sum %v", ErrInvalidWeights, sum)
	}
	return nil
}

type Config struct {
	Weights Weights
	// LocationDecayKm is D0 in 1/(1 + km/D0).
	LocationDecayKm float64
}

func DefaultConfig() Config {
	return Config{Weights: DefaultWeights(), LocationDecayKm: 50}
}

func (c Config) Validate() error {
	if err := c.Weights.Validate(); err != nil {
		return err
	}
	if c.LocationDecayKm <= 0 {
		return fmt.Errorf("%w: location decay must be positive", ErrInvalidWeights)
	}
	return nil
}

type CandidateSkill struct {
	SkillID  uuid.UUID
	Category skill.Category
	Level    int
	Verified bool
}

type Candidate struct {
	ID       uuid.UUID
	Location skill.Location
	Skills   []CandidateSkill
}

type MissingSkill struct {
	SkillID   uuid.UUID
	Mandatory bool
}

// Factors is the per-factor breakdown returned with every score, so callers
// can show why a candidate was matched. Values survive even when a missing
// mandatory skill zeroes the combined score.
type Factors struct {
	SkillOverlap     float64
	Location         float64
	Complementarity  float64
	MandatoryMissing bool
	MissingSkills    []MissingSkill
}

type MatchScore struct {
	CandidateID uuid.UUID
	Score       float64
	Factors     Factors
}

const neutralScore = 0.5

// Score rates one (candidate, opportunity) pair. Pure and deterministic:
// identical inputs always produce identical output.
func Score(cfg Config, opp skill.Opportunity, cand Candidate) MatchScore {
	overlap, mandatoryMissing, missing := skillOverlapScore(opp.RequiredSkills, cand.Skills)
	loc := locationScore(cfg, opp.Location, cand.Location)
	comp := complementarityScore(opp.TeamMix, cand.Skills)

	combined := cfg.Weights.Skill*overlap + cfg.Weights.Location*loc + cfg.Weights.Complementarity*comp
	if mandatoryMissing {
		combined = 0
	}
	combined = clamp01(combined)

	return MatchScore{
		CandidateID: cand.ID,
		Score:       combined,
		Factors: Factors{
			SkillOverlap:     overlap,
			Location:         loc,
			Complementarity:  comp,
			MandatoryMissing: mandatoryMissing,
			MissingSkills:    missing,
		},
	}
}

// Rank scores the pool and returns the top K in descending score order;
// ties resolve by candidate id ascending. topK <= 0 returns the full pool.
func Rank(cfg Config, opp skill.Opportunity, pool []Candidate, topK int) []MatchScore {
	out := make([]MatchScore, 0, len(pool))
	for _, cand := range pool {
		if cand.ID == uuid.Nil {
			continue
		}
		out = append(out, Score(cfg, opp, cand))
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return bytes.Compare(out[i].CandidateID[:], out[j].CandidateID[:]) < 0
	})

	if topK > 0 && topK < len(out) {
		out = out[:topK]
	}
	return out
}

// skillOverlapScore averages min(level/required, 1) over the required set.
// A missing skill contributes 0; a missing mandatory skill additionally
// disqualifies the candidate.
func skillOverlapScore(reqs []skill.RequiredSkill, skills []CandidateSkill) (float64, bool, []MissingSkill) {
	levels := make(map[uuid.UUID]int, len(skills))
	for _, cs := range skills {
		if cs.SkillID == uuid.Nil {
			continue
		}
		levels[cs.SkillID] = cs.Level
	}

	counted := 0
	sum := 0.0
	mandatoryMissing := false
	missing := make([]MissingSkill, 0)

	for _, r := range reqs {
		if r.SkillID == uuid.Nil {
			continue
		}
		counted++

		required := r.MinimumLevel
		if required < 1 {
			required = 1
		}

		lvl := levels[r.SkillID]
		if lvl <= 0 {
			missing = append(missing, MissingSkill{SkillID: r.SkillID, Mandatory: r.Mandatory})
			if r.Mandatory {
				mandatoryMissing = true
			}
			continue
		}
		ratio := float64(lvl) / float64(required)
		if ratio > 1 {
			ratio = 1
		}
		sum += ratio
	}

	if counted == 0 {
		return neutralScore, false, missing
	}
	return sum / float64(counted), mandatoryMissing, missing
}

// locationScore decays with distance when both sides carry coordinates and
// falls back to region codes, then to a neutral midpoint, so remote-friendly
// candidates are not penalized for an absent location.
func locationScore(cfg Config, a, b skill.Location) float64 {
	if a.HasCoords && b.HasCoords {
		km := haversineKm(a.Latitude, a.Longitude, b.Latitude, b.Longitude)
		return 1 / (1 + km/cfg.LocationDecayKm)
	}
	if a.RegionCode != "" && b.RegionCode != "" {
		if a.RegionCode == b.RegionCode {
			return 1
		}
		return neutralScore
	}
	return neutralScore
}

// complementarityScore rewards a dominant category that the team still
// lacks. Over-represented categories are dampened, never zeroed.
func complementarityScore(mix map[skill.Category]int, skills []CandidateSkill) float64 {
	dom, ok := dominantCategory(skills)
	if !ok {
		return neutralScore
	}

	total := 0
	for _, n := range mix {
		if n > 0 {
			total += n
		}
	}
	if total <= 0 {
		return neutralScore
	}

	share := float64(mix[dom]) / float64(total)
	score := 1 - share
	if score < 0.25 {
		score = 0.25
	}
	return score
}

// dominantCategory is the category with the highest aggregate level; ties
// resolve in Categories() declaration order so output is deterministic.
func dominantCategory(skills []CandidateSkill) (skill.Category, bool) {
	totals := make(map[skill.Category]int)
	for _, cs := range skills {
		if cs.Level > 0 {
			totals[cs.Category] += cs.Level
		}
	}

	best := skill.Category("")
	bestTotal := 0
	for _, c := range skill.Categories() {
		if totals[c] > bestTotal {
			best = c
			bestTotal = totals[c]
		}
	}
	if best == "" {
		return "", false
	}
	return best, true
}

const earthRadiusKm = 6371.0

func haversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	rad := func(deg float64) float64 { return deg * math.Pi / 180 }

	dLat := rad(lat2 - lat1)
	dLon := rad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rad(lat1))*math.Cos(rad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Min(1, math.Sqrt(a)))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
