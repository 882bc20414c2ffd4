package config

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"teamforge/internal/domain/evidence"
	"teamforge/internal/domain/leveling"
	"teamforge/internal/domain/matching"

	"github.com/spf13/viper"
)

// Tuning bundles the product knobs the engines run on: credit constants,
// level thresholds, and matchmaking weights. A broken tuning file fails the
// process at startup, never silently falls back mid-request.
type Tuning struct {
	Policy   evidence.Policy
	Leveling leveling.Config
	Matching matching.Config
}

func DefaultTuning() Tuning {
	return Tuning{
		Policy:   evidence.DefaultPolicy(),
		Leveling: leveling.DefaultConfig(),
		Matching: matching.DefaultConfig(),
	}
}

func (t Tuning) Validate() error {
	if err := t.Policy.Validate(); err != nil {
		return err
	}
	if err := t.Leveling.Validate(); err != nil {
		return err
	}
	return t.Matching.Validate()
}

// LoadTuning reads the tuning file (YAML) when a path is given, layering it
// over the defaults. Environment variables prefixed with TEAMFORGE_ override
// both, e.g. TEAMFORGE_MATCHING_WEIGHT_SKILL.
func LoadTuning(path string) (Tuning, error) {
	def := DefaultTuning()

	v := viper.New()
	v.SetDefault("credit.project", def.Policy.ProjectCredit)
	v.SetDefault("credit.quiz_per_decile", def.Policy.QuizCreditPerDecile)
	v.SetDefault("credit.certificate_bonus", def.Policy.CertificateBonus)
	v.SetDefault("credit.quiz_pass_score", def.Policy.QuizPassScore)
	v.SetDefault("leveling.thresholds", def.Leveling.Thresholds)
	v.SetDefault("leveling.verified_floor", def.Leveling.VerifiedFloor)
	v.SetDefault("matching.weight.skill", def.Matching.Weights.Skill)
	v.SetDefault("matching.weight.location", def.Matching.Weights.Location)
	v.SetDefault("matching.weight.complementarity", def.Matching.Weights.Complementarity)
	v.SetDefault("matching.location_decay_km", def.Matching.LocationDecayKm)

	v.SetEnvPrefix("TEAMFORGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if strings.TrimSpace(path) != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if _, statErr := os.Stat(path); statErr != nil {
				return Tuning{}, errors.Join(err, statErr)
			}
			return Tuning{}, err
		}
	}

	t := Tuning{
		Policy: evidence.Policy{
			ProjectCredit:       v.GetFloat64("credit.project"),
			QuizCreditPerDecile: v.GetFloat64("credit.quiz_per_decile"),
			CertificateBonus:    v.GetFloat64("credit.certificate_bonus"),
			QuizPassScore:       v.GetFloat64("credit.quiz_pass_score"),
		},
		Leveling: leveling.Config{
			Thresholds:    floats(v.GetStringSlice("leveling.thresholds"), def.Leveling.Thresholds),
			VerifiedFloor: v.GetInt("leveling.verified_floor"),
		},
		Matching: matching.Config{
			Weights: matching.Weights{
				Skill:           v.GetFloat64("matching.weight.skill"),
				Location:        v.GetFloat64("matching.weight.location"),
				Complementarity: v.GetFloat64("matching.weight.complementarity"),
			},
			LocationDecayKm: v.GetFloat64("matching.location_decay_km"),
		},
	}

	if err := t.Validate(); err != nil {
		return Tuning{}, err
	}
	return t, nil
}

func floats(raw []string, fallback []float64) []float64 {
	if len(raw) == 0 {
		return fallback
	}
	out := make([]float64, 0, len(raw))
	for _, s := range raw {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return fallback
		}
		out = append(out, f)
	}
	return out
}
