package leveling

import (
	"errors"
	"fmt"

	"teamforge/internal/domain/skill"
)

var ErrInvalidThresholds = errors.New("level thresholds must be positive and strictly increasing")

// Config is the tunable step function turning accumulated credit into a
// discrete level. Thresholds are credit amounts; level = count of thresholds
// at or below the accumulated credit. A verified record never reports below
// VerifiedFloor.
type Config struct {
	Thresholds    []float64
	VerifiedFloor int
}

func DefaultConfig() Config {
	return Config{
		Thresholds:    []float64{10, 25, 50, 100, 200},
		VerifiedFloor: 1,
	}
}

func (c Config) Validate() error {
	if len(c.Thresholds) == 0 {
		return fmt.Errorf("%w: empty table", ErrInvalidThresholds)
	}
	prev := 0.0
	for i, t := range c.Thresholds {
		if t <= prev {
			return fmt.Errorf("%w: threshold[%d]=%v", ErrInvalidThresholds, i, t)
		}
		prev = t
	}
	if c.VerifiedFloor < 0 {
		return fmt.Errorf("%w: negative verified floor", ErrInvalidThresholds)
	}
	return nil
}

// ComputeLevel is a pure function of (credit, state). Replaying a full
// evidence log or applying a single increment must land on the same level.
func ComputeLevel(cfg Config, credit float64, state skill.VerificationState) int {
	if credit < 0 {
		credit = 0
	}

	level := 0
	for _, t := range cfg.Thresholds {
		if credit >= t {
			level++
			continue
		}
		break
	}

	if state == skill.StateVerified && level < cfg.VerifiedFloor {
		level = cfg.VerifiedFloor
	}
	return level
}

// MaxLevel is the top of the configured table, used by callers that need to
// normalize levels into a fixed range.
func (c Config) MaxLevel() int {
	return len(c.Thresholds)
}
