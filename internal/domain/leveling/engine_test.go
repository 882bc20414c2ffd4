package leveling

import (
	"testing"

	"teamforge/internal/domain/skill"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeLevel_Thresholds(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		name   string
		credit float64
		state  skill.VerificationState
		want   int
	}{
		{name: "zero credit", credit: 0, state: skill.StateUnverified, want: 0},
		{name: "just below first threshold", credit: 9.99, state: skill.StateUnverified, want: 0},
		{name: "exactly first threshold", credit: 10, state: skill.StateUnverified, want: 1},
		{name: "mid table", credit: 60, state: skill.StateUnverified, want: 3},
		{name: "top of table", credit: 200, state: skill.StateUnverified, want: 5},
		{name: "beyond table", credit: 5000, state: skill.StateUnverified, want: 5},
		{name: "negative credit clamps to zero", credit: -3, state: skill.StateUnverified, want: 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ComputeLevel(cfg, tc.credit, tc.state)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestComputeLevel_VerifiedFloor(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 1, ComputeLevel(cfg, 0, skill.StateVerified))
	assert.Equal(t, 0, ComputeLevel(cfg, 0, skill.StatePendingReview))
	assert.Equal(t, 0, ComputeLevel(cfg, 0, skill.StateUnverified))

	// Floor never pulls an earned level down.
	assert.Equal(t, 3, ComputeLevel(cfg, 60, skill.StateVerified))
}

func TestComputeLevel_MonotonicInCredit(t *testing.T) {
	cfg := DefaultConfig()

	for _, state := range []skill.VerificationState{skill.StateUnverified, skill.StatePendingReview, skill.StateVerified} {
		prev := -1
		for credit := 0.0; credit <= 260; credit += 2.5 {
			lvl := ComputeLevel(cfg, credit, state)
			require.GreaterOrEqual(t, lvl, prev, "level regressed at credit=%v state=%s", credit, state)
			prev = lvl
		}
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "default", cfg: DefaultConfig(), wantErr: false},
		{name: "empty table", cfg: Config{Thresholds: nil}, wantErr: true},
		{name: "not increasing", cfg: Config{Thresholds: []float64{10, 10, 20}}, wantErr: true},
		{name: "decreasing", cfg: Config{Thresholds: []float64{20, 10}}, wantErr: true},
		{name: "non positive start", cfg: Config{Thresholds: []float64{0, 10}}, wantErr: true},
		{name: "negative floor", cfg: Config{Thresholds: []float64{10}, VerifiedFloor: -1}, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.wantErr {
				require.ErrorIs(t, err, ErrInvalidThresholds)
				return
			}
			require.NoError(t, err)
		})
	}
}
