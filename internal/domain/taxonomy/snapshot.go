package taxonomy

import (
	"sync/atomic"

	"teamforge/internal/domain/skill"

	"github.com/google/uuid"
)

// Snapshot is an immutable view of the skill catalog. Lookups never see a
// half-loaded catalog: a reload swaps the whole snapshot at once.
type Snapshot struct {
	byID map[uuid.UUID]skill.Skill
}

func NewSnapshot(skills []skill.Skill) *Snapshot {
	byID := make(map[uuid.UUID]skill.Skill, len(skills))
	for _, s := range skills {
		if s.ID == uuid.Nil {
			continue
		}
		byID[s.ID] = s
	}
	return &Snapshot{byID: byID}
}

func (s *Snapshot) Lookup(id uuid.UUID) (skill.Skill, bool) {
	if s == nil {
		return skill.Skill{}, false
	}
	sk, ok := s.byID[id]
	return sk, ok
}

func (s *Snapshot) Contains(id uuid.UUID) bool {
	_, ok := s.Lookup(id)
	return ok
}

func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.byID)
}

// All returns the catalog entries in unspecified order.
func (s *Snapshot) All() []skill.Skill {
	if s == nil {
		return nil
	}
	out := make([]skill.Skill, 0, len(s.byID))
	for _, sk := range s.byID {
		out = append(out, sk)
	}
	return out
}

// Catalog holds the current snapshot. Reload replaces it atomically; readers
// keep whatever snapshot they grabbed until they ask again.
type Catalog struct {
	current atomic.Pointer[Snapshot]
}

func NewCatalog(initial *Snapshot) *Catalog {
	c := &Catalog{}
	if initial == nil {
		initial = NewSnapshot(nil)
	}
	c.current.Store(initial)
	return c
}

func (c *Catalog) Snapshot() *Snapshot {
	return c.current.Load()
}

func (c *Catalog) Reload(skills []skill.Skill) *Snapshot {
	snap := NewSnapshot(skills)
	c.current.Store(snap)
	return snap
}
