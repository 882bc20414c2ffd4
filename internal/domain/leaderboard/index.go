package leaderboard

import (
	"bytes"
	"sync"

	"teamforge/internal/domain/skill"

	"github.com/google/btree"
	"github.com/google/uuid"
)

// Entry is one leaderboard row. Ordering is total: score desc, verified
// skill count desc, user id asc — two distinct users never compare equal,
// so repeated reads never reshuffle ties.
type Entry struct {
	UserID        uuid.UUID
	TotalScore    int
	VerifiedCount int
}

func rankLess(a, b Entry) bool {
	if a.TotalScore != b.TotalScore {
		return a.TotalScore > b.TotalScore
	}
	if a.VerifiedCount != b.VerifiedCount {
		return a.VerifiedCount > b.VerifiedCount
	}
	return bytes.Compare(a.UserID[:], b.UserID[:]) < 0
}

const btreeDegree = 32

// Index keeps entries in rank order. Upsert is O(log n); TopK walks K items.
type Index struct {
	tree   *btree.BTreeG[Entry]
	byUser map[uuid.UUID]Entry
}

func NewIndex() *Index {
	return &Index{
		tree:   btree.NewG(btreeDegree, rankLess),
		byUser: make(map[uuid.UUID]Entry),
	}
}

func (i *Index) Upsert(e Entry) {
	if prev, ok := i.byUser[e.UserID]; ok {
		i.tree.Delete(prev)
	}
	i.tree.ReplaceOrInsert(e)
	i.byUser[e.UserID] = e
}

func (i *Index) Remove(userID uuid.UUID) {
	prev, ok := i.byUser[userID]
	if !ok {
		return
	}
	i.tree.Delete(prev)
	delete(i.byUser, userID)
}

func (i *Index) Len() int {
	return i.tree.Len()
}

// TopK returns the first k entries in rank order; k <= 0 returns everything.
func (i *Index) TopK(k int) []Entry {
	if k <= 0 || k > i.tree.Len() {
		k = i.tree.Len()
	}
	out := make([]Entry, 0, k)
	i.tree.Ascend(func(e Entry) bool {
		out = append(out, e)
		return len(out) < k
	})
	return out
}

type skillStanding struct {
	category skill.Category
	level    int
	verified bool
}

// Aggregator reduces per-skill levels into per-category and global rankings.
// A single record update touches only that user's totals and the affected
// indexes, never the whole population.
type Aggregator struct {
	mu         sync.RWMutex
	global     *Index
	byCategory map[skill.Category]*Index
	users      map[uuid.UUID]map[uuid.UUID]skillStanding
}

func NewAggregator() *Aggregator {
	byCat := make(map[skill.Category]*Index, len(skill.Categories()))
	for _, c := range skill.Categories() {
		byCat[c] = NewIndex()
	}
	return &Aggregator{
		global:     NewIndex(),
		byCategory: byCat,
		users:      make(map[uuid.UUID]map[uuid.UUID]skillStanding),
	}
}

// Apply records the current level of one (user, skill) and refreshes the
// affected rankings.
func (a *Aggregator) Apply(userID, skillID uuid.UUID, category skill.Category, level int, verified bool) {
	if userID == uuid.Nil || skillID == uuid.Nil {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	standings, ok := a.users[userID]
	if !ok {
		standings = make(map[uuid.UUID]skillStanding)
		a.users[userID] = standings
	}
	prev, had := standings[skillID]
	standings[skillID] = skillStanding{category: category, level: level, verified: verified}

	a.refreshUser(userID, standings, "")
	a.refreshUser(userID, standings, category)
	if had && prev.category != category {
		a.refreshUser(userID, standings, prev.category)
	}
}

// refreshUser recomputes one user's entry for the global index (empty
// category) or a category index.
func (a *Aggregator) refreshUser(userID uuid.UUID, standings map[uuid.UUID]skillStanding, category skill.Category) {
	total := 0
	verified := 0
	for _, st := range standings {
		if category != "" && st.category != category {
			continue
		}
		total += st.level
		if st.verified {
			verified++
		}
	}

	idx := a.global
	if category != "" {
		var ok bool
		idx, ok = a.byCategory[category]
		if !ok {
			return
		}
	}
	idx.Upsert(Entry{UserID: userID, TotalScore: total, VerifiedCount: verified})
}

// Rank returns the top limit entries for a category, or globally when the
// category is empty. limit <= 0 returns the full ranking.
func (a *Aggregator) Rank(category skill.Category, limit int) []Entry {
	a.mu.RLock()
	defer a.mu.RUnlock()

	idx := a.global
	if category != "" {
		var ok bool
		idx, ok = a.byCategory[category]
		if !ok {
			return nil
		}
	}
	return idx.TopK(limit)
}
