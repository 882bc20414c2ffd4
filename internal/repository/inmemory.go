package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"teamforge/internal/domain/skill"

	"github.com/google/uuid"
)

// In-memory implementations mirror the Postgres semantics closely enough for
// tests and local runs: same sentinel errors, same all-or-nothing apply.

type InMemorySkillRepository struct {
	mu     sync.RWMutex
	skills map[uuid.UUID]skill.Skill
}

func NewInMemorySkillRepository() *InMemorySkillRepository {
	return &InMemorySkillRepository{skills: make(map[uuid.UUID]skill.Skill)}
}

func (r *InMemorySkillRepository) FindAll(_ context.Context) ([]skill.Skill, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]skill.Skill, 0, len(r.skills))
	for _, s := range r.skills {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *InMemorySkillRepository) Create(_ context.Context, s skill.Skill) (skill.Skill, error) {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.skills[s.ID] = s
	return s, nil
}

type pairKey struct {
	userID  uuid.UUID
	skillID uuid.UUID
}

type InMemoryUserSkillRepository struct {
	mu      sync.Mutex
	records map[pairKey]skill.UserSkillRecord
	events  map[pairKey][]skill.EvidenceEvent
}

func NewInMemoryUserSkillRepository() *InMemoryUserSkillRepository {
	return &InMemoryUserSkillRepository{
		records: make(map[pairKey]skill.UserSkillRecord),
		events:  make(map[pairKey][]skill.EvidenceEvent),
	}
}

func (r *InMemoryUserSkillRepository) FindRecord(_ context.Context, userID, skillID uuid.UUID) (skill.UserSkillRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[pairKey{userID, skillID}]
	if !ok {
		return skill.UserSkillRecord{}, ErrRecordNotFound
	}
	return rec, nil
}

func (r *InMemoryUserSkillRepository) FindRecordsByUser(_ context.Context, userID uuid.UUID) ([]skill.UserSkillRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]skill.UserSkillRecord, 0)
	for k, rec := range r.records {
		if k.userID == userID {
			out = append(out, rec)
		}
	}
	sortRecords(out)
	return out, nil
}

func (r *InMemoryUserSkillRepository) FindAllRecords(_ context.Context) ([]skill.UserSkillRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]skill.UserSkillRecord, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, rec)
	}
	sortRecords(out)
	return out, nil
}

func sortRecords(recs []skill.UserSkillRecord) {
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].UserID != recs[j].UserID {
			return recs[i].UserID.String() < recs[j].UserID.String()
		}
		return recs[i].SkillID.String() < recs[j].SkillID.String()
	})
}

func (r *InMemoryUserSkillRepository) ListEvents(_ context.Context, userID, skillID uuid.UUID) ([]skill.EvidenceEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	evs := r.events[pairKey{userID, skillID}]
	out := make([]skill.EvidenceEvent, len(evs))
	copy(out, evs)
	return out, nil
}

func (r *InMemoryUserSkillRepository) HasProjectEvidence(_ context.Context, userID, skillID, projectID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ev := range r.events[pairKey{userID, skillID}] {
		if ev.Source == skill.SourceProjectCompletion && ev.ProjectID == projectID && ev.CreditGranted > 0 {
			return true, nil
		}
	}
	return false, nil
}

func (r *InMemoryUserSkillRepository) HasCertificateUpload(_ context.Context, userID, skillID, certificateID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ev := range r.events[pairKey{userID, skillID}] {
		if ev.Source == skill.SourceCertificateUpload && ev.CertificateID == certificateID {
			return true, nil
		}
	}
	return false, nil
}

func (r *InMemoryUserSkillRepository) HasCertificateReview(_ context.Context, userID, skillID, certificateID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ev := range r.events[pairKey{userID, skillID}] {
		if ev.Source == skill.SourceCertificateReview && ev.CertificateID == certificateID && ev.CreditGranted > 0 {
			return true, nil
		}
	}
	return false, nil
}

func (r *InMemoryUserSkillRepository) ApplyEvidence(_ context.Context, ev skill.EvidenceEvent, nextState skill.VerificationState, computeLevel ComputeLevelFunc) (skill.UserSkillRecord, error) {
	if computeLevel == nil {
		return skill.UserSkillRecord{}, fmt.Errorf("nil compute level func")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := pairKey{ev.UserID, ev.SkillID}
	rec, ok := r.records[key]
	if !ok {
		rec = skill.UserSkillRecord{
			UserID:  ev.UserID,
			SkillID: ev.SkillID,
			State:   skill.StateUnverified,
		}
	}

	rec.Credit += ev.CreditGranted
	if nextState != "" {
		rec.State = nextState
	}
	rec.Level = computeLevel(rec.Credit, rec.State)
	rec.UpdatedAt = time.Now().UTC()

	r.events[key] = append(r.events[key], ev)
	r.records[key] = rec
	return rec, nil
}

type InMemoryOpportunityRepository struct {
	mu   sync.RWMutex
	opps map[uuid.UUID]skill.Opportunity
}

func NewInMemoryOpportunityRepository() *InMemoryOpportunityRepository {
	return &InMemoryOpportunityRepository{opps: make(map[uuid.UUID]skill.Opportunity)}
}

func (r *InMemoryOpportunityRepository) FindByID(_ context.Context, id uuid.UUID) (skill.Opportunity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	opp, ok := r.opps[id]
	if !ok {
		return skill.Opportunity{}, ErrOpportunityNotFound
	}
	return opp, nil
}

func (r *InMemoryOpportunityRepository) Create(_ context.Context, opp skill.Opportunity) (skill.Opportunity, error) {
	if opp.ID == uuid.Nil {
		opp.ID = uuid.New()
	}
	if opp.CreatedAt.IsZero() {
		opp.CreatedAt = time.Now().UTC()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.opps[opp.ID] = opp
	return opp, nil
}

type InMemoryProfileRepository struct {
	mu       sync.RWMutex
	profiles map[uuid.UUID]skill.CandidateProfile
}

func NewInMemoryProfileRepository() *InMemoryProfileRepository {
	return &InMemoryProfileRepository{profiles: make(map[uuid.UUID]skill.CandidateProfile)}
}

func (r *InMemoryProfileRepository) Put(p skill.CandidateProfile) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.profiles[p.UserID] = p
}

func (r *InMemoryProfileRepository) FindProfiles(_ context.Context, userIDs []uuid.UUID) (map[uuid.UUID]skill.CandidateProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[uuid.UUID]skill.CandidateProfile, len(userIDs))
	for _, id := range userIDs {
		if p, ok := r.profiles[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}
