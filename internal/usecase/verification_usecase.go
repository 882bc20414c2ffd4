package usecase

import (
	"context"
	"errors"
	"hash/fnv"
	"sync"
	"time"

	"teamforge/internal/domain/evidence"
	"teamforge/internal/domain/leveling"
	"teamforge/internal/domain/skill"
	"teamforge/internal/domain/taxonomy"
	"teamforge/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type SubmitEvidenceInput struct {
	UserID        uuid.UUID
	SkillID       uuid.UUID
	Source        skill.EvidenceSource
	QuizScore     float64
	ProjectID     uuid.UUID
	CertificateID uuid.UUID
}

// RecordObserver gets told after a record changes, outside the storage
// transaction. The leaderboard aggregator hangs off this.
type RecordObserver interface {
	RecordUpdated(rec skill.UserSkillRecord, category skill.Category)
}

type VerificationUsecase interface {
	SubmitEvidence(ctx context.Context, in SubmitEvidenceInput) (skill.UserSkillRecord, error)
	ApproveCertificate(ctx context.Context, userID, skillID, certificateID uuid.UUID) (skill.UserSkillRecord, error)
	GetUserSkillRecord(ctx context.Context, userID, skillID uuid.UUID) (skill.UserSkillRecord, error)
	ReplayCredit(ctx context.Context, userID, skillID uuid.UUID) (float64, error)
}

type Verification struct {
	repo      repository.UserSkillRepository
	catalog   *taxonomy.Catalog
	policy    evidence.Policy
	levels    leveling.Config
	logger    *zap.Logger
	observers []RecordObserver

	locks pairLocks
}

func NewVerificationUsecase(repo repository.UserSkillRepository, catalog *taxonomy.Catalog, policy evidence.Policy, levels leveling.Config, logger *zap.Logger, observers ...RecordObserver) *Verification {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Verification{
		repo:      repo,
		catalog:   catalog,
		policy:    policy,
		levels:    levels,
		logger:    logger,
		observers: observers,
	}
}

func (v *Verification) SubmitEvidence(ctx context.Context, in SubmitEvidenceInput) (skill.UserSkillRecord, error) {
	if in.UserID == uuid.Nil || in.SkillID == uuid.Nil {
		return skill.UserSkillRecord{}, ErrInvalidInput
	}
	if in.Source == skill.SourceCertificateReview {
		// Review outcomes arrive through ApproveCertificate, never as a
		// direct submission.
		return skill.UserSkillRecord{}, evidence.ErrInvalidEvidence
	}

	sk, ok := v.catalog.Snapshot().Lookup(in.SkillID)
	if !ok {
		return skill.UserSkillRecord{}, evidence.ErrUnknownSkill
	}

	unlock := v.locks.lock(in.UserID, in.SkillID)
	defer unlock()

	return v.apply(ctx, evidence.Submission{
		UserID:        in.UserID,
		SkillID:       in.SkillID,
		Source:        in.Source,
		QuizScore:     in.QuizScore,
		ProjectID:     in.ProjectID,
		CertificateID: in.CertificateID,
	}, sk.Category)
}

func (v *Verification) ApproveCertificate(ctx context.Context, userID, skillID, certificateID uuid.UUID) (skill.UserSkillRecord, error) {
	if userID == uuid.Nil || skillID == uuid.Nil || certificateID == uuid.Nil {
		return skill.UserSkillRecord{}, ErrInvalidInput
	}
	sk, ok := v.catalog.Snapshot().Lookup(skillID)
	if !ok {
		return skill.UserSkillRecord{}, evidence.ErrUnknownSkill
	}

	unlock := v.locks.lock(userID, skillID)
	defer unlock()

	uploaded, err := v.repo.HasCertificateUpload(ctx, userID, skillID, certificateID)
	if err != nil {
		v.logger.Error("certificate lookup failed", zap.Error(err))
		return skill.UserSkillRecord{}, ErrInternal
	}
	if !uploaded {
		return skill.UserSkillRecord{}, evidence.ErrInvalidEvidence
	}

	return v.apply(ctx, evidence.Submission{
		UserID:        userID,
		SkillID:       skillID,
		Source:        skill.SourceCertificateReview,
		CertificateID: certificateID,
	}, sk.Category)
}

// apply runs under the pair lock: dedupe check, policy evaluation, and the
// transactional append-plus-recompute.
func (v *Verification) apply(ctx context.Context, sub evidence.Submission, category skill.Category) (skill.UserSkillRecord, error) {
	current := skill.StateUnverified
	if rec, err := v.repo.FindRecord(ctx, sub.UserID, sub.SkillID); err == nil {
		current = rec.State
	} else if !errors.Is(err, repository.ErrRecordNotFound) {
		v.logger.Error("record lookup failed", zap.Error(err))
		return skill.UserSkillRecord{}, ErrInternal
	}

	duplicate := false
	switch {
	case sub.Source == skill.SourceProjectCompletion && sub.ProjectID != uuid.Nil:
		var err error
		duplicate, err = v.repo.HasProjectEvidence(ctx, sub.UserID, sub.SkillID, sub.ProjectID)
		if err != nil {
			v.logger.Error("project dedupe lookup failed", zap.Error(err))
			return skill.UserSkillRecord{}, ErrInternal
		}
	case sub.Source == skill.SourceCertificateReview && sub.CertificateID != uuid.Nil:
		// A retried review signal for the same certificate is logged but
		// never grants the bonus again.
		var err error
		duplicate, err = v.repo.HasCertificateReview(ctx, sub.UserID, sub.SkillID, sub.CertificateID)
		if err != nil {
			v.logger.Error("certificate dedupe lookup failed", zap.Error(err))
			return skill.UserSkillRecord{}, ErrInternal
		}
	}

	out, err := v.policy.Evaluate(sub, current, duplicate)
	if err != nil {
		return skill.UserSkillRecord{}, err
	}

	ev := skill.EvidenceEvent{
		ID:            uuid.New(),
		UserID:        sub.UserID,
		SkillID:       sub.SkillID,
		Source:        sub.Source,
		QuizScore:     sub.QuizScore,
		ProjectID:     sub.ProjectID,
		CertificateID: sub.CertificateID,
		CreditGranted: out.Credit,
		RecordedAt:    time.Now().UTC(),
	}

	rec, err := v.repo.ApplyEvidence(ctx, ev, out.NextState, func(credit float64, state skill.VerificationState) int {
		return leveling.ComputeLevel(v.levels, credit, state)
	})
	if err != nil {
		v.logger.Error("apply evidence failed",
			zap.String("user_id", sub.UserID.String()),
			zap.String("skill_id", sub.SkillID.String()),
			zap.Error(err))
		return skill.UserSkillRecord{}, ErrInternal
	}

	v.logger.Debug("evidence applied",
		zap.String("user_id", rec.UserID.String()),
		zap.String("skill_id", rec.SkillID.String()),
		zap.String("source", string(sub.Source)),
		zap.Float64("credit_granted", out.Credit),
		zap.Int("level", rec.Level))

	for _, obs := range v.observers {
		obs.RecordUpdated(rec, category)
	}
	return rec, nil
}

func (v *Verification) GetUserSkillRecord(ctx context.Context, userID, skillID uuid.UUID) (skill.UserSkillRecord, error) {
	if userID == uuid.Nil || skillID == uuid.Nil {
		return skill.UserSkillRecord{}, ErrInvalidInput
	}
	rec, err := v.repo.FindRecord(ctx, userID, skillID)
	if err != nil {
		if errors.Is(err, repository.ErrRecordNotFound) {
			return skill.UserSkillRecord{}, ErrNotFound
		}
		return skill.UserSkillRecord{}, ErrInternal
	}
	return rec, nil
}

// ReplayCredit re-sums the full evidence log for a pair. Auditing hook: the
// result must equal the stored record's credit.
func (v *Verification) ReplayCredit(ctx context.Context, userID, skillID uuid.UUID) (float64, error) {
	evs, err := v.repo.ListEvents(ctx, userID, skillID)
	if err != nil {
		return 0, ErrInternal
	}
	total := 0.0
	for _, ev := range evs {
		total += ev.CreditGranted
	}
	return total, nil
}

// pairLocks stripes per-(user, skill) mutexes so concurrent submissions for
// the same pair serialize without a global lock.
type pairLocks struct {
	stripes [64]sync.Mutex
}

func (p *pairLocks) lock(userID, skillID uuid.UUID) func() {
	h := fnv.New32a()
	_, _ = h.Write(userID[:])
	_, _ = h.Write(skillID[:])
	m := &p.stripes[h.Sum32()%uint32(len(p.stripes))]
	m.Lock()
	return m.Unlock
}
