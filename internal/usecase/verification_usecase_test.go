package usecase

import (
	"context"
	"sync"
	"testing"

	"teamforge/internal/domain/evidence"
	"teamforge/internal/domain/leveling"
	"teamforge/internal/domain/skill"
	"teamforge/internal/domain/taxonomy"
	"teamforge/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCatalog(skills ...skill.Skill) *taxonomy.Catalog {
	return taxonomy.NewCatalog(taxonomy.NewSnapshot(skills))
}

func newVerification(t *testing.T, catalog *taxonomy.Catalog, observers ...RecordObserver) (*Verification, *repository.InMemoryUserSkillRepository) {
	t.Helper()
	repo := repository.NewInMemoryUserSkillRepository()
	v := NewVerificationUsecase(repo, catalog, evidence.DefaultPolicy(), leveling.DefaultConfig(), nil, observers...)
	return v, repo
}

func TestSubmitEvidence_UnknownSkill(t *testing.T) {
	v, _ := newVerification(t, newTestCatalog())

	_, err := v.SubmitEvidence(context.Background(), SubmitEvidenceInput{
		UserID:    uuid.New(),
		SkillID:   uuid.New(),
		Source:    skill.SourceProjectCompletion,
		ProjectID: uuid.New(),
	})
	require.ErrorIs(t, err, evidence.ErrUnknownSkill)
}

func TestSubmitEvidence_InvalidQuizScore(t *testing.T) {
	sk := skill.Skill{ID: uuid.New(), Name: "Go", Category: skill.CategoryBackend}
	v, _ := newVerification(t, newTestCatalog(sk))

	_, err := v.SubmitEvidence(context.Background(), SubmitEvidenceInput{
		UserID:    uuid.New(),
		SkillID:   sk.ID,
		Source:    skill.SourceQuizResult,
		QuizScore: 120,
	})
	require.ErrorIs(t, err, evidence.ErrInvalidEvidence)
}

func TestSubmitEvidence_QuizCreditAccumulatesEitherOrder(t *testing.T) {
	sk := skill.Skill{ID: uuid.New(), Name: "Python", Category: skill.CategoryBackend}

	for _, scores := range [][]float64{{70, 85}, {85, 70}} {
		v, _ := newVerification(t, newTestCatalog(sk))
		user := uuid.New()

		var rec skill.UserSkillRecord
		for _, score := range scores {
			var err error
			rec, err = v.SubmitEvidence(context.Background(), SubmitEvidenceInput{
				UserID:    user,
				SkillID:   sk.ID,
				Source:    skill.SourceQuizResult,
				QuizScore: score,
			})
			require.NoError(t, err)
		}

		assert.Equal(t, 75.0, rec.Credit, "scores %v", scores)
		assert.Equal(t, skill.StateVerified, rec.State)
		assert.Equal(t, 3, rec.Level)
	}
}

func TestSubmitEvidence_ProjectCompletionIdempotent(t *testing.T) {
	sk := skill.Skill{ID: uuid.New(), Name: "Docker", Category: skill.CategoryDevOps}
	v, repo := newVerification(t, newTestCatalog(sk))

	user := uuid.New()
	project := uuid.New()
	in := SubmitEvidenceInput{
		UserID:    user,
		SkillID:   sk.ID,
		Source:    skill.SourceProjectCompletion,
		ProjectID: project,
	}

	first, err := v.SubmitEvidence(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, 10.0, first.Credit)

	second, err := v.SubmitEvidence(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, 10.0, second.Credit, "duplicate completion must not double-credit")

	// Both arrivals land in the audit log even though only one paid out.
	events, err := repo.ListEvents(context.Background(), user, sk.ID)
	require.NoError(t, err)
	assert.Len(t, events, 2)

	// A different project pays again.
	in.ProjectID = uuid.New()
	third, err := v.SubmitEvidence(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, 20.0, third.Credit)
}

func TestCertificateFlow_PendingThenApproved(t *testing.T) {
	sk := skill.Skill{ID: uuid.New(), Name: "Figma", Category: skill.CategoryDesign}
	v, _ := newVerification(t, newTestCatalog(sk))

	user := uuid.New()
	cert := uuid.New()

	pending, err := v.SubmitEvidence(context.Background(), SubmitEvidenceInput{
		UserID:        user,
		SkillID:       sk.ID,
		Source:        skill.SourceCertificateUpload,
		CertificateID: cert,
	})
	require.NoError(t, err)
	assert.Equal(t, skill.StatePendingReview, pending.State)
	assert.Equal(t, 0, pending.Level, "upload alone must not change level")
	assert.Equal(t, 0.0, pending.Credit)

	approved, err := v.ApproveCertificate(context.Background(), user, sk.ID, cert)
	require.NoError(t, err)
	assert.Equal(t, skill.StateVerified, approved.State)
	assert.GreaterOrEqual(t, approved.Level, 1, "verified record levels at least 1")
}

func TestApproveCertificate_RetriedSignalPaysOnce(t *testing.T) {
	sk := skill.Skill{ID: uuid.New(), Name: "Figma", Category: skill.CategoryDesign}
	v, repo := newVerification(t, newTestCatalog(sk))

	user := uuid.New()
	cert := uuid.New()

	_, err := v.SubmitEvidence(context.Background(), SubmitEvidenceInput{
		UserID:        user,
		SkillID:       sk.ID,
		Source:        skill.SourceCertificateUpload,
		CertificateID: cert,
	})
	require.NoError(t, err)

	first, err := v.ApproveCertificate(context.Background(), user, sk.ID, cert)
	require.NoError(t, err)
	assert.Equal(t, 15.0, first.Credit)

	second, err := v.ApproveCertificate(context.Background(), user, sk.ID, cert)
	require.NoError(t, err)
	assert.Equal(t, 15.0, second.Credit, "retried approval must not pay the bonus again")
	assert.Equal(t, skill.StateVerified, second.State)

	// Both review signals stay in the log; only the first carries credit.
	events, err := repo.ListEvents(context.Background(), user, sk.ID)
	require.NoError(t, err)
	reviews := 0
	for _, ev := range events {
		if ev.Source == skill.SourceCertificateReview {
			reviews++
			if reviews > 1 {
				assert.Equal(t, 0.0, ev.CreditGranted)
			}
		}
	}
	assert.Equal(t, 2, reviews)

	replayed, err := v.ReplayCredit(context.Background(), user, sk.ID)
	require.NoError(t, err)
	assert.Equal(t, second.Credit, replayed)
}

func TestApproveCertificate_WithoutUpload(t *testing.T) {
	sk := skill.Skill{ID: uuid.New(), Name: "Figma", Category: skill.CategoryDesign}
	v, _ := newVerification(t, newTestCatalog(sk))

	_, err := v.ApproveCertificate(context.Background(), uuid.New(), sk.ID, uuid.New())
	require.ErrorIs(t, err, evidence.ErrInvalidEvidence)
}

func TestSubmitEvidence_RejectsDirectReviewSource(t *testing.T) {
	sk := skill.Skill{ID: uuid.New(), Name: "Go", Category: skill.CategoryBackend}
	v, _ := newVerification(t, newTestCatalog(sk))

	_, err := v.SubmitEvidence(context.Background(), SubmitEvidenceInput{
		UserID:        uuid.New(),
		SkillID:       sk.ID,
		Source:        skill.SourceCertificateReview,
		CertificateID: uuid.New(),
	})
	require.ErrorIs(t, err, evidence.ErrInvalidEvidence)
}

func TestGetUserSkillRecord_NotFoundVersusZeroLevel(t *testing.T) {
	sk := skill.Skill{ID: uuid.New(), Name: "Go", Category: skill.CategoryBackend}
	v, _ := newVerification(t, newTestCatalog(sk))

	user := uuid.New()
	_, err := v.GetUserSkillRecord(context.Background(), user, sk.ID)
	require.ErrorIs(t, err, ErrNotFound)

	// A low quiz score creates the record at level 0; that is not NotFound.
	_, err = v.SubmitEvidence(context.Background(), SubmitEvidenceInput{
		UserID:    user,
		SkillID:   sk.ID,
		Source:    skill.SourceQuizResult,
		QuizScore: 5,
	})
	require.NoError(t, err)

	rec, err := v.GetUserSkillRecord(context.Background(), user, sk.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, rec.Level)
}

func TestSubmitEvidence_ConcurrentNoLostUpdate(t *testing.T) {
	sk := skill.Skill{ID: uuid.New(), Name: "Go", Category: skill.CategoryBackend}
	v, repo := newVerification(t, newTestCatalog(sk))

	user := uuid.New()
	const workers = 32

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			_, err := v.SubmitEvidence(context.Background(), SubmitEvidenceInput{
				UserID:    user,
				SkillID:   sk.ID,
				Source:    skill.SourceProjectCompletion,
				ProjectID: uuid.New(),
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	rec, err := repo.FindRecord(context.Background(), user, sk.ID)
	require.NoError(t, err)
	assert.Equal(t, float64(workers)*10, rec.Credit)

	// Replaying the full log converges on the stored credit.
	replayed, err := v.ReplayCredit(context.Background(), user, sk.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.Credit, replayed)
}

func TestSubmitEvidence_NotifiesObservers(t *testing.T) {
	sk := skill.Skill{ID: uuid.New(), Name: "Go", Category: skill.CategoryBackend}
	lb := NewLeaderboardUsecase(nil, nil)
	v, _ := newVerification(t, newTestCatalog(sk), lb)

	user := uuid.New()
	_, err := v.SubmitEvidence(context.Background(), SubmitEvidenceInput{
		UserID:    user,
		SkillID:   sk.ID,
		Source:    skill.SourceQuizResult,
		QuizScore: 90,
	})
	require.NoError(t, err)

	ranked, err := lb.Rank(context.Background(), "", 10)
	require.NoError(t, err)
	require.Len(t, ranked, 1)
	assert.Equal(t, user, ranked[0].UserID)
	assert.Equal(t, 2, ranked[0].TotalScore) // 45 credit, thresholds 10 and 25 passed
	assert.Equal(t, 1, ranked[0].VerifiedCount)

	backend, err := lb.Rank(context.Background(), string(skill.CategoryBackend), 10)
	require.NoError(t, err)
	require.Len(t, backend, 1)

	_, err = lb.Rank(context.Background(), "carpentry", 10)
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestVerification_ReplayTimestampOrderIrrelevant(t *testing.T) {
	sk := skill.Skill{ID: uuid.New(), Name: "Go", Category: skill.CategoryBackend}
	v, repo := newVerification(t, newTestCatalog(sk))
	user := uuid.New()

	inputs := []SubmitEvidenceInput{
		{UserID: user, SkillID: sk.ID, Source: skill.SourceQuizResult, QuizScore: 40},
		{UserID: user, SkillID: sk.ID, Source: skill.SourceProjectCompletion, ProjectID: uuid.New()},
		{UserID: user, SkillID: sk.ID, Source: skill.SourceQuizResult, QuizScore: 90},
	}
	for _, in := range inputs {
		_, err := v.SubmitEvidence(context.Background(), in)
		require.NoError(t, err)
	}

	rec, err := repo.FindRecord(context.Background(), user, sk.ID)
	require.NoError(t, err)
	assert.Equal(t, 75.0, rec.Credit) // 20 + 10 + 45

	replayed, err := v.ReplayCredit(context.Background(), user, sk.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.Credit, replayed)
}
