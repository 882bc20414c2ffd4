package evidence

import (
	"errors"
	"fmt"
	"math"

	"teamforge/internal/domain/skill"

	"github.com/google/uuid"
)

var (
	ErrUnknownSkill    = errors.New("unknown skill")
	ErrInvalidEvidence = errors.New("invalid evidence")
	ErrInvalidPolicy   = errors.New("invalid credit policy")
)

// Policy holds the credit-conversion constants. They are product knobs, not
// engine constants, so they arrive from config rather than being baked in.
type Policy struct {
	ProjectCredit       float64
	QuizCreditPerDecile float64
	CertificateBonus    float64
	QuizPassScore       float64
}

func DefaultPolicy() Policy {
	return Policy{
		ProjectCredit:       10,
		QuizCreditPerDecile: 5,
		CertificateBonus:    15,
		QuizPassScore:       60,
	}
}

func (p Policy) Validate() error {
	if p.ProjectCredit < 0 || p.QuizCreditPerDecile < 0 || p.CertificateBonus < 0 {
		return fmt.Errorf("%w: credit constants must be non-negative", ErrInvalidPolicy)
	}
	if p.QuizPassScore < 0 || p.QuizPassScore > 100 {
		return fmt.Errorf("%w: quiz pass score must be within [0,100]", ErrInvalidPolicy)
	}
	return nil
}

// Submission is one evidence arrival before it is recorded.
type Submission struct {
	UserID        uuid.UUID
	SkillID       uuid.UUID
	Source        skill.EvidenceSource
	QuizScore     float64
	ProjectID     uuid.UUID
	CertificateID uuid.UUID
}

// Outcome is the effect a single submission has on a record: how much credit
// it grants and the verification state the record moves to.
type Outcome struct {
	Credit    float64
	NextState skill.VerificationState
}

// Evaluate converts one submission into credit and a state transition.
// duplicate marks evidence already seen for its dedupe key: a project
// completion for the same (user, skill, project) triple, or a review
// approval for the same certificate. The event is still logged but grants
// nothing. Pure: same inputs always produce the same outcome.
func (p Policy) Evaluate(sub Submission, current skill.VerificationState, duplicate bool) (Outcome, error) {
	if sub.UserID == uuid.Nil || sub.SkillID == uuid.Nil {
		return Outcome{}, fmt.Errorf("%w: missing user or skill id", ErrInvalidEvidence)
	}
	if current == "" {
		current = skill.StateUnverified
	}

	switch sub.Source {
	case skill.SourceProjectCompletion:
		if sub.ProjectID == uuid.Nil {
			return Outcome{}, fmt.Errorf("%w: project completion without project id", ErrInvalidEvidence)
		}
		credit := p.ProjectCredit
		if duplicate {
			credit = 0
		}
		return Outcome{Credit: credit, NextState: current}, nil

	case skill.SourceQuizResult:
		if sub.QuizScore < 0 || sub.QuizScore > 100 {
			return Outcome{}, fmt.Errorf("%w: quiz score %v outside [0,100]", ErrInvalidEvidence, sub.QuizScore)
		}
		credit := math.Floor(sub.QuizScore/10) * p.QuizCreditPerDecile
		next := current
		if sub.QuizScore >= p.QuizPassScore {
			next = skill.StateVerified
		}
		return Outcome{Credit: credit, NextState: next}, nil

	case skill.SourceCertificateUpload:
		if sub.CertificateID == uuid.Nil {
			return Outcome{}, fmt.Errorf("%w: certificate upload without certificate id", ErrInvalidEvidence)
		}
		next := current
		if current != skill.StateVerified {
			next = skill.StatePendingReview
		}
		return Outcome{Credit: 0, NextState: next}, nil

	case skill.SourceCertificateReview:
		if sub.CertificateID == uuid.Nil {
			return Outcome{}, fmt.Errorf("%w: certificate review without certificate id", ErrInvalidEvidence)
		}
		credit := p.CertificateBonus
		if duplicate {
			credit = 0
		}
		return Outcome{Credit: credit, NextState: skill.StateVerified}, nil
	}

	return Outcome{}, fmt.Errorf("%w: unknown source %q", ErrInvalidEvidence, sub.Source)
}
