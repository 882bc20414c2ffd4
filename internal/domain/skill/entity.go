package skill

import (
	"time"

	"github.com/google/uuid"
)

type Category string

const (
	CategoryFrontend Category = "frontend"
	CategoryBackend  Category = "backend"
	CategoryDevOps   Category = "devops"
	CategoryDesign   Category = "design"
	CategoryOther    Category = "other"
)

// Categories lists every category in declaration order. The order matters:
// dominant-category ties in matchmaking resolve to the earliest entry.
func Categories() []Category {
	return []Category{CategoryFrontend, CategoryBackend, CategoryDevOps, CategoryDesign, CategoryOther}
}

func ParseCategory(s string) (Category, bool) {
	switch Category(s) {
	case CategoryFrontend, CategoryBackend, CategoryDevOps, CategoryDesign, CategoryOther:
		return Category(s), true
	}
	return "", false
}

type Skill struct {
	ID        uuid.UUID
	Name      string
	Category  Category
	CreatedAt time.Time
}

type VerificationState string

const (
	StateUnverified    VerificationState = "unverified"
	StatePendingReview VerificationState = "pending_review"
	StateVerified      VerificationState = "verified"
)

// UserSkillRecord is the one row per (user, skill). Credit only ever grows;
// level is derived from credit and state, never an authority on its own.
type UserSkillRecord struct {
	UserID    uuid.UUID
	SkillID   uuid.UUID
	Credit    float64
	State     VerificationState
	Level     int
	UpdatedAt time.Time
}

type EvidenceSource string

const (
	SourceProjectCompletion EvidenceSource = "project_completion"
	SourceQuizResult        EvidenceSource = "quiz_result"
	SourceCertificateUpload EvidenceSource = "certificate_upload"
	SourceCertificateReview EvidenceSource = "certificate_review"
)

// EvidenceEvent is append-only. Corrections are new events; nothing in the
// log is ever mutated or deleted.
type EvidenceEvent struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	SkillID       uuid.UUID
	Source        EvidenceSource
	QuizScore     float64
	ProjectID     uuid.UUID
	CertificateID uuid.UUID
	CreditGranted float64
	RecordedAt    time.Time
}

type Location struct {
	Latitude   float64
	Longitude  float64
	HasCoords  bool
	RegionCode string
}

type RequiredSkill struct {
	SkillID      uuid.UUID
	MinimumLevel int
	Mandatory    bool
}

type Opportunity struct {
	ID             uuid.UUID
	Title          string
	RequiredSkills []RequiredSkill
	TeamSize       int
	Location       Location
	// TeamMix is the current composition of the team by dominant category,
	// supplied by the caller. The matching engine does not own it.
	TeamMix   map[Category]int
	CreatedAt time.Time
}

type CandidateProfile struct {
	UserID    uuid.UUID
	Location  Location
	Records   []UserSkillRecord
	Available bool
}
