package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"teamforge/internal/config"
	"teamforge/internal/delivery/http/handler"
	"teamforge/internal/delivery/http/middleware"
	"teamforge/internal/delivery/http/routes"
	"teamforge/internal/domain/taxonomy"
	"teamforge/internal/repository"
	"teamforge/internal/usecase"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type semanticResponse struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type skillData struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Category string    `json:"category"`
}

type recordData struct {
	UserID  uuid.UUID `json:"user_id"`
	SkillID uuid.UUID `json:"skill_id"`
	Credit  float64   `json:"credit"`
	State   string    `json:"state"`
	Level   int       `json:"level"`
}

type rankedData struct {
	UserID        uuid.UUID `json:"user_id"`
	TotalScore    int       `json:"total_score"`
	VerifiedCount int       `json:"verified_count"`
}

type scoreData struct {
	CandidateID uuid.UUID `json:"candidate_id"`
	Score       float64   `json:"score"`
	Factors     struct {
		SkillOverlap     float64 `json:"skill_overlap"`
		MandatoryMissing bool    `json:"mandatory_missing"`
	} `json:"factors"`
}

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()

	tuning := config.DefaultTuning()
	catalog := taxonomy.NewCatalog(nil)
	skills := repository.NewInMemorySkillRepository()
	records := repository.NewInMemoryUserSkillRepository()
	opps := repository.NewInMemoryOpportunityRepository()
	profiles := repository.NewInMemoryProfileRepository()

	taxonomyUC := usecase.NewTaxonomyUsecase(skills, catalog, nil)
	require.NoError(t, taxonomyUC.Reload(context.Background()))

	lb := usecase.NewLeaderboardUsecase(nil, nil)
	verification := usecase.NewVerificationUsecase(records, catalog, tuning.Policy, tuning.Leveling, nil, lb)
	recommend, err := usecase.NewRecommendUsecase(records, profiles, opps, catalog, tuning.Matching, nil, nil)
	require.NoError(t, err)

	app := fiber.New(fiber.Config{})
	app.Use(middleware.NewErrorMiddleware(nil).Middleware())

	routes.NewRegistry(
		handler.NewSkillHandler(taxonomyUC),
		handler.NewEvidenceHandler(verification),
		handler.NewLeaderboardHandler(lb),
		handler.NewRecommendHandler(recommend, opps),
	).Register(app)

	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body any, out any) int {
	t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var env semanticResponse
	require.NoError(t, json.Unmarshal(raw, &env), "body: %s", raw)
	if out != nil && len(env.Data) > 0 && string(env.Data) != "null" {
		require.NoError(t, json.Unmarshal(env.Data, out), "data: %s", env.Data)
	}
	return resp.StatusCode
}

func TestIntegration_EvidenceLeaderboardRecommendation(t *testing.T) {
	app := newTestApp(t)

	var goSkill skillData
	status := doJSON(t, app, http.MethodPost, "/api/v1/skills/", map[string]string{
		"name": "Go", "category": "backend",
	}, &goSkill)
	require.Equal(t, http.StatusOK, status)
	require.NotEqual(t, uuid.Nil, goSkill.ID)

	var figma skillData
	status = doJSON(t, app, http.MethodPost, "/api/v1/skills/", map[string]string{
		"name": "Figma", "category": "design",
	}, &figma)
	require.Equal(t, http.StatusOK, status)

	alice := uuid.New()
	bob := uuid.New()

	// Alice passes a quiz on Go, which verifies the skill immediately.
	var aliceRec recordData
	status = doJSON(t, app, http.MethodPost, "/api/v1/evidence/", map[string]any{
		"user_id": alice, "skill_id": goSkill.ID, "source": "quiz_result", "quiz_score": 90,
	}, &aliceRec)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "verified", aliceRec.State)
	require.InDelta(t, 45.0, aliceRec.Credit, 1e-9)
	require.Equal(t, 2, aliceRec.Level)

	// Bob only dabbles in design.
	status = doJSON(t, app, http.MethodPost, "/api/v1/evidence/", map[string]any{
		"user_id": bob, "skill_id": figma.ID, "source": "project_completion", "project_id": uuid.New(),
	}, nil)
	require.Equal(t, http.StatusOK, status)

	var fetched recordData
	status = doJSON(t, app, http.MethodGet,
		fmt.Sprintf("/api/v1/users/%s/skills/%s", alice, goSkill.ID), nil, &fetched)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, aliceRec.Credit, fetched.Credit)

	// Evidence against an unknown skill is rejected.
	status = doJSON(t, app, http.MethodPost, "/api/v1/evidence/", map[string]any{
		"user_id": alice, "skill_id": uuid.New(), "source": "quiz_result", "quiz_score": 80,
	}, nil)
	require.Equal(t, http.StatusNotFound, status)

	var ranked []rankedData
	status = doJSON(t, app, http.MethodGet, "/api/v1/leaderboard", nil, &ranked)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, ranked, 2)
	require.Equal(t, alice, ranked[0].UserID)
	require.Equal(t, 2, ranked[0].TotalScore)
	require.Equal(t, 1, ranked[0].VerifiedCount)

	var backendOnly []rankedData
	status = doJSON(t, app, http.MethodGet, "/api/v1/leaderboard?category=backend", nil, &backendOnly)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, backendOnly, 1)
	require.Equal(t, alice, backendOnly[0].UserID)

	var created struct {
		ID uuid.UUID `json:"id"`
	}
	status = doJSON(t, app, http.MethodPost, "/api/v1/opportunities/", map[string]any{
		"title":     "Hackathon team",
		"team_size": 4,
		"required_skills": []map[string]any{
			{"skill_id": goSkill.ID, "minimum_level": 2, "mandatory": true},
		},
	}, &created)
	require.Equal(t, http.StatusOK, status)
	require.NotEqual(t, uuid.Nil, created.ID)

	var scores []scoreData
	status = doJSON(t, app, http.MethodPost,
		fmt.Sprintf("/api/v1/opportunities/%s/recommendations", created.ID), map[string]any{
			"candidate_ids": []uuid.UUID{alice, bob},
		}, &scores)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, scores, 2)

	require.Equal(t, alice, scores[0].CandidateID)
	require.InDelta(t, 1.0, scores[0].Factors.SkillOverlap, 1e-9)
	require.False(t, scores[0].Factors.MandatoryMissing)
	require.Greater(t, scores[0].Score, scores[1].Score)

	require.Equal(t, bob, scores[1].CandidateID)
	require.True(t, scores[1].Factors.MandatoryMissing)
	require.Zero(t, scores[1].Score)

	status = doJSON(t, app, http.MethodPost,
		fmt.Sprintf("/api/v1/opportunities/%s/recommendations", uuid.New()), map[string]any{
			"candidate_ids": []uuid.UUID{alice},
		}, nil)
	require.Equal(t, http.StatusNotFound, status)
}
