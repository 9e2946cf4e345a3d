package httpadapter

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"caseguard/internal/adapters/memory"
	"caseguard/internal/domain"
	enfsvc "caseguard/internal/services/enforcement"
	issuesvc "caseguard/internal/services/issues"
	"caseguard/internal/testfix"
)

// newTestServer wires the real services over the in-memory store, same shape
// as cmd/server.
func newTestServer(store *memory.Store) http.Handler {
	clock := clockwork.NewFakeClockAt(testfix.Now)
	log := zerolog.Nop()
	srv := New(issuesvc.New(store, clock, log), enfsvc.New(store, clock, log), log)
	return srv.Routes()
}

func doJSON(t *testing.T, h http.Handler, method, path string, userID uuid.UUID, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	if userID != uuid.Nil {
		req.Header.Set("X-User-ID", userID.String())
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	rec := doJSON(t, newTestServer(memory.New()), http.MethodGet, "/healthz", uuid.Nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMissingIdentityIsUnauthorized(t *testing.T) {
	h := newTestServer(memory.New())
	for _, path := range []string{"/issues", "/case/enforcement?action=generate_pack", "/overrides"} {
		rec := doJSON(t, h, http.MethodGet, path, uuid.Nil, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}

func TestCreateAndGetIssue(t *testing.T) {
	store := memory.New()
	h := newTestServer(store)
	userID := uuid.New()

	rec := doJSON(t, h, http.MethodPost, "/issues", userID,
		`{"title": "Gas leak smell in kitchen"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created struct {
		ID       uuid.UUID       `json:"id"`
		Severity domain.Severity `json:"severity"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, domain.SeverityUrgent, created.Severity)

	rec = doJSON(t, h, http.MethodGet, "/issues/"+created.ID.String(), userID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got struct {
		Health domain.CaseHealth `json:"health"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, domain.HealthAtRisk, got.Health.Status)
}

func TestGetIssueNotFound(t *testing.T) {
	rec := doJSON(t, newTestServer(memory.New()), http.MethodGet, "/issues/"+uuid.NewString(), uuid.New(), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEnforcementCheck(t *testing.T) {
	store := memory.New()
	userID := uuid.New()
	issue := testfix.SeedIssue(store, userID, 0, 0)
	h := newTestServer(store)

	rec := doJSON(t, h, http.MethodGet, "/issues/"+issue.ID.String()+"/enforcement?action=close_issue", userID, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var result domain.EnforcementResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, domain.LevelHardBlocked, result.Level)
	assert.False(t, result.Allowed)
	assert.Equal(t, 40, result.Context.HealthScore)
	assert.Empty(t, result.Message.ConfirmLabel)
}

func TestEnforcementCheckUnknownAction(t *testing.T) {
	store := memory.New()
	userID := uuid.New()
	issue := testfix.SeedIssue(store, userID, 0, 0)
	h := newTestServer(store)

	rec := doJSON(t, h, http.MethodGet, "/issues/"+issue.ID.String()+"/enforcement?action=archive_case", userID, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIssueActionBlockedReturnsDecision(t *testing.T) {
	store := memory.New()
	userID := uuid.New()
	issue := testfix.SeedIssue(store, userID, 0, 0)
	h := newTestServer(store)

	rec := doJSON(t, h, http.MethodPost, "/issues/"+issue.ID.String()+"/actions", userID,
		`{"action": "close_issue"}`)
	require.Equal(t, http.StatusForbidden, rec.Code)

	var resp struct {
		Executed bool                     `json:"executed"`
		Result   domain.EnforcementResult `json:"result"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Executed)
	assert.Equal(t, domain.LevelHardBlocked, resp.Result.Level)
	assert.NotEmpty(t, resp.Result.Message.Title)
	assert.Equal(t, domain.StatusOpen, store.Issues[issue.ID].Status)
}

func TestIssueActionOverrideFlow(t *testing.T) {
	store := memory.New()
	userID := uuid.New()
	store.Plans[userID] = domain.PlanPro
	issue := testfix.SeedIssue(store, userID, 0, 0)
	h := newTestServer(store)

	rec := doJSON(t, h, http.MethodPost, "/issues/"+issue.ID.String()+"/actions", userID,
		`{"action": "close_issue", "reason": "resolved verbally"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Executed   bool       `json:"executed"`
		OverrideID *uuid.UUID `json:"override_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Executed)
	require.NotNil(t, resp.OverrideID)
	assert.Equal(t, domain.StatusClosed, store.Issues[issue.ID].Status)

	rec = doJSON(t, h, http.MethodGet, "/overrides?limit=5", userID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var history []struct {
		Action domain.Action           `json:"action"`
		Level  domain.EnforcementLevel `json:"enforcement_level"`
		Reason string                  `json:"reason"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	require.Len(t, history, 1)
	assert.Equal(t, domain.ActionCloseIssue, history[0].Action)
	assert.Equal(t, domain.LevelSoftBlocked, history[0].Level)
	assert.Equal(t, "resolved verbally", history[0].Reason)
}

func TestGeneratePack(t *testing.T) {
	store := memory.New()
	userID := uuid.New()
	testfix.SeedIssue(store, userID, 3, 2)
	h := newTestServer(store)

	rec := doJSON(t, h, http.MethodPost, "/packs", userID, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Executed bool       `json:"executed"`
		PackID   *uuid.UUID `json:"pack_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Executed)
	assert.NotNil(t, resp.PackID)
	require.Len(t, store.Packs, 1)
}

func TestAddEvidenceUnknownTypeIsBadRequest(t *testing.T) {
	store := memory.New()
	userID := uuid.New()
	issue := testfix.SeedIssue(store, userID, 0, 0)
	h := newTestServer(store)

	rec := doJSON(t, h, http.MethodPost, "/issues/"+issue.ID.String()+"/evidence", userID,
		`{"type": "hologram", "occurred_at": "2026-08-20T00:00:00Z"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, store.Evidence)
}

func TestAddCommsUnknownDirectionIsBadRequest(t *testing.T) {
	store := memory.New()
	userID := uuid.New()
	issue := testfix.SeedIssue(store, userID, 0, 0)
	h := newTestServer(store)

	rec := doJSON(t, h, http.MethodPost, "/issues/"+issue.ID.String()+"/comms", userID,
		`{"direction": "sideways", "occurred_at": "2026-08-20T00:00:00Z"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, store.Comms)
}

func TestOverrideHistoryLimitClamped(t *testing.T) {
	store := memory.New()
	userID := uuid.New()
	for i := 0; i < 150; i++ {
		store.Overrides = append(store.Overrides, domain.OverrideLogEntry{
			ID:        uuid.New(),
			UserID:    userID,
			Action:    domain.ActionCloseIssue,
			Level:     domain.LevelSoftBlocked,
			CreatedAt: testfix.Now.Add(-time.Duration(i) * time.Minute),
		})
	}
	h := newTestServer(store)

	rec := doJSON(t, h, http.MethodGet, "/overrides?limit=1000000", userID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var history []overrideResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	assert.Len(t, history, 100)
}

func TestAddEvidenceThenActionAllowed(t *testing.T) {
	store := memory.New()
	userID := uuid.New()
	issue := testfix.SeedIssue(store, userID, 2, 1)
	h := newTestServer(store)

	// The third evidence item pushes the issue from adequate to strong.
	rec := doJSON(t, h, http.MethodPost, "/issues/"+issue.ID.String()+"/evidence", userID,
		`{"type": "photo", "occurred_at": "2026-08-20T00:00:00Z"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/issues/"+issue.ID.String()+"/actions", userID,
		`{"action": "close_issue"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Executed   bool       `json:"executed"`
		OverrideID *uuid.UUID `json:"override_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Executed)
	assert.Nil(t, resp.OverrideID)
}
