package issues

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"caseguard/internal/adapters/memory"
	"caseguard/internal/domain"
	"caseguard/internal/ports"
	"caseguard/internal/testfix"
)

func newTestService(store *memory.Store) *Service {
	return New(store, clockwork.NewFakeClockAt(testfix.Now), zerolog.Nop())
}

func TestCreateClassifiesSeverity(t *testing.T) {
	store := memory.New()
	svc := newTestService(store)
	userID := uuid.New()

	issue, err := svc.Create(context.Background(), userID, "Gas leak smell in kitchen", "")
	require.NoError(t, err)
	assert.Equal(t, domain.SeverityUrgent, issue.Severity)
	assert.Equal(t, domain.StatusOpen, issue.Status)
	assert.Equal(t, testfix.Now, issue.CreatedAt)

	issue, err = svc.Create(context.Background(), userID, "Dripping tap", "in the bathroom")
	require.NoError(t, err)
	assert.Equal(t, domain.SeverityLow, issue.Severity)

	require.Len(t, store.Issues, 2)
}

func TestCreateValidation(t *testing.T) {
	svc := newTestService(memory.New())

	_, err := svc.Create(context.Background(), uuid.Nil, "Broken oven", "")
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)

	_, err = svc.Create(context.Background(), uuid.New(), "   ", "")
	assert.ErrorIs(t, err, domain.ErrInvalidPolicyInput)
}

func TestGetAttachesProjections(t *testing.T) {
	store := memory.New()
	userID := uuid.New()
	issue := testfix.SeedIssue(store, userID, 1, 1)
	svc := newTestService(store)

	view, err := svc.Get(context.Background(), userID, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CaseHealth{Score: 70, Status: domain.HealthAdequate}, view.Health)
	assert.Equal(t, 1, view.Evidence.Total)
	assert.True(t, view.Comms.NoticeSent)
	assert.False(t, view.Comms.ResponseReceived)
}

func TestGetDisplaySeverityEscalates(t *testing.T) {
	store := memory.New()
	userID := uuid.New()
	issue := testfix.SeedIssue(store, userID, 0, 0)

	// A high-severity issue sitting open for three weeks displays urgent,
	// while the stored baseline stays untouched.
	issue.CreatedAt = testfix.Now.AddDate(0, 0, -21)
	store.Issues[issue.ID] = issue
	svc := newTestService(store)

	view, err := svc.Get(context.Background(), userID, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SeverityUrgent, view.DisplaySeverity)
	assert.Equal(t, domain.SeverityHigh, view.Severity)
	assert.Equal(t, domain.SeverityHigh, store.Issues[issue.ID].Severity)
}

func TestGetDisplaySeverityFrozenWhenResolved(t *testing.T) {
	store := memory.New()
	userID := uuid.New()
	issue := testfix.SeedIssue(store, userID, 0, 0)
	issue.CreatedAt = testfix.Now.AddDate(0, 0, -60)
	issue.Status = domain.StatusResolved
	store.Issues[issue.ID] = issue
	svc := newTestService(store)

	view, err := svc.Get(context.Background(), userID, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SeverityHigh, view.DisplaySeverity)
}

func TestGetScopedToOwner(t *testing.T) {
	store := memory.New()
	issue := testfix.SeedIssue(store, uuid.New(), 0, 0)
	svc := newTestService(store)

	_, err := svc.Get(context.Background(), uuid.New(), issue.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListFiltersPerIssue(t *testing.T) {
	store := memory.New()
	userID := uuid.New()
	a := testfix.SeedIssue(store, userID, 3, 2)
	b := testfix.SeedIssue(store, userID, 0, 0)
	svc := newTestService(store)

	views, err := svc.List(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, views, 2)

	byID := map[uuid.UUID]ports.IssueView{}
	for _, v := range views {
		byID[v.ID] = v
	}
	assert.Equal(t, 100, byID[a.ID].Health.Score)
	assert.Equal(t, 40, byID[b.ID].Health.Score)
	assert.Equal(t, domain.HealthAtRisk, byID[b.ID].Health.Status)
}

func TestAddEvidenceRaisesHealth(t *testing.T) {
	store := memory.New()
	userID := uuid.New()
	issue := testfix.SeedIssue(store, userID, 0, 0)
	svc := newTestService(store)

	item, err := svc.AddEvidence(context.Background(), userID, ports.EvidenceParams{
		IssueID:    issue.ID,
		Type:       domain.EvidencePhoto,
		OccurredAt: testfix.Now.AddDate(0, 0, -1),
	})
	require.NoError(t, err)
	assert.Equal(t, testfix.Now, item.UploadedAt)

	view, err := svc.Get(context.Background(), userID, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, 55, view.Health.Score)
	assert.Equal(t, domain.HealthWeak, view.Health.Status)
}

func TestAddEvidenceChecksOwnership(t *testing.T) {
	store := memory.New()
	issue := testfix.SeedIssue(store, uuid.New(), 0, 0)
	svc := newTestService(store)

	_, err := svc.AddEvidence(context.Background(), uuid.New(), ports.EvidenceParams{
		IssueID:    issue.ID,
		Type:       domain.EvidencePhoto,
		OccurredAt: time.Now(),
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Empty(t, store.Evidence)
}

func TestAddEvidenceRejectsUnknownType(t *testing.T) {
	store := memory.New()
	userID := uuid.New()
	issue := testfix.SeedIssue(store, userID, 0, 0)
	svc := newTestService(store)

	_, err := svc.AddEvidence(context.Background(), userID, ports.EvidenceParams{
		IssueID:    issue.ID,
		Type:       domain.EvidenceType("hologram"),
		OccurredAt: testfix.Now,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidPolicyInput)
	assert.Empty(t, store.Evidence)
}

func TestAddCommsRejectsUnknownDirection(t *testing.T) {
	store := memory.New()
	userID := uuid.New()
	issue := testfix.SeedIssue(store, userID, 0, 0)
	svc := newTestService(store)

	// A direction outside outbound/inbound would be invisible to the
	// notice-sent and response-received milestones while still counting
	// toward the comms total.
	_, err := svc.AddComms(context.Background(), userID, ports.CommsParams{
		IssueID:    issue.ID,
		Direction:  domain.CommsDirection("sideways"),
		OccurredAt: testfix.Now,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidPolicyInput)
	assert.Empty(t, store.Comms)
}

func TestAddComms(t *testing.T) {
	store := memory.New()
	userID := uuid.New()
	issue := testfix.SeedIssue(store, userID, 0, 0)
	svc := newTestService(store)

	entry, err := svc.AddComms(context.Background(), userID, ports.CommsParams{
		IssueID:    issue.ID,
		Direction:  domain.DirectionOutbound,
		OccurredAt: testfix.Now.AddDate(0, 0, -2),
		Note:       "  emailed the agent about the leak  ",
	})
	require.NoError(t, err)
	assert.Equal(t, "emailed the agent about the leak", entry.Note)

	view, err := svc.Get(context.Background(), userID, issue.ID)
	require.NoError(t, err)
	assert.True(t, view.Comms.NoticeSent)
}
