// Package testfix holds shared fixtures for the service and adapter tests.
package testfix

import (
	"time"

	"github.com/google/uuid"

	"caseguard/internal/adapters/memory"
	"caseguard/internal/domain"
)

// Now is the frozen reference time tests pin their fake clocks to.
var Now = time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC)

// SeedIssue puts an open issue with the given activity counts into the
// store. Comms alternate outbound/inbound starting with outbound.
func SeedIssue(store *memory.Store, userID uuid.UUID, evidence, comms int) domain.Issue {
	issue := domain.Issue{
		ID:        uuid.New(),
		UserID:    userID,
		Title:     "No hot water",
		Status:    domain.StatusOpen,
		Severity:  domain.SeverityHigh,
		CreatedAt: Now.AddDate(0, 0, -3),
		UpdatedAt: Now.AddDate(0, 0, -3),
	}
	store.Issues[issue.ID] = issue
	for i := 0; i < evidence; i++ {
		store.Evidence = append(store.Evidence, domain.EvidenceItem{
			ID:         uuid.New(),
			IssueID:    issue.ID,
			Type:       domain.EvidencePhoto,
			OccurredAt: Now.AddDate(0, 0, -i),
			UploadedAt: Now,
		})
	}
	for i := 0; i < comms; i++ {
		dir := domain.DirectionOutbound
		if i%2 == 1 {
			dir = domain.DirectionInbound
		}
		store.Comms = append(store.Comms, domain.CommsLogEntry{
			ID:         uuid.New(),
			IssueID:    issue.ID,
			Direction:  dir,
			OccurredAt: Now.AddDate(0, 0, -i),
		})
	}
	return issue
}
