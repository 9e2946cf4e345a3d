// Package issues handles issue intake and read projections: severity is
// classified from the issue text at creation, and reads attach the
// age-escalated display severity and current documentation health.
package issues

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"caseguard/internal/domain"
	"caseguard/internal/ports"
)

type Service struct {
	store ports.Store
	clock clockwork.Clock
	log   zerolog.Logger
}

func New(store ports.Store, clock clockwork.Clock, log zerolog.Logger) *Service {
	return &Service{store: store, clock: clock, log: log}
}

// Create classifies severity from the issue text and persists the issue.
// The stored severity is the baseline that age escalation projects from; it
// is never rewritten by reads.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, title, description string) (domain.Issue, error) {
	if userID == uuid.Nil {
		return domain.Issue{}, domain.ErrUnauthenticated
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return domain.Issue{}, fmt.Errorf("%w: title is required", domain.ErrInvalidPolicyInput)
	}

	now := s.clock.Now().UTC()
	issue := domain.Issue{
		ID:          uuid.New(),
		UserID:      userID,
		Title:       title,
		Description: strings.TrimSpace(description),
		Status:      domain.StatusOpen,
		Severity:    domain.ClassifySeverity(title, description),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.CreateIssue(ctx, issue); err != nil {
		return domain.Issue{}, err
	}
	s.log.Info().
		Str("issue_id", issue.ID.String()).
		Str("severity", string(issue.Severity)).
		Msg("issue created")
	return issue, nil
}

// Get returns one issue with its derived projections.
func (s *Service) Get(ctx context.Context, userID, issueID uuid.UUID) (ports.IssueView, error) {
	if userID == uuid.Nil {
		return ports.IssueView{}, domain.ErrUnauthenticated
	}
	issue, err := s.store.GetIssue(ctx, issueID, userID)
	if err != nil {
		return ports.IssueView{}, err
	}
	evidence, err := s.store.ListEvidenceByIssue(ctx, issue.ID)
	if err != nil {
		return ports.IssueView{}, err
	}
	comms, err := s.store.ListCommsByIssue(ctx, issue.ID)
	if err != nil {
		return ports.IssueView{}, err
	}
	return s.view(issue, evidence, comms), nil
}

// List returns all of the user's issues with projections attached. Evidence
// and comms are fetched once for the user and filtered per issue.
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]ports.IssueView, error) {
	if userID == uuid.Nil {
		return nil, domain.ErrUnauthenticated
	}
	list, err := s.store.ListIssues(ctx, userID)
	if err != nil {
		return nil, err
	}
	evidence, err := s.store.ListEvidenceByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	comms, err := s.store.ListCommsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	views := make([]ports.IssueView, 0, len(list))
	for _, issue := range list {
		views = append(views, s.view(issue, evidence, comms))
	}
	return views, nil
}

// AddEvidence records an evidence row against one of the user's issues.
// Ownership is checked first so evidence cannot be attached across cases.
func (s *Service) AddEvidence(ctx context.Context, userID uuid.UUID, params ports.EvidenceParams) (domain.EvidenceItem, error) {
	if userID == uuid.Nil {
		return domain.EvidenceItem{}, domain.ErrUnauthenticated
	}
	evType, err := domain.ParseEvidenceType(string(params.Type))
	if err != nil {
		return domain.EvidenceItem{}, err
	}
	if _, err := s.store.GetIssue(ctx, params.IssueID, userID); err != nil {
		return domain.EvidenceItem{}, err
	}
	item := domain.EvidenceItem{
		ID:         uuid.New(),
		IssueID:    params.IssueID,
		Type:       evType,
		OccurredAt: params.OccurredAt.UTC(),
		UploadedAt: s.clock.Now().UTC(),
	}
	if err := s.store.AddEvidence(ctx, item); err != nil {
		return domain.EvidenceItem{}, err
	}
	return item, nil
}

// AddComms records a landlord communication against one of the user's issues.
func (s *Service) AddComms(ctx context.Context, userID uuid.UUID, params ports.CommsParams) (domain.CommsLogEntry, error) {
	if userID == uuid.Nil {
		return domain.CommsLogEntry{}, domain.ErrUnauthenticated
	}
	direction, err := domain.ParseDirection(string(params.Direction))
	if err != nil {
		return domain.CommsLogEntry{}, err
	}
	if _, err := s.store.GetIssue(ctx, params.IssueID, userID); err != nil {
		return domain.CommsLogEntry{}, err
	}
	entry := domain.CommsLogEntry{
		ID:         uuid.New(),
		IssueID:    params.IssueID,
		Direction:  direction,
		OccurredAt: params.OccurredAt.UTC(),
		Note:       strings.TrimSpace(params.Note),
	}
	if err := s.store.AddComms(ctx, entry); err != nil {
		return domain.CommsLogEntry{}, err
	}
	return entry, nil
}

func (s *Service) view(issue domain.Issue, evidence []domain.EvidenceItem, comms []domain.CommsLogEntry) ports.IssueView {
	ev := domain.EvidenceStatsFor(issue.ID, evidence)
	cs := domain.CommsStatsFor(issue.ID, comms)
	return ports.IssueView{
		Issue:           issue,
		DisplaySeverity: domain.DisplaySeverity(issue.Severity, issue.CreatedAt, issue.Status, s.clock.Now().UTC()),
		Health:          domain.ScoreIssue(ev.Total, cs.Total),
		Evidence:        ev,
		Comms:           cs,
	}
}
