package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"caseguard/internal/domain"
)

// IssueView is an issue decorated with its derived projections: the
// age-escalated display severity and the current documentation health.
type IssueView struct {
	domain.Issue
	DisplaySeverity domain.Severity
	Health          domain.CaseHealth
	Evidence        domain.EvidenceStats
	Comms           domain.CommsStats
}

type EvidenceParams struct {
	IssueID    uuid.UUID
	Type       domain.EvidenceType
	OccurredAt time.Time
}

type CommsParams struct {
	IssueID    uuid.UUID
	Direction  domain.CommsDirection
	OccurredAt time.Time
	Note       string
}

// ConfirmParams carries a user's decision to proceed past enforcement
// friction. Issue-scoped actions require IssueID; delete actions also name
// the row being removed.
type ConfirmParams struct {
	UserID     uuid.UUID
	Action     domain.Action
	IssueID    *uuid.UUID
	EvidenceID *uuid.UUID
	CommsID    *uuid.UUID
	Reason     string
}

// ConfirmOutcome reports what the transactional confirm path did. Override
// is nil when the fresh evaluation came back allowed (nothing to audit).
// Executed is false when the action was hard-blocked and rolled back.
type ConfirmOutcome struct {
	Result   domain.EnforcementResult
	Override *domain.OverrideLogEntry
	Executed bool
	PackID   *uuid.UUID
}

// Issues is the intake surface: create and read issues with derived severity
// and health, and record the evidence/comms activity that raises health.
type Issues interface {
	Create(ctx context.Context, userID uuid.UUID, title, description string) (domain.Issue, error)
	Get(ctx context.Context, userID, issueID uuid.UUID) (IssueView, error)
	List(ctx context.Context, userID uuid.UUID) ([]IssueView, error)
	AddEvidence(ctx context.Context, userID uuid.UUID, params EvidenceParams) (domain.EvidenceItem, error)
	AddComms(ctx context.Context, userID uuid.UUID, params CommsParams) (domain.CommsLogEntry, error)
}

// Enforcement gates consequential actions and owns the override audit trail.
type Enforcement interface {
	CheckIssue(ctx context.Context, userID, issueID uuid.UUID, action domain.Action) (domain.EnforcementResult, error)
	CheckCase(ctx context.Context, userID uuid.UUID, action domain.Action) (domain.EnforcementResult, error)
	Confirm(ctx context.Context, params ConfirmParams) (ConfirmOutcome, error)
	History(ctx context.Context, userID uuid.UUID, limit int) ([]domain.OverrideLogEntry, error)
}
