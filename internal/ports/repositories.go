package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"caseguard/internal/domain"
)

// IssueRepository stores and fetches issues scoped to their owner.
type IssueRepository interface {
	CreateIssue(ctx context.Context, issue domain.Issue) error
	// GetIssue returns domain.ErrNotFound when the issue does not exist or
	// belongs to another user.
	GetIssue(ctx context.Context, issueID, userID uuid.UUID) (domain.Issue, error)
	// ListActiveIssues returns the user's issues that are still open or in
	// progress, oldest first.
	ListActiveIssues(ctx context.Context, userID uuid.UUID) ([]domain.Issue, error)
	ListIssues(ctx context.Context, userID uuid.UUID) ([]domain.Issue, error)
	UpdateIssueStatus(ctx context.Context, issueID, userID uuid.UUID, status domain.IssueStatus, updatedAt time.Time) error
}

// EvidenceRepository manages evidence rows; file bytes live elsewhere.
type EvidenceRepository interface {
	AddEvidence(ctx context.Context, item domain.EvidenceItem) error
	ListEvidenceByIssue(ctx context.Context, issueID uuid.UUID) ([]domain.EvidenceItem, error)
	ListEvidenceByUser(ctx context.Context, userID uuid.UUID) ([]domain.EvidenceItem, error)
	DeleteEvidence(ctx context.Context, evidenceID, userID uuid.UUID) error
}

// CommsRepository manages landlord communication log entries.
type CommsRepository interface {
	AddComms(ctx context.Context, entry domain.CommsLogEntry) error
	ListCommsByIssue(ctx context.Context, issueID uuid.UUID) ([]domain.CommsLogEntry, error)
	ListCommsByUser(ctx context.Context, userID uuid.UUID) ([]domain.CommsLogEntry, error)
	DeleteComms(ctx context.Context, commsID, userID uuid.UUID) error
}

// PlanRepository resolves the user's subscription tier. Users without a plan
// row are on the free tier.
type PlanRepository interface {
	GetPlan(ctx context.Context, userID uuid.UUID) (domain.PlanID, error)
}

// OverrideRepository is the append-only audit trail of enforcement
// overrides. One durable write per Record call; overrides are rare,
// user-triggered events, so there is no cache in front of this.
type OverrideRepository interface {
	RecordOverride(ctx context.Context, entry domain.OverrideLogEntry) error
	// ListOverrides returns the user's entries newest first, capped at limit.
	ListOverrides(ctx context.Context, userID uuid.UUID, limit int) ([]domain.OverrideLogEntry, error)
}

// PackRepository records export pack requests.
type PackRepository interface {
	CreatePack(ctx context.Context, pack domain.CasePack) error
}

// Store bundles every repository contract the core consumes.
type Store interface {
	IssueRepository
	EvidenceRepository
	CommsRepository
	PlanRepository
	OverrideRepository
	PackRepository
}

// TxStore runs a function against a transaction-scoped Store. The confirm
// path uses this to re-evaluate enforcement, write the audit record, and
// apply the mutation atomically.
type TxStore interface {
	Store
	InTx(ctx context.Context, fn func(Store) error) error
}
