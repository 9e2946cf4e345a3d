package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Core domain models used internally. API response shapes live in the HTTP
// adapter; keep these decoupled where helpful.

var (
	ErrNotFound            = errors.New("not found")
	ErrUnauthenticated     = errors.New("unauthenticated")
	ErrInvalidPolicyInput  = errors.New("invalid policy input")
	ErrOverrideNotLoggable = errors.New("override not loggable at this enforcement level")
	ErrActionBlocked       = errors.New("action blocked by enforcement policy")
)

type IssueStatus string

const (
	StatusOpen       IssueStatus = "open"
	StatusInProgress IssueStatus = "in_progress"
	StatusResolved   IssueStatus = "resolved"
	StatusClosed     IssueStatus = "closed"
)

// Terminal reports whether the issue has left the active workflow. Severity
// is frozen at this point and the issue no longer counts toward case health.
func (s IssueStatus) Terminal() bool {
	return s == StatusResolved || s == StatusClosed
}

type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
	SeverityUrgent Severity = "urgent"
)

// rank orders severities for the never-downgrade invariant.
func (s Severity) rank() int {
	switch s {
	case SeverityUrgent:
		return 3
	case SeverityHigh:
		return 2
	case SeverityMedium:
		return 1
	default:
		return 0
	}
}

// AtLeast reports whether s is ranked at or above other.
func (s Severity) AtLeast(other Severity) bool { return s.rank() >= other.rank() }

type EvidenceType string

const (
	EvidencePhoto      EvidenceType = "photo"
	EvidencePDF        EvidenceType = "pdf"
	EvidenceScreenshot EvidenceType = "screenshot"
	EvidenceDocument   EvidenceType = "document"
	EvidenceOther      EvidenceType = "other"
)

// IsImage classifies evidence for the stats helpers; everything that is not
// an image counts as a document.
func (t EvidenceType) IsImage() bool {
	return t == EvidencePhoto || t == EvidenceScreenshot
}

// ParseEvidenceType validates an evidence type identifier, same contract as
// ParsePlan: unknown values are rejected, never stored.
func ParseEvidenceType(raw string) (EvidenceType, error) {
	switch EvidenceType(raw) {
	case EvidencePhoto, EvidencePDF, EvidenceScreenshot, EvidenceDocument, EvidenceOther:
		return EvidenceType(raw), nil
	}
	return "", fmt.Errorf("%w: evidence type %q", ErrInvalidPolicyInput, raw)
}

type CommsDirection string

const (
	DirectionOutbound CommsDirection = "outbound" // tenant -> landlord, "notice sent"
	DirectionInbound  CommsDirection = "inbound"  // response received
)

// ParseDirection validates a comms direction identifier. An unknown direction
// would fall out of the outbound/inbound stats split and skew notice-sent and
// response-received milestones, so it is rejected at intake.
func ParseDirection(raw string) (CommsDirection, error) {
	switch CommsDirection(raw) {
	case DirectionOutbound, DirectionInbound:
		return CommsDirection(raw), nil
	}
	return "", fmt.Errorf("%w: comms direction %q", ErrInvalidPolicyInput, raw)
}

type Issue struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	Title       string
	Description string
	Status      IssueStatus
	Severity    Severity
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type EvidenceItem struct {
	ID         uuid.UUID
	IssueID    uuid.UUID
	Type       EvidenceType
	OccurredAt time.Time // date the evidence represents
	UploadedAt time.Time // ingestion time
}

type CommsLogEntry struct {
	ID         uuid.UUID
	IssueID    uuid.UUID
	Direction  CommsDirection
	OccurredAt time.Time
	Note       string
}

// CasePack records a request to generate a formal export pack. Pack contents
// and PDF layout are owned by the export pipeline, not this core.
type CasePack struct {
	ID           uuid.UUID
	UserID       uuid.UUID
	HealthScore  int
	HealthStatus HealthStatus
	RequestedAt  time.Time
}

type PlanID string

const (
	PlanFree PlanID = "free"
	PlanPlus PlanID = "plus"
	PlanPro  PlanID = "pro"
)

type PlanMode string

const (
	ModeGuided  PlanMode = "guided"  // full enforcement
	ModeAdvisor PlanMode = "advisor" // never escalates above a confirmable block
)

// Mode maps a plan to its enforcement strictness. Callers must have validated
// the plan first; unknown plans fail in ParsePlan, not here.
func (p PlanID) Mode() PlanMode {
	if p == PlanPro {
		return ModeAdvisor
	}
	return ModeGuided
}

// ParsePlan validates a plan identifier. Unknown plans are rejected loudly:
// silently defaulting a policy input is how enforcement bugs hide.
func ParsePlan(raw string) (PlanID, error) {
	switch PlanID(raw) {
	case PlanFree, PlanPlus, PlanPro:
		return PlanID(raw), nil
	}
	return "", fmt.Errorf("%w: plan %q", ErrInvalidPolicyInput, raw)
}

type Action string

const (
	ActionCloseIssue     Action = "close_issue"
	ActionResolveIssue   Action = "resolve_issue"
	ActionDeleteEvidence Action = "delete_evidence"
	ActionDeleteComms    Action = "delete_comms"
	ActionGeneratePack   Action = "generate_pack"
)

// CaseScoped reports whether the action is evaluated against aggregate case
// health rather than a single issue.
func (a Action) CaseScoped() bool { return a == ActionGeneratePack }

// ParseAction validates an action identifier, same contract as ParsePlan.
func ParseAction(raw string) (Action, error) {
	switch Action(raw) {
	case ActionCloseIssue, ActionResolveIssue, ActionDeleteEvidence, ActionDeleteComms, ActionGeneratePack:
		return Action(raw), nil
	}
	return "", fmt.Errorf("%w: action %q", ErrInvalidPolicyInput, raw)
}

type HealthStatus string

const (
	HealthStrong   HealthStatus = "strong"
	HealthAdequate HealthStatus = "adequate"
	HealthWeak     HealthStatus = "weak"
	HealthAtRisk   HealthStatus = "at-risk"
)

// CaseHealth is derived, never stored: a documentation-completeness snapshot
// computed fresh on every evaluation.
type CaseHealth struct {
	Score  int          `json:"score"`
	Status HealthStatus `json:"status"`
}

type EnforcementLevel string

const (
	LevelAllowed     EnforcementLevel = "allowed"
	LevelWarned      EnforcementLevel = "warned"
	LevelSoftBlocked EnforcementLevel = "soft-blocked"
	LevelHardBlocked EnforcementLevel = "hard-blocked"
)

// Overridable reports whether a user may proceed past this level with
// confirmation. Hard blocks cannot be bypassed; allowed has no friction.
func (l EnforcementLevel) Overridable() bool {
	return l == LevelWarned || l == LevelSoftBlocked
}

// EnforcementMessage is the user-facing bundle for a decision. ConfirmLabel
// is empty for hard blocks, which only offer a way back.
type EnforcementMessage struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	WarningText  string `json:"warning_text,omitempty"`
	ConfirmLabel string `json:"confirm_label,omitempty"`
	CancelLabel  string `json:"cancel_label,omitempty"`
}

// EnforcementContext echoes the inputs that produced a decision so the user
// can act on them (add evidence, log a communication) instead of just being
// told no.
type EnforcementContext struct {
	HealthStatus HealthStatus `json:"health_status"`
	HealthScore  int          `json:"health_score"`
	PlanID       PlanID       `json:"plan_id"`
	PlanMode     PlanMode     `json:"plan_mode"`
}

type EnforcementResult struct {
	Level                EnforcementLevel   `json:"level"`
	Allowed              bool               `json:"allowed"`
	RequiresConfirmation bool               `json:"requires_confirmation"`
	Message              EnforcementMessage `json:"message"`
	Context              EnforcementContext `json:"context"`
}

// OverrideLogEntry is the persisted audit record written when a user proceeds
// past a warned or soft-blocked decision.
type OverrideLogEntry struct {
	ID           uuid.UUID
	UserID       uuid.UUID
	Action       Action
	Level        EnforcementLevel
	HealthStatus HealthStatus
	HealthScore  int
	PlanID       PlanID
	PlanMode     PlanMode
	IssueID      *uuid.UUID
	EvidenceID   *uuid.UUID
	CommsID      *uuid.UUID
	PackID       *uuid.UUID
	Reason       string
	CreatedAt    time.Time
}

// Validate enforces the audit-log precondition: overrides exist only for
// levels a user can actually proceed past. Hitting this error is a caller
// bug, not a user input problem.
func (e OverrideLogEntry) Validate() error {
	if !e.Level.Overridable() {
		return fmt.Errorf("%w: %s", ErrOverrideNotLoggable, e.Level)
	}
	if e.UserID == uuid.Nil {
		return ErrUnauthenticated
	}
	return nil
}
