package enforcement

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"caseguard/internal/domain"
	"caseguard/internal/ports"
)

// Service orchestrates enforcement: it fetches facts from the store, derives
// health, evaluates policy, and runs the confirm path that writes the audit
// record and the state change in one transaction.
type Service struct {
	store ports.TxStore
	clock clockwork.Clock
	log   zerolog.Logger
}

func New(store ports.TxStore, clock clockwork.Clock, log zerolog.Logger) *Service {
	return &Service{store: store, clock: clock, log: log}
}

// CheckIssue evaluates an issue-scoped action against the issue's current
// health. A missing user or issue means "cannot proceed", never "allowed".
func (s *Service) CheckIssue(ctx context.Context, userID, issueID uuid.UUID, action domain.Action) (domain.EnforcementResult, error) {
	if userID == uuid.Nil {
		return domain.EnforcementResult{}, domain.ErrUnauthenticated
	}
	return s.evaluateIssue(ctx, s.store, userID, issueID, action)
}

// CheckCase evaluates a case-wide action (e.g. generate_pack) against the
// aggregate health of all active issues.
func (s *Service) CheckCase(ctx context.Context, userID uuid.UUID, action domain.Action) (domain.EnforcementResult, error) {
	if userID == uuid.Nil {
		return domain.EnforcementResult{}, domain.ErrUnauthenticated
	}
	return s.evaluateCase(ctx, s.store, userID, action)
}

// History returns the user's most recent override entries, newest first.
func (s *Service) History(ctx context.Context, userID uuid.UUID, limit int) ([]domain.OverrideLogEntry, error) {
	if userID == uuid.Nil {
		return nil, domain.ErrUnauthenticated
	}
	if limit <= 0 {
		limit = 20
	}
	return s.store.ListOverrides(ctx, userID, limit)
}

// Confirm executes a user's decision to proceed. Health can shift between
// the check shown in the UI and this call, so the policy is re-evaluated
// against fresh facts inside the same transaction that writes the audit
// record and applies the mutation. A decision that has decayed to
// hard-blocked aborts the whole transaction.
func (s *Service) Confirm(ctx context.Context, params ports.ConfirmParams) (ports.ConfirmOutcome, error) {
	if params.UserID == uuid.Nil {
		return ports.ConfirmOutcome{}, domain.ErrUnauthenticated
	}
	if _, err := domain.ParseAction(string(params.Action)); err != nil {
		return ports.ConfirmOutcome{}, err
	}
	if !params.Action.CaseScoped() && params.IssueID == nil {
		return ports.ConfirmOutcome{}, fmt.Errorf("%w: %s requires an issue", domain.ErrInvalidPolicyInput, params.Action)
	}

	var outcome ports.ConfirmOutcome
	err := s.store.InTx(ctx, func(st ports.Store) error {
		var (
			result domain.EnforcementResult
			err    error
		)
		if params.Action.CaseScoped() {
			result, err = s.evaluateCase(ctx, st, params.UserID, params.Action)
		} else {
			result, err = s.evaluateIssue(ctx, st, params.UserID, *params.IssueID, params.Action)
		}
		if err != nil {
			return err
		}
		outcome.Result = result

		if result.Level == domain.LevelHardBlocked {
			return domain.ErrActionBlocked
		}

		// generate_pack creates its pack row before the override write so
		// the audit entry can reference the pack it waved through.
		if params.Action == domain.ActionGeneratePack {
			pack := domain.CasePack{
				ID:           uuid.New(),
				UserID:       params.UserID,
				HealthScore:  result.Context.HealthScore,
				HealthStatus: result.Context.HealthStatus,
				RequestedAt:  s.clock.Now().UTC(),
			}
			if err := st.CreatePack(ctx, pack); err != nil {
				return err
			}
			outcome.PackID = &pack.ID
		}

		if result.Level.Overridable() {
			entry := domain.OverrideLogEntry{
				ID:           uuid.New(),
				UserID:       params.UserID,
				Action:       params.Action,
				Level:        result.Level,
				HealthStatus: result.Context.HealthStatus,
				HealthScore:  result.Context.HealthScore,
				PlanID:       result.Context.PlanID,
				PlanMode:     result.Context.PlanMode,
				IssueID:      params.IssueID,
				EvidenceID:   params.EvidenceID,
				CommsID:      params.CommsID,
				PackID:       outcome.PackID,
				Reason:       params.Reason,
				CreatedAt:    s.clock.Now().UTC(),
			}
			// An unaudited override defeats the guardrail: a failed write
			// aborts the mutation with it.
			if err := st.RecordOverride(ctx, entry); err != nil {
				return fmt.Errorf("record override: %w", err)
			}
			outcome.Override = &entry
		}

		if err := s.execute(ctx, st, params); err != nil {
			return err
		}
		outcome.Executed = true
		return nil
	})
	if err != nil {
		outcome.Executed = false
		outcome.Override = nil
		outcome.PackID = nil
		return outcome, err
	}

	s.log.Info().
		Str("user_id", params.UserID.String()).
		Str("action", string(params.Action)).
		Str("level", string(outcome.Result.Level)).
		Int("health_score", outcome.Result.Context.HealthScore).
		Msg("enforcement confirm executed")
	return outcome, nil
}

// execute applies the underlying state change for a confirmed action. The
// generate_pack row is created earlier in the transaction, ahead of the
// audit write.
func (s *Service) execute(ctx context.Context, st ports.Store, params ports.ConfirmParams) error {
	now := s.clock.Now().UTC()
	switch params.Action {
	case domain.ActionCloseIssue:
		return st.UpdateIssueStatus(ctx, *params.IssueID, params.UserID, domain.StatusClosed, now)
	case domain.ActionResolveIssue:
		return st.UpdateIssueStatus(ctx, *params.IssueID, params.UserID, domain.StatusResolved, now)
	case domain.ActionDeleteEvidence:
		if params.EvidenceID == nil {
			return fmt.Errorf("%w: delete_evidence requires an evidence id", domain.ErrInvalidPolicyInput)
		}
		return st.DeleteEvidence(ctx, *params.EvidenceID, params.UserID)
	case domain.ActionDeleteComms:
		if params.CommsID == nil {
			return fmt.Errorf("%w: delete_comms requires a comms id", domain.ErrInvalidPolicyInput)
		}
		return st.DeleteComms(ctx, *params.CommsID, params.UserID)
	case domain.ActionGeneratePack:
		return nil
	}
	return fmt.Errorf("%w: action %q", domain.ErrInvalidPolicyInput, params.Action)
}

// evaluateIssue scores a single issue from the given store view and runs
// the policy engine over it.
func (s *Service) evaluateIssue(ctx context.Context, st ports.Store, userID, issueID uuid.UUID, action domain.Action) (domain.EnforcementResult, error) {
	issue, err := st.GetIssue(ctx, issueID, userID)
	if err != nil {
		return domain.EnforcementResult{}, err
	}
	evidence, err := st.ListEvidenceByIssue(ctx, issue.ID)
	if err != nil {
		return domain.EnforcementResult{}, err
	}
	comms, err := st.ListCommsByIssue(ctx, issue.ID)
	if err != nil {
		return domain.EnforcementResult{}, err
	}
	health := domain.ScoreIssue(len(evidence), len(comms))

	plan, err := st.GetPlan(ctx, userID)
	if err != nil {
		return domain.EnforcementResult{}, err
	}
	return Evaluate(action, health, plan)
}

// evaluateCase aggregates health across all active issues; the weakest issue
// gates the whole case.
func (s *Service) evaluateCase(ctx context.Context, st ports.Store, userID uuid.UUID, action domain.Action) (domain.EnforcementResult, error) {
	active, err := st.ListActiveIssues(ctx, userID)
	if err != nil {
		return domain.EnforcementResult{}, err
	}
	evidence, err := st.ListEvidenceByUser(ctx, userID)
	if err != nil {
		return domain.EnforcementResult{}, err
	}
	comms, err := st.ListCommsByUser(ctx, userID)
	if err != nil {
		return domain.EnforcementResult{}, err
	}

	activity := make([]domain.IssueActivity, 0, len(active))
	for _, issue := range active {
		activity = append(activity, domain.IssueActivity{
			EvidenceCount: domain.EvidenceStatsFor(issue.ID, evidence).Total,
			CommsCount:    domain.CommsStatsFor(issue.ID, comms).Total,
		})
	}
	health := domain.ScoreCase(activity)

	plan, err := st.GetPlan(ctx, userID)
	if err != nil {
		return domain.EnforcementResult{}, err
	}
	return Evaluate(action, health, plan)
}
