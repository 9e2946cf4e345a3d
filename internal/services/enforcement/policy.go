// Package enforcement decides whether a user may take a consequential action
// on their case, based on documentation health and subscription tier, and
// keeps the audit trail of overrides.
package enforcement

import (
	"fmt"

	"caseguard/internal/domain"
)

// Evaluate maps (action, health, plan) to an enforcement decision. Pure and
// deterministic; unknown actions or plans fail loudly instead of defaulting,
// since a silently defaulted policy decision is a security bug.
func Evaluate(action domain.Action, health domain.CaseHealth, plan domain.PlanID) (domain.EnforcementResult, error) {
	if _, err := domain.ParseAction(string(action)); err != nil {
		return domain.EnforcementResult{}, err
	}
	if _, err := domain.ParsePlan(string(plan)); err != nil {
		return domain.EnforcementResult{}, err
	}

	level := ladder(health.Status)
	mode := plan.Mode()
	if mode == domain.ModeAdvisor && level == domain.LevelHardBlocked {
		// Advisors are trusted to override; they always get a confirmable
		// block instead of a wall.
		level = domain.LevelSoftBlocked
	}

	return domain.EnforcementResult{
		Level:                level,
		Allowed:              level != domain.LevelHardBlocked,
		RequiresConfirmation: level.Overridable(),
		Message:              messageFor(action, level),
		Context: domain.EnforcementContext{
			HealthStatus: health.Status,
			HealthScore:  health.Score,
			PlanID:       plan,
			PlanMode:     mode,
		},
	}, nil
}

// ladder is the guided-mode decision rule shared by every gated action.
func ladder(status domain.HealthStatus) domain.EnforcementLevel {
	switch status {
	case domain.HealthStrong:
		return domain.LevelAllowed
	case domain.HealthAdequate:
		return domain.LevelWarned
	case domain.HealthWeak:
		return domain.LevelSoftBlocked
	default:
		return domain.LevelHardBlocked
	}
}

const (
	labelCancel        = "Cancel"
	labelGoBack        = "Go Back"
	labelProceed       = "Proceed"
	labelProceedAnyway = "Proceed Anyway"
)

// actionNouns feed the shared templates below. The table itself stays
// closed: every (action, friction level) pair resolves to a fixed bundle,
// so a missing message is a compile-time-visible omission, not a runtime
// surprise.
var actionNouns = map[domain.Action]struct {
	verb    string // e.g. "close this issue"
	subject string // what would be lost or weakened
}{
	domain.ActionCloseIssue:     {"close this issue", "its record of an unresolved problem"},
	domain.ActionResolveIssue:   {"mark this issue resolved", "its record of an unresolved problem"},
	domain.ActionDeleteEvidence: {"delete this evidence", "proof you may need later"},
	domain.ActionDeleteComms:    {"delete this communication", "your record of contacting the landlord"},
	domain.ActionGeneratePack:   {"generate a formal pack", "a complete picture of your case"},
}

func messageFor(action domain.Action, level domain.EnforcementLevel) domain.EnforcementMessage {
	noun := actionNouns[action]
	switch level {
	case domain.LevelWarned:
		return domain.EnforcementMessage{
			Title:        "Before you continue",
			Description:  fmt.Sprintf("Your documentation is adequate, but you are about to %s.", noun.verb),
			WarningText:  fmt.Sprintf("Adding more evidence first would strengthen %s.", noun.subject),
			ConfirmLabel: labelProceed,
			CancelLabel:  labelCancel,
		}
	case domain.LevelSoftBlocked:
		return domain.EnforcementMessage{
			Title:        "Your case is weakly documented",
			Description:  fmt.Sprintf("You are about to %s while your documentation is weak.", noun.verb),
			WarningText:  fmt.Sprintf("Proceeding now risks losing %s. You can add evidence or log a communication instead.", noun.subject),
			ConfirmLabel: labelProceedAnyway,
			CancelLabel:  labelCancel,
		}
	case domain.LevelHardBlocked:
		return domain.EnforcementMessage{
			Title:       "This action is blocked",
			Description: fmt.Sprintf("You cannot %s while your case is at risk: there is almost no supporting documentation.", noun.verb),
			WarningText: "Add at least one piece of evidence or log a communication with your landlord, then try again.",
			CancelLabel: labelGoBack,
		}
	default:
		// Allowed: no friction, no dialog.
		return domain.EnforcementMessage{}
	}
}
