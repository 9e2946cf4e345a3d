package domain

import (
	"strings"
	"time"
)

// Keyword sets are checked in order urgent -> high -> medium; first match
// wins. Unmatched text is a valid low-severity issue, not a failure.
var (
	urgentKeywords = []string{
		"fire", "gas leak", "gas smell", "smell of gas", "carbon monoxide",
		"electrical fire", "sparks", "flood", "sewage", "break-in", "break in",
		"burglary", "ceiling collapse", "collapse",
	}
	highKeywords = []string{
		"water damage", "leak", "electrical", "no power", "power outage",
		"security", "lock broken", "broken lock", "plumbing", "blocked drain",
		"health hazard", "mould", "mold", "asbestos", "pest", "rats", "mice",
		"cockroach", "structural", "no heating", "no hot water", "no cooling",
		"heating broken",
	}
	mediumKeywords = []string{
		"appliance", "oven", "stove", "fridge", "dishwasher", "washing machine",
		"dryer", "air conditioning", "exhaust fan", "window", "door", "fence",
		"gate", "crack", "paint", "peeling", "damp", "gutter", "tile", "carpet",
		"blind", "cupboard", "smoke alarm",
	}
)

// ClassifySeverity derives a risk label from the issue's free text. Pure and
// total: every input maps to a severity.
func ClassifySeverity(title, description string) Severity {
	text := strings.ToLower(title + " " + description)
	for _, kw := range urgentKeywords {
		if strings.Contains(text, kw) {
			return SeverityUrgent
		}
	}
	for _, kw := range highKeywords {
		if strings.Contains(text, kw) {
			return SeverityHigh
		}
	}
	for _, kw := range mediumKeywords {
		if strings.Contains(text, kw) {
			return SeverityMedium
		}
	}
	return SeverityLow
}

// EscalateByAge bumps severity one step once an issue has sat unresolved past
// its threshold. One-directional: the result is never ranked below the input.
func EscalateByAge(s Severity, daysOld int) Severity {
	switch s {
	case SeverityUrgent:
		return SeverityUrgent
	case SeverityHigh:
		if daysOld > 14 {
			return SeverityUrgent
		}
	case SeverityMedium:
		if daysOld > 21 {
			return SeverityHigh
		}
	case SeverityLow:
		if daysOld > 30 {
			return SeverityMedium
		}
	}
	return s
}

// DisplaySeverity is a pure projection of the stored severity: escalated by
// age for active issues, frozen verbatim once the issue is resolved or
// closed. The escalated value is never written back over the stored baseline,
// which keeps the never-downgrade invariant auditable.
func DisplaySeverity(stored Severity, createdAt time.Time, status IssueStatus, now time.Time) Severity {
	if status.Terminal() {
		return stored
	}
	daysOld := int(now.Sub(createdAt).Hours() / 24)
	return EscalateByAge(stored, daysOld)
}
