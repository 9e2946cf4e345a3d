package domain

import (
	"time"

	"github.com/google/uuid"
)

// Health scoring: 40 baseline plus 15 for each documentation milestone
// (first evidence, third evidence, first comms entry, second comms entry).

const (
	healthBaseline  = 40
	milestoneWeight = 15
)

// IssueActivity carries the per-issue counts health is derived from.
type IssueActivity struct {
	EvidenceCount int
	CommsCount    int
}

// healthStatus brackets a score. The bare baseline means nothing is
// documented yet: that is at-risk, not weak.
func healthStatus(score int) HealthStatus {
	switch {
	case score >= 80:
		return HealthStrong
	case score >= 60:
		return HealthAdequate
	case score > healthBaseline:
		return HealthWeak
	default:
		return HealthAtRisk
	}
}

// ScoreIssue derives the documentation-completeness score for one issue.
// Deterministic in its two arguments; absence of data yields the lowest
// bracket, never an error.
func ScoreIssue(evidenceCount, commsCount int) CaseHealth {
	score := healthBaseline
	if evidenceCount >= 1 {
		score += milestoneWeight
	}
	if evidenceCount >= 3 {
		score += milestoneWeight
	}
	if commsCount >= 1 {
		score += milestoneWeight
	}
	if commsCount >= 2 {
		score += milestoneWeight
	}
	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}
	return CaseHealth{Score: score, Status: healthStatus(score)}
}

// ScoreCase aggregates health across all active issues by taking the minimum
// per-issue score: the weakest issue decides whether a case-wide action is
// safe. An empty case is fully healthy, there is nothing to strengthen.
func ScoreCase(issues []IssueActivity) CaseHealth {
	if len(issues) == 0 {
		return CaseHealth{Score: 100, Status: HealthStrong}
	}
	min := ScoreIssue(issues[0].EvidenceCount, issues[0].CommsCount)
	for _, it := range issues[1:] {
		h := ScoreIssue(it.EvidenceCount, it.CommsCount)
		if h.Score < min.Score {
			min = h
		}
	}
	return min
}

// EvidenceStats summarizes evidence for one issue out of a flat list.
type EvidenceStats struct {
	Total          int        `json:"total"`
	Images         int        `json:"images"`
	Documents      int        `json:"documents"`
	LastOccurredAt *time.Time `json:"last_occurred_at,omitempty"`
}

// CommsStats summarizes communications for one issue out of a flat list.
// NoticeSent means at least one outbound entry exists; ResponseReceived
// means at least one inbound entry exists.
type CommsStats struct {
	Total            int        `json:"total"`
	Outbound         int        `json:"outbound"`
	Inbound          int        `json:"inbound"`
	NoticeSent       bool       `json:"notice_sent"`
	ResponseReceived bool       `json:"response_received"`
	LastOutboundAt   *time.Time `json:"last_outbound_at,omitempty"`
	LastInboundAt    *time.Time `json:"last_inbound_at,omitempty"`
}

// EvidenceStatsFor filters a flat evidence list by issue. Matching nothing is
// an empty stats value, not an error.
func EvidenceStatsFor(issueID uuid.UUID, items []EvidenceItem) EvidenceStats {
	var stats EvidenceStats
	for _, it := range items {
		if it.IssueID != issueID {
			continue
		}
		stats.Total++
		if it.Type.IsImage() {
			stats.Images++
		} else {
			stats.Documents++
		}
		if stats.LastOccurredAt == nil || it.OccurredAt.After(*stats.LastOccurredAt) {
			occurred := it.OccurredAt
			stats.LastOccurredAt = &occurred
		}
	}
	return stats
}

// CommsStatsFor filters a flat comms list by issue, split by direction.
func CommsStatsFor(issueID uuid.UUID, entries []CommsLogEntry) CommsStats {
	var stats CommsStats
	for _, e := range entries {
		if e.IssueID != issueID {
			continue
		}
		stats.Total++
		occurred := e.OccurredAt
		switch e.Direction {
		case DirectionOutbound:
			stats.Outbound++
			if stats.LastOutboundAt == nil || occurred.After(*stats.LastOutboundAt) {
				stats.LastOutboundAt = &occurred
			}
		case DirectionInbound:
			stats.Inbound++
			if stats.LastInboundAt == nil || occurred.After(*stats.LastInboundAt) {
				stats.LastInboundAt = &occurred
			}
		}
	}
	stats.NoticeSent = stats.Outbound >= 1
	stats.ResponseReceived = stats.Inbound >= 1
	return stats
}
