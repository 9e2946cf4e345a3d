package postgres

import (
	"context"

	"github.com/google/uuid"

	"caseguard/internal/domain"
)

// OverrideRepository. Append-only: rows are never updated or deleted.

func (s *Store) RecordOverride(ctx context.Context, entry domain.OverrideLogEntry) error {
	if err := entry.Validate(); err != nil {
		return err
	}
	_, err := s.q.Exec(ctx, `
		INSERT INTO override_log (
			id, user_id, action, enforcement_level, health_status, health_score,
			plan_id, plan_mode, issue_id, evidence_id, comms_id, pack_id, reason, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, entry.ID, entry.UserID, entry.Action, entry.Level, entry.HealthStatus, entry.HealthScore,
		entry.PlanID, entry.PlanMode, entry.IssueID, entry.EvidenceID, entry.CommsID, entry.PackID,
		nullable(entry.Reason), entry.CreatedAt)
	if err != nil {
		s.log.Error().Err(err).Str("action", string(entry.Action)).Msg("override audit write failed")
	}
	return err
}

func (s *Store) ListOverrides(ctx context.Context, userID uuid.UUID, limit int) ([]domain.OverrideLogEntry, error) {
	rows, err := s.q.Query(ctx, `
		SELECT id, user_id, action, enforcement_level, health_status, health_score,
		       plan_id, plan_mode, issue_id, evidence_id, comms_id, pack_id,
		       COALESCE(reason, ''), created_at
		FROM override_log
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.OverrideLogEntry
	for rows.Next() {
		var e domain.OverrideLogEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Action, &e.Level, &e.HealthStatus, &e.HealthScore,
			&e.PlanID, &e.PlanMode, &e.IssueID, &e.EvidenceID, &e.CommsID, &e.PackID,
			&e.Reason, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
