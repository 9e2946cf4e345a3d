package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"caseguard/internal/domain"
)

// IssueRepository

func (s *Store) CreateIssue(ctx context.Context, i domain.Issue) error {
	_, err := s.q.Exec(ctx, `
		INSERT INTO issues (id, user_id, title, description, status, severity, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, i.ID, i.UserID, i.Title, i.Description, i.Status, i.Severity, i.CreatedAt, i.UpdatedAt)
	return err
}

func (s *Store) GetIssue(ctx context.Context, issueID, userID uuid.UUID) (domain.Issue, error) {
	var i domain.Issue
	err := s.q.QueryRow(ctx, `
		SELECT id, user_id, title, description, status, severity, created_at, updated_at
		FROM issues
		WHERE id = $1 AND user_id = $2
	`, issueID, userID).Scan(&i.ID, &i.UserID, &i.Title, &i.Description, &i.Status, &i.Severity, &i.CreatedAt, &i.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Issue{}, domain.ErrNotFound
	}
	return i, err
}

func (s *Store) ListActiveIssues(ctx context.Context, userID uuid.UUID) ([]domain.Issue, error) {
	return s.listIssues(ctx, `
		SELECT id, user_id, title, description, status, severity, created_at, updated_at
		FROM issues
		WHERE user_id = $1 AND status IN ('open', 'in_progress')
		ORDER BY created_at
	`, userID)
}

func (s *Store) ListIssues(ctx context.Context, userID uuid.UUID) ([]domain.Issue, error) {
	return s.listIssues(ctx, `
		SELECT id, user_id, title, description, status, severity, created_at, updated_at
		FROM issues
		WHERE user_id = $1
		ORDER BY created_at
	`, userID)
}

func (s *Store) listIssues(ctx context.Context, query string, userID uuid.UUID) ([]domain.Issue, error) {
	rows, err := s.q.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Issue
	for rows.Next() {
		var i domain.Issue
		if err := rows.Scan(&i.ID, &i.UserID, &i.Title, &i.Description, &i.Status, &i.Severity, &i.CreatedAt, &i.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, i)
	}
	return out, rows.Err()
}

func (s *Store) UpdateIssueStatus(ctx context.Context, issueID, userID uuid.UUID, status domain.IssueStatus, updatedAt time.Time) error {
	tag, err := s.q.Exec(ctx, `
		UPDATE issues SET status = $3, updated_at = $4
		WHERE id = $1 AND user_id = $2
	`, issueID, userID, status, updatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// EvidenceRepository

func (s *Store) AddEvidence(ctx context.Context, item domain.EvidenceItem) error {
	_, err := s.q.Exec(ctx, `
		INSERT INTO evidence_items (id, issue_id, type, occurred_at, uploaded_at)
		VALUES ($1, $2, $3, $4, $5)
	`, item.ID, item.IssueID, item.Type, item.OccurredAt, item.UploadedAt)
	return err
}

func (s *Store) ListEvidenceByIssue(ctx context.Context, issueID uuid.UUID) ([]domain.EvidenceItem, error) {
	return s.listEvidence(ctx, `
		SELECT id, issue_id, type, occurred_at, uploaded_at
		FROM evidence_items
		WHERE issue_id = $1
		ORDER BY occurred_at
	`, issueID)
}

func (s *Store) ListEvidenceByUser(ctx context.Context, userID uuid.UUID) ([]domain.EvidenceItem, error) {
	return s.listEvidence(ctx, `
		SELECT e.id, e.issue_id, e.type, e.occurred_at, e.uploaded_at
		FROM evidence_items e
		JOIN issues i ON i.id = e.issue_id
		WHERE i.user_id = $1
		ORDER BY e.occurred_at
	`, userID)
}

func (s *Store) listEvidence(ctx context.Context, query string, id uuid.UUID) ([]domain.EvidenceItem, error) {
	rows, err := s.q.Query(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.EvidenceItem
	for rows.Next() {
		var e domain.EvidenceItem
		if err := rows.Scan(&e.ID, &e.IssueID, &e.Type, &e.OccurredAt, &e.UploadedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) DeleteEvidence(ctx context.Context, evidenceID, userID uuid.UUID) error {
	tag, err := s.q.Exec(ctx, `
		DELETE FROM evidence_items e
		USING issues i
		WHERE e.id = $1 AND i.id = e.issue_id AND i.user_id = $2
	`, evidenceID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// CommsRepository

func (s *Store) AddComms(ctx context.Context, entry domain.CommsLogEntry) error {
	_, err := s.q.Exec(ctx, `
		INSERT INTO comms_log (id, issue_id, direction, occurred_at, note)
		VALUES ($1, $2, $3, $4, $5)
	`, entry.ID, entry.IssueID, entry.Direction, entry.OccurredAt, entry.Note)
	return err
}

func (s *Store) ListCommsByIssue(ctx context.Context, issueID uuid.UUID) ([]domain.CommsLogEntry, error) {
	return s.listComms(ctx, `
		SELECT id, issue_id, direction, occurred_at, note
		FROM comms_log
		WHERE issue_id = $1
		ORDER BY occurred_at
	`, issueID)
}

func (s *Store) ListCommsByUser(ctx context.Context, userID uuid.UUID) ([]domain.CommsLogEntry, error) {
	return s.listComms(ctx, `
		SELECT c.id, c.issue_id, c.direction, c.occurred_at, c.note
		FROM comms_log c
		JOIN issues i ON i.id = c.issue_id
		WHERE i.user_id = $1
		ORDER BY c.occurred_at
	`, userID)
}

func (s *Store) listComms(ctx context.Context, query string, id uuid.UUID) ([]domain.CommsLogEntry, error) {
	rows, err := s.q.Query(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.CommsLogEntry
	for rows.Next() {
		var c domain.CommsLogEntry
		if err := rows.Scan(&c.ID, &c.IssueID, &c.Direction, &c.OccurredAt, &c.Note); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) DeleteComms(ctx context.Context, commsID, userID uuid.UUID) error {
	tag, err := s.q.Exec(ctx, `
		DELETE FROM comms_log c
		USING issues i
		WHERE c.id = $1 AND i.id = c.issue_id AND i.user_id = $2
	`, commsID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// PlanRepository

func (s *Store) GetPlan(ctx context.Context, userID uuid.UUID) (domain.PlanID, error) {
	var plan string
	err := s.q.QueryRow(ctx, `SELECT plan_id FROM plans WHERE user_id = $1`, userID).Scan(&plan)
	if errors.Is(err, pgx.ErrNoRows) {
		// No plan row means the free tier, not an error.
		return domain.PlanFree, nil
	}
	if err != nil {
		return "", err
	}
	return domain.ParsePlan(plan)
}

// PackRepository

func (s *Store) CreatePack(ctx context.Context, pack domain.CasePack) error {
	_, err := s.q.Exec(ctx, `
		INSERT INTO case_packs (id, user_id, health_score, health_status, requested_at)
		VALUES ($1, $2, $3, $4, $5)
	`, pack.ID, pack.UserID, pack.HealthScore, pack.HealthStatus, pack.RequestedAt)
	return err
}
