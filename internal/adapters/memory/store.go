// Package memory is an in-process ports.TxStore used by tests and local
// development. InTx snapshots state and restores it when fn fails, matching
// the rollback semantics of the postgres adapter.
package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"caseguard/internal/domain"
	"caseguard/internal/ports"
)

type Store struct {
	mu        sync.Mutex
	Issues    map[uuid.UUID]domain.Issue
	Evidence  []domain.EvidenceItem
	Comms     []domain.CommsLogEntry
	Plans     map[uuid.UUID]domain.PlanID
	Overrides []domain.OverrideLogEntry
	Packs     []domain.CasePack

	// FailOverrideWrite makes RecordOverride fail, for exercising the
	// audit-write-aborts-mutation path.
	FailOverrideWrite bool
}

func New() *Store {
	return &Store{
		Issues: map[uuid.UUID]domain.Issue{},
		Plans:  map[uuid.UUID]domain.PlanID{},
	}
}

func (s *Store) CreateIssue(_ context.Context, i domain.Issue) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Issues[i.ID] = i
	return nil
}

func (s *Store) GetIssue(_ context.Context, issueID, userID uuid.UUID) (domain.Issue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.Issues[issueID]
	if !ok || i.UserID != userID {
		return domain.Issue{}, domain.ErrNotFound
	}
	return i, nil
}

func (s *Store) ListActiveIssues(_ context.Context, userID uuid.UUID) ([]domain.Issue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Issue
	for _, i := range s.Issues {
		if i.UserID == userID && !i.Status.Terminal() {
			out = append(out, i)
		}
	}
	sortIssues(out)
	return out, nil
}

func (s *Store) ListIssues(_ context.Context, userID uuid.UUID) ([]domain.Issue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Issue
	for _, i := range s.Issues {
		if i.UserID == userID {
			out = append(out, i)
		}
	}
	sortIssues(out)
	return out, nil
}

func sortIssues(issues []domain.Issue) {
	sort.Slice(issues, func(a, b int) bool { return issues[a].CreatedAt.Before(issues[b].CreatedAt) })
}

func (s *Store) UpdateIssueStatus(_ context.Context, issueID, userID uuid.UUID, status domain.IssueStatus, updatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.Issues[issueID]
	if !ok || i.UserID != userID {
		return domain.ErrNotFound
	}
	i.Status = status
	i.UpdatedAt = updatedAt
	s.Issues[issueID] = i
	return nil
}

func (s *Store) AddEvidence(_ context.Context, item domain.EvidenceItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Evidence = append(s.Evidence, item)
	return nil
}

func (s *Store) ListEvidenceByIssue(_ context.Context, issueID uuid.UUID) ([]domain.EvidenceItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.EvidenceItem
	for _, e := range s.Evidence {
		if e.IssueID == issueID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *Store) ListEvidenceByUser(_ context.Context, userID uuid.UUID) ([]domain.EvidenceItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.EvidenceItem
	for _, e := range s.Evidence {
		if i, ok := s.Issues[e.IssueID]; ok && i.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *Store) DeleteEvidence(_ context.Context, evidenceID, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for n, e := range s.Evidence {
		i, ok := s.Issues[e.IssueID]
		if e.ID == evidenceID && ok && i.UserID == userID {
			s.Evidence = append(s.Evidence[:n], s.Evidence[n+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

func (s *Store) AddComms(_ context.Context, entry domain.CommsLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Comms = append(s.Comms, entry)
	return nil
}

func (s *Store) ListCommsByIssue(_ context.Context, issueID uuid.UUID) ([]domain.CommsLogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.CommsLogEntry
	for _, c := range s.Comms {
		if c.IssueID == issueID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *Store) ListCommsByUser(_ context.Context, userID uuid.UUID) ([]domain.CommsLogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.CommsLogEntry
	for _, c := range s.Comms {
		if i, ok := s.Issues[c.IssueID]; ok && i.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *Store) DeleteComms(_ context.Context, commsID, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for n, c := range s.Comms {
		i, ok := s.Issues[c.IssueID]
		if c.ID == commsID && ok && i.UserID == userID {
			s.Comms = append(s.Comms[:n], s.Comms[n+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

func (s *Store) GetPlan(_ context.Context, userID uuid.UUID) (domain.PlanID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.Plans[userID]; ok {
		return p, nil
	}
	return domain.PlanFree, nil
}

func (s *Store) RecordOverride(_ context.Context, entry domain.OverrideLogEntry) error {
	if err := entry.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailOverrideWrite {
		return errors.New("audit write failed")
	}
	s.Overrides = append(s.Overrides, entry)
	return nil
}

func (s *Store) ListOverrides(_ context.Context, userID uuid.UUID, limit int) ([]domain.OverrideLogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.OverrideLogEntry
	for _, e := range s.Overrides {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].CreatedAt.After(out[b].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) CreatePack(_ context.Context, pack domain.CasePack) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Packs = append(s.Packs, pack)
	return nil
}

// InTx runs fn against the store itself, restoring the pre-call snapshot if
// fn fails. Single-writer semantics are enough here.
func (s *Store) InTx(_ context.Context, fn func(ports.Store) error) error {
	s.mu.Lock()
	snapIssues := make(map[uuid.UUID]domain.Issue, len(s.Issues))
	for k, v := range s.Issues {
		snapIssues[k] = v
	}
	snapEvidence := append([]domain.EvidenceItem(nil), s.Evidence...)
	snapComms := append([]domain.CommsLogEntry(nil), s.Comms...)
	snapOverrides := append([]domain.OverrideLogEntry(nil), s.Overrides...)
	snapPacks := append([]domain.CasePack(nil), s.Packs...)
	s.mu.Unlock()

	if err := fn(s); err != nil {
		s.mu.Lock()
		s.Issues = snapIssues
		s.Evidence = snapEvidence
		s.Comms = snapComms
		s.Overrides = snapOverrides
		s.Packs = snapPacks
		s.mu.Unlock()
		return err
	}
	return nil
}
