// Package httpadapter exposes the enforcement core over HTTP. It is a thin
// consumer of the ports: all decisions happen in the services.
package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"caseguard/internal/domain"
	"caseguard/internal/ports"
)

type Server struct {
	issues      ports.Issues
	enforcement ports.Enforcement
	log         zerolog.Logger
}

func New(issues ports.Issues, enforcement ports.Enforcement, log zerolog.Logger) *Server {
	return &Server{issues: issues, enforcement: enforcement, log: log}
}

func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/healthz", s.handleHealthz)

	r.Group(func(r chi.Router) {
		r.Use(s.requireUser)
		r.Post("/issues", s.handleCreateIssue)
		r.Get("/issues", s.handleListIssues)
		r.Get("/issues/{id}", s.handleGetIssue)
		r.Post("/issues/{id}/evidence", s.handleAddEvidence)
		r.Post("/issues/{id}/comms", s.handleAddComms)
		r.Get("/issues/{id}/enforcement", s.handleCheckIssue)
		r.Post("/issues/{id}/actions", s.handleIssueAction)
		r.Get("/case/enforcement", s.handleCheckCase)
		r.Post("/packs", s.handleGeneratePack)
		r.Get("/overrides", s.handleOverrideHistory)
	})
	return r
}

type ctxKey int

const userKey ctxKey = iota

// requireUser resolves the caller's identity from the X-User-ID header.
// No identity means 401: enforcement blocks by default, it never falls
// open to "allowed".
func (s *Server) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(r.Header.Get("X-User-ID"))
		if err != nil || id == uuid.Nil {
			s.writeError(w, domain.ErrUnauthenticated)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey, id)))
	})
}

func userFrom(ctx context.Context) uuid.UUID {
	id, _ := ctx.Value(userKey).(uuid.UUID)
	return id
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type createIssueRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type issueResponse struct {
	ID              uuid.UUID            `json:"id"`
	Title           string               `json:"title"`
	Description     string               `json:"description,omitempty"`
	Status          domain.IssueStatus   `json:"status"`
	Severity        domain.Severity      `json:"severity"`
	DisplaySeverity domain.Severity      `json:"display_severity"`
	Health          domain.CaseHealth    `json:"health"`
	Evidence        domain.EvidenceStats `json:"evidence"`
	Comms           domain.CommsStats    `json:"comms"`
	CreatedAt       time.Time            `json:"created_at"`
	UpdatedAt       time.Time            `json:"updated_at"`
}

func toIssueResponse(v ports.IssueView) issueResponse {
	return issueResponse{
		ID:              v.ID,
		Title:           v.Title,
		Description:     v.Description,
		Status:          v.Status,
		Severity:        v.Severity,
		DisplaySeverity: v.DisplaySeverity,
		Health:          v.Health,
		Evidence:        v.Evidence,
		Comms:           v.Comms,
		CreatedAt:       v.CreatedAt,
		UpdatedAt:       v.UpdatedAt,
	}
}

func (s *Server) handleCreateIssue(w http.ResponseWriter, r *http.Request) {
	var req createIssueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, badRequest("invalid JSON body"))
		return
	}
	issue, err := s.issues.Create(r.Context(), userFrom(r.Context()), req.Title, req.Description)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]any{
		"id":       issue.ID,
		"severity": issue.Severity,
		"status":   issue.Status,
	})
}

func (s *Server) handleListIssues(w http.ResponseWriter, r *http.Request) {
	views, err := s.issues.List(r.Context(), userFrom(r.Context()))
	if err != nil {
		s.writeError(w, err)
		return
	}
	out := make([]issueResponse, 0, len(views))
	for _, v := range views {
		out = append(out, toIssueResponse(v))
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetIssue(w http.ResponseWriter, r *http.Request) {
	issueID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, badRequest("invalid issue id"))
		return
	}
	view, err := s.issues.Get(r.Context(), userFrom(r.Context()), issueID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toIssueResponse(view))
}

type addEvidenceRequest struct {
	Type       domain.EvidenceType `json:"type"`
	OccurredAt time.Time           `json:"occurred_at"`
}

func (s *Server) handleAddEvidence(w http.ResponseWriter, r *http.Request) {
	issueID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, badRequest("invalid issue id"))
		return
	}
	var req addEvidenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, badRequest("invalid JSON body"))
		return
	}
	item, err := s.issues.AddEvidence(r.Context(), userFrom(r.Context()), ports.EvidenceParams{
		IssueID:    issueID,
		Type:       req.Type,
		OccurredAt: req.OccurredAt,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]any{"id": item.ID})
}

type addCommsRequest struct {
	Direction  domain.CommsDirection `json:"direction"`
	OccurredAt time.Time             `json:"occurred_at"`
	Note       string                `json:"note"`
}

func (s *Server) handleAddComms(w http.ResponseWriter, r *http.Request) {
	issueID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, badRequest("invalid issue id"))
		return
	}
	var req addCommsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, badRequest("invalid JSON body"))
		return
	}
	entry, err := s.issues.AddComms(r.Context(), userFrom(r.Context()), ports.CommsParams{
		IssueID:    issueID,
		Direction:  req.Direction,
		OccurredAt: req.OccurredAt,
		Note:       req.Note,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]any{"id": entry.ID})
}

func (s *Server) handleCheckIssue(w http.ResponseWriter, r *http.Request) {
	issueID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, badRequest("invalid issue id"))
		return
	}
	action, err := domain.ParseAction(r.URL.Query().Get("action"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	result, err := s.enforcement.CheckIssue(r.Context(), userFrom(r.Context()), issueID, action)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleCheckCase(w http.ResponseWriter, r *http.Request) {
	action, err := domain.ParseAction(r.URL.Query().Get("action"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	result, err := s.enforcement.CheckCase(r.Context(), userFrom(r.Context()), action)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

type actionRequest struct {
	Action     string     `json:"action"`
	EvidenceID *uuid.UUID `json:"evidence_id,omitempty"`
	CommsID    *uuid.UUID `json:"comms_id,omitempty"`
	Reason     string     `json:"reason,omitempty"`
}

type confirmResponse struct {
	Executed   bool                     `json:"executed"`
	Result     domain.EnforcementResult `json:"result"`
	OverrideID *uuid.UUID               `json:"override_id,omitempty"`
	PackID     *uuid.UUID               `json:"pack_id,omitempty"`
}

func (s *Server) handleIssueAction(w http.ResponseWriter, r *http.Request) {
	issueID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, badRequest("invalid issue id"))
		return
	}
	var req actionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, badRequest("invalid JSON body"))
		return
	}
	action, err := domain.ParseAction(req.Action)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.confirm(w, r, ports.ConfirmParams{
		UserID:     userFrom(r.Context()),
		Action:     action,
		IssueID:    &issueID,
		EvidenceID: req.EvidenceID,
		CommsID:    req.CommsID,
		Reason:     req.Reason,
	})
}

type packRequest struct {
	Reason string `json:"reason,omitempty"`
}

func (s *Server) handleGeneratePack(w http.ResponseWriter, r *http.Request) {
	var req packRequest
	if r.Body != nil && r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, badRequest("invalid JSON body"))
			return
		}
	}
	s.confirm(w, r, ports.ConfirmParams{
		UserID: userFrom(r.Context()),
		Action: domain.ActionGeneratePack,
		Reason: req.Reason,
	})
}

func (s *Server) confirm(w http.ResponseWriter, r *http.Request, params ports.ConfirmParams) {
	outcome, err := s.enforcement.Confirm(r.Context(), params)
	if errors.Is(err, domain.ErrActionBlocked) {
		// Blocked is a decision, not a server failure: return the result so
		// the caller can show the message and the health that produced it.
		s.writeJSON(w, http.StatusForbidden, confirmResponse{Executed: false, Result: outcome.Result})
		return
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	resp := confirmResponse{Executed: outcome.Executed, Result: outcome.Result, PackID: outcome.PackID}
	if outcome.Override != nil {
		resp.OverrideID = &outcome.Override.ID
	}
	s.writeJSON(w, http.StatusOK, resp)
}

type overrideResponse struct {
	ID           uuid.UUID               `json:"id"`
	Action       domain.Action           `json:"action"`
	Level        domain.EnforcementLevel `json:"enforcement_level"`
	HealthStatus domain.HealthStatus     `json:"health_status"`
	HealthScore  int                     `json:"health_score"`
	PlanID       domain.PlanID           `json:"plan_id"`
	PlanMode     domain.PlanMode         `json:"plan_mode"`
	IssueID      *uuid.UUID              `json:"issue_id,omitempty"`
	EvidenceID   *uuid.UUID              `json:"evidence_id,omitempty"`
	CommsID      *uuid.UUID              `json:"comms_id,omitempty"`
	PackID       *uuid.UUID              `json:"pack_id,omitempty"`
	Reason       string                  `json:"reason,omitempty"`
	CreatedAt    time.Time               `json:"created_at"`
}

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

func (s *Server) handleOverrideHistory(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = min(n, maxHistoryLimit)
		}
	}
	entries, err := s.enforcement.History(r.Context(), userFrom(r.Context()), limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	out := make([]overrideResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, overrideResponse{
			ID: e.ID, Action: e.Action, Level: e.Level,
			HealthStatus: e.HealthStatus, HealthScore: e.HealthScore,
			PlanID: e.PlanID, PlanMode: e.PlanMode,
			IssueID: e.IssueID, EvidenceID: e.EvidenceID, CommsID: e.CommsID, PackID: e.PackID,
			Reason: e.Reason, CreatedAt: e.CreatedAt,
		})
	}
	s.writeJSON(w, http.StatusOK, out)
}

type httpError struct {
	code int
	msg  string
}

func (e *httpError) Error() string { return e.msg }

func badRequest(msg string) error { return &httpError{code: http.StatusBadRequest, msg: msg} }

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error().Err(err).Msg("response encode failed")
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	msg := "internal error"
	var he *httpError
	switch {
	case errors.As(err, &he):
		code, msg = he.code, he.msg
	case errors.Is(err, domain.ErrUnauthenticated):
		code, msg = http.StatusUnauthorized, "unauthenticated"
	case errors.Is(err, domain.ErrNotFound):
		code, msg = http.StatusNotFound, "not found"
	case errors.Is(err, domain.ErrInvalidPolicyInput):
		code, msg = http.StatusBadRequest, err.Error()
	default:
		s.log.Error().Err(err).Msg("request failed")
	}
	s.writeJSON(w, code, map[string]string{"error": msg})
}
