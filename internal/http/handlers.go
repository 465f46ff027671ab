package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"housefund/internal/core"
	applog "housefund/internal/log"
	"housefund/internal/store"
)

// pledgeRequest is the POST /pledges body. Amount arrives as a JSON
// number or a decimal string; it is kept raw here because a string
// like "12,50" is not a JSON number literal, and both shapes go
// through the same money parser.
type pledgeRequest struct {
	Name   string          `json:"name"`
	Amount json.RawMessage `json:"amount"`
	Room   string          `json:"room"`
	Email  string          `json:"email"`
}

// rawAmount strips the JSON quoting from the amount field. Absent and
// null amounts come back empty.
func (r *pledgeRequest) rawAmount() string {
	raw := strings.Trim(strings.TrimSpace(string(r.Amount)), `"`)
	if raw == "null" {
		return ""
	}
	return raw
}

func (s *Server) handlePledges(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleLoadPledges(w, r)
	case http.MethodPost:
		s.handleSubmitPledge(w, r)
	case http.MethodDelete:
		s.handleResetPledges(w, r)
	default:
		w.Header().Set("Allow", "GET, POST, DELETE")
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
	}
}

func (s *Server) handleLoadPledges(w http.ResponseWriter, r *http.Request) {
	set, err := s.pledges.Load(r.Context())
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Failed to load pledges", applog.FieldError, err)
		writeError(w, http.StatusInternalServerError, "storage_error", "Failed to fetch pledges")
		return
	}
	fundTotalCents.Set(float64(set.Total().Cents))
	writeJSON(w, http.StatusOK, set)
}

func (s *Server) handleSubmitPledge(w http.ResponseWriter, r *http.Request) {
	var req pledgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "Request body must be valid JSON")
		return
	}

	// Field presence first, so an absent amount reads as missing
	// rather than invalid.
	amount := req.rawAmount()
	if strings.TrimSpace(req.Name) == "" || amount == "" || strings.TrimSpace(req.Room) == "" || strings.TrimSpace(req.Email) == "" {
		pledgeRejectionsTotal.WithLabelValues("missing_field").Inc()
		writeError(w, http.StatusBadRequest, "missing_field", "Missing required fields")
		return
	}

	cents, err := core.ParseDecimalToCents(amount)
	if err != nil {
		pledgeRejectionsTotal.WithLabelValues("invalid_amount").Inc()
		writeError(w, http.StatusBadRequest, "invalid_amount", "Invalid amount")
		return
	}

	room, err := core.ParseRoom(req.Room)
	if err != nil {
		pledgeRejectionsTotal.WithLabelValues("invalid_room").Inc()
		writeError(w, http.StatusBadRequest, "invalid_room", "Invalid room")
		return
	}

	set, err := s.pledges.Submit(r.Context(), req.Name, core.Money{Cents: cents}, room, strings.TrimSpace(req.Email))
	if err != nil {
		s.writeSubmitError(w, r, err)
		return
	}

	pledgesTotal.Inc()
	fundTotalCents.Set(float64(set.Total().Cents))
	writeJSON(w, http.StatusOK, set)
}

func (s *Server) handleResetPledges(w http.ResponseWriter, r *http.Request) {
	if err := s.pledges.Reset(r.Context()); err != nil {
		s.logger.ErrorContext(r.Context(), "Failed to reset pledges", applog.FieldError, err)
		writeError(w, http.StatusInternalServerError, "storage_error", "Failed to reset pledges")
		return
	}
	fundTotalCents.Set(0)
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// handleSummary returns the derived fund view: totals per room and
// person, remaining budget, progress and the window deadline.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
		return
	}

	set, err := s.pledges.Load(r.Context())
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Failed to load pledges for summary", applog.FieldError, err)
		writeError(w, http.StatusInternalServerError, "storage_error", "Failed to fetch pledges")
		return
	}

	summary := core.Summarize(set, s.target, s.window)
	fundTotalCents.Set(float64(summary.Total.Cents))
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) writeSubmitError(w http.ResponseWriter, r *http.Request, err error) {
	var capErr *core.CapExceededError
	switch {
	case errors.Is(err, core.ErrMissingField):
		pledgeRejectionsTotal.WithLabelValues("missing_field").Inc()
		writeError(w, http.StatusBadRequest, "missing_field", "Missing required fields")
	case errors.Is(err, core.ErrInvalidAmount):
		pledgeRejectionsTotal.WithLabelValues("invalid_amount").Inc()
		writeError(w, http.StatusBadRequest, "invalid_amount", "Invalid amount")
	case errors.Is(err, core.ErrInvalidRoom):
		pledgeRejectionsTotal.WithLabelValues("invalid_room").Inc()
		writeError(w, http.StatusBadRequest, "invalid_room", "Invalid room")
	case errors.Is(err, core.ErrInvalidEmail):
		pledgeRejectionsTotal.WithLabelValues("invalid_email").Inc()
		writeError(w, http.StatusBadRequest, "invalid_email", "Invalid email address")
	case errors.As(err, &capErr):
		pledgeRejectionsTotal.WithLabelValues("exceeds_remaining").Inc()
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:     "Amount exceeds remaining available: " + capErr.Remaining.String(),
			Code:      "exceeds_remaining",
			Remaining: &capErr.Remaining,
		})
	case errors.Is(err, store.ErrConflict):
		pledgeRejectionsTotal.WithLabelValues("conflict").Inc()
		s.logger.WarnContext(r.Context(), "Pledge submission lost write race", applog.FieldError, err)
		writeError(w, http.StatusConflict, "conflict", "Concurrent update, please retry")
	default:
		s.logger.ErrorContext(r.Context(), "Failed to save pledge", applog.FieldError, err)
		writeError(w, http.StatusInternalServerError, "storage_error", "Failed to add pledge")
	}
}
