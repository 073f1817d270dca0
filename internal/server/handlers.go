package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"formrelay/internal/history"
	"formrelay/internal/presence"
	"formrelay/internal/ratelimit"
	"formrelay/internal/relay"
	"formrelay/internal/security"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hako/durafmt"
)

const (
	MaxPayloadBytes = 64 << 10 // 64 KB

	// auditTimeout bounds a single audit trail insert
	auditTimeout = 5 * time.Second
)

// Client-facing error messages
const (
	MsgMissingFields  = "Missing required fields"
	MsgInvalidFields  = "Invalid field values"
	MsgDeliveryFailed = "Failed to send message to Discord"
	MsgInternalError  = "An error occurred while processing your submission"
	MsgInvalidJSON    = "Invalid JSON body"
)

type submitResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

type pingRequest struct {
	PC *string `json:"pc"`
}

type pingResponse struct {
	Status   string  `json:"status"`
	PC       string  `json:"pc"`
	LastPing float64 `json:"last_ping"`
}

type statusResponse struct {
	PC     string `json:"pc"`
	Online bool   `json:"online"`
}

// HandleSubmitForm rate-limits, validates and relays a contact form.
// The rate limit is consumed before the body is inspected, so malformed
// submissions count against the client's window too.
func (s *Server) HandleSubmitForm(w http.ResponseWriter, r *http.Request) {
	ip := ClientIP(r)
	record := &history.SubmissionRecord{SubmissionID: uuid.NewString(), IP: ip}
	logger := s.Logger.With("submission_id", record.SubmissionID, "ip", security.SanitizeLogValue(ip))

	if retryAfter, limited := s.Limiter.CheckAndConsume(ip); limited {
		logger.Warn("Submission rate limited", "retry_in", durafmt.Parse(retryAfter).LimitFirstN(2).String())
		record.Status = history.StatusRateLimited
		s.audit(record, nil)
		s.respondJSON(w, http.StatusTooManyRequests, submitResponse{Error: ratelimit.Message(retryAfter)})
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, MaxPayloadBytes))
	if err != nil {
		logger.Error("Failed to read request body", "error", err)
		record.Status = history.StatusFailed
		s.audit(record, err)
		s.respondJSON(w, http.StatusInternalServerError, submitResponse{Error: MsgInternalError})
		return
	}

	sub, err := relay.ParseSubmission(body, ip)
	if err != nil {
		msg := MsgInvalidFields
		if errors.Is(err, relay.ErrMissingFields) {
			msg = MsgMissingFields
		}
		logger.Info("Rejected invalid submission", "reason", err.Error())
		record.Status = history.StatusInvalid
		s.audit(record, err)
		s.respondJSON(w, http.StatusBadRequest, submitResponse{Error: msg})
		return
	}
	record.Name = sub.Name
	record.Email = sub.Email

	// A client hang-up must not abort a delivery already under way
	if err := s.Relay.Send(context.WithoutCancel(r.Context()), sub); err != nil {
		record.Status = history.StatusFailed
		s.audit(record, err)

		if errors.Is(err, relay.ErrDeliveryFailed) {
			logger.Error("Webhook delivery failed", "error", err)
			s.respondJSON(w, http.StatusInternalServerError, submitResponse{Error: MsgDeliveryFailed})
			return
		}

		logger.Error("Error processing form", "error", err)
		s.respondJSON(w, http.StatusInternalServerError, submitResponse{Error: MsgInternalError})
		return
	}

	logger.Info("Submission relayed")
	record.Status = history.StatusSent
	s.audit(record, nil)
	s.respondJSON(w, http.StatusOK, submitResponse{Success: true})
}

// HandlePing records a heartbeat. The body is decoded regardless of
// Content-Type; a missing "pc" key means presence.UnknownMachine.
func (s *Server) HandlePing(w http.ResponseWriter, r *http.Request) {
	var req pingRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, MaxPayloadBytes)).Decode(&req); err != nil {
		s.Logger.Warn("Invalid ping body", "error", err)
		s.respondJSON(w, http.StatusBadRequest, map[string]string{"status": "error", "error": MsgInvalidJSON})
		return
	}

	name := presence.UnknownMachine
	if req.PC != nil {
		name = *req.PC
	}

	seen := s.Presence.RecordPing(name)
	s.Logger.Debug("Ping recorded", "pc", security.SanitizeLogValue(name))

	s.respondJSON(w, http.StatusOK, pingResponse{
		Status:   "ok",
		PC:       name,
		LastPing: float64(seen.UnixNano()) / float64(time.Second),
	})
}

// HandleStatus reports whether a machine pinged within the online threshold
func (s *Server) HandleStatus(w http.ResponseWriter, r *http.Request) {
	// chi matches against RawPath when the request carried one, and the
	// param is still escaped only in that case
	name := chi.URLParam(r, "pcName")
	if r.URL.RawPath != "" {
		if decoded, err := url.PathUnescape(name); err == nil {
			name = decoded
		}
	}

	s.respondJSON(w, http.StatusOK, statusResponse{
		PC:     name,
		Online: s.Presence.IsOnline(name),
	})
}

// HandleHealth handles health check requests
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":            "ok",
		"machines":          s.Presence.Len(),
		"rate_limited_keys": s.Limiter.Len(),
		"audit_enabled":     s.History != nil,
	}

	s.respondJSON(w, http.StatusOK, response)
}

// audit queues record for the audit trail. The insert waits for a free
// writer slot on its own goroutine, so the response never does.
// cause, when set, is stored as the error message.
func (s *Server) audit(record *history.SubmissionRecord, cause error) {
	if s.History == nil {
		return
	}
	if cause != nil {
		msg := cause.Error()
		record.ErrorMessage = &msg
	}
	record.CreatedAt = time.Now()

	s.auditPending.Add(1)
	go func() {
		defer s.auditPending.Done()

		s.auditWg.Add()
		defer s.auditWg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), auditTimeout)
		defer cancel()

		if _, err := s.History.RecordSubmission(ctx, record); err != nil {
			s.Logger.Error("Failed to record submission", "error", err, "submission_id", record.SubmissionID)
		}
	}()
}

// respondJSON sends a JSON response
func (s *Server) respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	writeJSON(w, statusCode, data, s.Logger)
}

func writeJSON(w http.ResponseWriter, statusCode int, data interface{}, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("Failed to encode JSON response", "error", err)
	}
}
