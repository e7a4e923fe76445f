// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Shivanand-hulikatti/meeting-registration/internal/catalog"
	"github.com/Shivanand-hulikatti/meeting-registration/internal/identity"
	"github.com/Shivanand-hulikatti/meeting-registration/internal/model"
	"github.com/Shivanand-hulikatti/meeting-registration/internal/repository"
	"github.com/Shivanand-hulikatti/meeting-registration/internal/service"
)

// SessionResolver turns a session token into a principal.
type SessionResolver interface {
	Resolve(ctx context.Context, token string) (*model.Principal, error)
}

// Registrations is the registration service surface used by the API.
type Registrations interface {
	Commit(ctx context.Context, p *model.Principal, meetingID string, entries []model.EventEntryDraft) (*model.Registration, error)
	ListForCaller(ctx context.Context, caller *model.Principal, userID string) ([]model.Registration, error)
}

// Meetings reads meeting reference data.
type Meetings interface {
	GetMeeting(ctx context.Context, id string) (*model.Meeting, error)
	ListOpenMeetings(ctx context.Context) ([]model.Meeting, error)
}

// Pinger reports storage reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps bundles the collaborators of a Handler.
type Deps struct {
	Sessions      SessionResolver
	Registrations Registrations
	Meetings      Meetings
	Catalog       catalog.Catalog
	Health        Pinger
	SessionCookie string
}

// Handler holds all HTTP handlers for the meeting registration API.
type Handler struct {
	sessions      SessionResolver
	registrations Registrations
	meetings      Meetings
	catalog       catalog.Catalog
	health        Pinger
	cookieName    string
}

// New constructs a Handler.
func New(d Deps) *Handler {
	return &Handler{
		sessions:      d.Sessions,
		registrations: d.Registrations,
		meetings:      d.Meetings,
		catalog:       d.Catalog,
		health:        d.Health,
		cookieName:    d.SessionCookie,
	}
}

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// statusFor maps a service error code onto an HTTP status.
func statusFor(code service.Code) int {
	switch code {
	case service.CodeUnauthenticated:
		return http.StatusUnauthorized
	case service.CodeForbidden:
		return http.StatusForbidden
	case service.CodeMeetingNotFound:
		return http.StatusNotFound
	case service.CodeRegistrationClosed:
		return http.StatusConflict
	case service.CodePersistence:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

// writeServiceError renders a service failure. Persistence failures were
// already logged with full context by the service.
func writeServiceError(w http.ResponseWriter, err error) {
	var svcErr *service.Error
	if !errors.As(err, &svcErr) {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, statusFor(svcErr.Code), model.ErrorResponse{
		Error: svcErr.Message,
		Code:  string(svcErr.Code),
		Field: svcErr.Field,
	})
}

// ─── Session ──────────────────────────────────────────────────────────────────

// Session handles GET /auth/session.
// No token is a valid anonymous state and answers 200 with a null user. A
// token that cannot be tied to a profile answers 401 without saying why.
func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	token := identity.TokenFromRequest(r, h.cookieName)
	if token == "" {
		writeJSON(w, http.StatusOK, model.SessionResponse{})
		return
	}

	p, err := h.sessions.Resolve(r.Context(), token)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, model.SessionResponse{Error: "session could not be verified"})
		return
	}
	writeJSON(w, http.StatusOK, model.SessionResponse{User: p})
}

// Logout handles POST /auth/logout by expiring the session cookie.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}

// ─── Reference data ───────────────────────────────────────────────────────────

// ListMeetings handles GET /meetings
// Returns meetings flagged open, soonest first.
func (h *Handler) ListMeetings(w http.ResponseWriter, r *http.Request) {
	meetings, err := h.meetings.ListOpenMeetings(r.Context())
	if err != nil {
		LoggerFrom(r.Context()).Error("list meetings", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to list meetings")
		return
	}

	// Return an empty array rather than null for better client compatibility.
	if meetings == nil {
		meetings = []model.Meeting{}
	}

	writeJSON(w, http.StatusOK, meetings)
}

// GetMeeting handles GET /meetings/{id}
func (h *Handler) GetMeeting(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	meeting, err := h.meetings.GetMeeting(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "meeting not found")
			return
		}
		LoggerFrom(r.Context()).Error("get meeting", "meeting_id", id, "err", err)
		writeError(w, http.StatusInternalServerError, "failed to get meeting")
		return
	}

	writeJSON(w, http.StatusOK, meeting)
}

// ListEvents handles GET /events
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.catalog.Events(r.Context())
	if err != nil {
		LoggerFrom(r.Context()).Error("list events", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to list events")
		return
	}
	if events == nil {
		events = []model.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

// ListAgeGroups handles GET /age-groups
func (h *Handler) ListAgeGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := h.catalog.AgeGroups(r.Context())
	if err != nil {
		LoggerFrom(r.Context()).Error("list age groups", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to list age groups")
		return
	}
	if groups == nil {
		groups = []model.AgeGroup{}
	}
	writeJSON(w, http.StatusOK, groups)
}

// ─── Registrations ────────────────────────────────────────────────────────────

// SubmitRegistration handles POST /registrations
// Validates the staged entry-set and commits it as one registration.
func (h *Handler) SubmitRegistration(w http.ResponseWriter, r *http.Request) {
	var req model.SubmitRegistrationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	reg, err := h.registrations.Commit(r.Context(), identity.PrincipalFrom(r.Context()), req.MeetingID, req.Events)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, reg)
}

// ListRegistrations handles GET /registrations?userId=
// Returns the user's registrations newest first; userId defaults to the caller.
func (h *Handler) ListRegistrations(w http.ResponseWriter, r *http.Request) {
	regs, err := h.registrations.ListForCaller(r.Context(), identity.PrincipalFrom(r.Context()), r.URL.Query().Get("userId"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if regs == nil {
		regs = []model.Registration{}
	}

	writeJSON(w, http.StatusOK, regs)
}

// ─── Health check ─────────────────────────────────────────────────────────────

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		if err := h.health.Ping(r.Context()); err != nil {
			LoggerFrom(r.Context()).Warn("health check failed", "err", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
