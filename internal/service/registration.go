// Package service implements the registration pipeline: validation of a
// staged entry-set, cost computation, and the hand-off to the transactional
// repository, plus reading a participant's past registrations.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/Shivanand-hulikatti/meeting-registration/internal/catalog"
	"github.com/Shivanand-hulikatti/meeting-registration/internal/metrics"
	"github.com/Shivanand-hulikatti/meeting-registration/internal/model"
	"github.com/Shivanand-hulikatti/meeting-registration/internal/repository"
)

// DefaultUnitCost is the per-entry fee used when none is configured.
const DefaultUnitCost int64 = 10

var tracer = otel.Tracer("service")

// Store is the persistence the registration pipeline needs.
type Store interface {
	GetMeeting(ctx context.Context, id string) (*model.Meeting, error)
	CreateRegistration(ctx context.Context, reg *model.Registration) error
	ListRegistrationsByUser(ctx context.Context, userID string) ([]model.Registration, error)
}

// RegistrationService validates and commits registrations.
type RegistrationService struct {
	store    Store
	catalog  catalog.Catalog
	unitCost int64
	now      func() time.Time
	newID    func() string
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// Option customises a RegistrationService.
type Option func(*RegistrationService)

// WithUnitCost sets the flat per-entry fee.
func WithUnitCost(cost int64) Option {
	return func(s *RegistrationService) { s.unitCost = cost }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *RegistrationService) { s.now = now }
}

// WithIDGenerator overrides uuid generation.
func WithIDGenerator(newID func() string) Option {
	return func(s *RegistrationService) { s.newID = newID }
}

// WithLogger sets the logger used for persistence failures.
func WithLogger(logger *slog.Logger) Option {
	return func(s *RegistrationService) { s.logger = logger }
}

// WithMetrics records commit outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *RegistrationService) { s.metrics = m }
}

// NewRegistrationService constructs a RegistrationService with its dependencies.
func NewRegistrationService(store Store, cat catalog.Catalog, opts ...Option) *RegistrationService {
	s := &RegistrationService{
		store:    store,
		catalog:  cat,
		unitCost: DefaultUnitCost,
		now:      time.Now,
		newID:    uuid.NewString,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// UnitCost returns the per-entry fee applied at commit.
func (s *RegistrationService) UnitCost() int64 {
	return s.unitCost
}

// Commit validates entries and atomically persists one registration plus one
// event row per entry. Checks run in a fixed order and the first failure wins:
//
//  1. the principal exists and may register
//  2. the meeting id is present and 1..5 entries were sent
//  3. every entry names an event, an age group and a personal best, and both
//     ids resolve in the catalog
//  4. the meeting exists and is accepting entries
//
// On any failure nothing is written. Identical commits are not deduplicated.
func (s *RegistrationService) Commit(
	ctx context.Context,
	principal *model.Principal,
	meetingID string,
	entries []model.EventEntryDraft,
) (reg *model.Registration, err error) {
	ctx, span := tracer.Start(ctx, "registration.Commit")
	defer func() {
		outcome := "ok"
		var svcErr *Error
		if errors.As(err, &svcErr) {
			outcome = string(svcErr.Code)
			span.SetStatus(codes.Error, outcome)
		}
		span.SetAttributes(attribute.String("outcome", outcome), attribute.Int("entries", len(entries)))
		span.End()
		s.metrics.ObserveCommit(outcome, len(entries))
	}()

	// ── 1. Authorisation ────────────────────────────────────────────────
	if principal == nil {
		return nil, newError(CodeUnauthenticated, "authentication required")
	}
	if !principal.CanRegister() {
		return nil, newError(CodeForbidden, "only participants can register for events")
	}

	// ── 2. Shape and bounds ─────────────────────────────────────────────
	meetingID = strings.TrimSpace(meetingID)
	if meetingID == "" || entries == nil {
		return nil, newError(CodeMissingFields, "meetingId and events are required")
	}
	if len(entries) < 1 {
		return nil, newError(CodeTooFewEvents, "at least one event is required")
	}
	if len(entries) > model.MaxEntries {
		return nil, newError(CodeTooManyEvents, fmt.Sprintf("maximum %d events allowed", model.MaxEntries))
	}

	// ── 3. Entry completeness and catalog references ────────────────────
	drafts := normalize(entries)
	for i, d := range drafts {
		switch {
		case d.EventID == "":
			return nil, entryError(CodeIncompleteEntry, i, "eventId", fmt.Sprintf("event %d: eventId is required", i+1))
		case d.AgeGroupID == "":
			return nil, entryError(CodeIncompleteEntry, i, "ageGroupId", fmt.Sprintf("event %d: ageGroupId is required", i+1))
		case d.PersonalBest == "":
			return nil, entryError(CodeIncompleteEntry, i, "personalBest", fmt.Sprintf("event %d: personalBest is required", i+1))
		}
	}
	if err := s.checkReferences(ctx, drafts); err != nil {
		return nil, err
	}

	// ── 4. Meeting state ────────────────────────────────────────────────
	now := s.now().UTC().Truncate(time.Millisecond)
	meeting, err := s.store.GetMeeting(ctx, meetingID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, newError(CodeMeetingNotFound, "meeting not found")
		}
		return nil, s.persistenceFailure(ctx, "load meeting", principal, meetingID, len(drafts), err)
	}
	if !meeting.AcceptsEntries(now) {
		return nil, newError(CodeRegistrationClosed, "registration for this meeting is closed")
	}

	// ── 5. Build and commit ─────────────────────────────────────────────
	reg = s.build(principal.ID, meetingID, drafts, now)
	if err := s.store.CreateRegistration(ctx, reg); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, newError(CodeMeetingNotFound, "meeting not found")
		case errors.Is(err, repository.ErrMeetingClosed):
			return nil, newError(CodeRegistrationClosed, "registration for this meeting is closed")
		}
		return nil, s.persistenceFailure(ctx, "create registration", principal, meetingID, len(drafts), err)
	}

	s.logger.InfoContext(ctx, "registration committed",
		"registration_id", reg.ID, "user_id", reg.UserID, "meeting_id", reg.MeetingID,
		"entries", len(reg.Events), "total_cost", reg.TotalCost)
	return reg, nil
}

// build materialises the registration. totalCost is computed exactly once
// here and each entry carries the unit cost it was charged.
func (s *RegistrationService) build(userID, meetingID string, drafts []model.EventEntryDraft, now time.Time) *model.Registration {
	events := make([]model.EventEntry, len(drafts))
	for i, d := range drafts {
		events[i] = model.EventEntry{
			ID:           s.newID(),
			EventID:      d.EventID,
			AgeGroupID:   d.AgeGroupID,
			PersonalBest: d.PersonalBest,
			PBVenue:      d.PBVenue,
			PBDate:       d.PBDate,
			Cost:         s.unitCost,
		}
	}
	return &model.Registration{
		ID:            s.newID(),
		UserID:        userID,
		MeetingID:     meetingID,
		Events:        events,
		TotalCost:     int64(len(events)) * s.unitCost,
		PaymentStatus: model.PaymentPending,
		CreatedAt:     now,
	}
}

func (s *RegistrationService) checkReferences(ctx context.Context, drafts []model.EventEntryDraft) error {
	for i, d := range drafts {
		ok, err := catalog.HasEvent(ctx, s.catalog, d.EventID)
		if err != nil {
			return s.persistenceFailure(ctx, "load event catalog", nil, "", len(drafts), err)
		}
		if !ok {
			return entryError(CodeUnknownReference, i, "eventId", fmt.Sprintf("event %d: unknown event %q", i+1, d.EventID))
		}
		ok, err = catalog.HasAgeGroup(ctx, s.catalog, d.AgeGroupID)
		if err != nil {
			return s.persistenceFailure(ctx, "load age group catalog", nil, "", len(drafts), err)
		}
		if !ok {
			return entryError(CodeUnknownReference, i, "ageGroupId", fmt.Sprintf("event %d: unknown age group %q", i+1, d.AgeGroupID))
		}
	}
	return nil
}

// persistenceFailure logs full context and returns a generic retryable error
// that carries no storage detail in its message.
func (s *RegistrationService) persistenceFailure(
	ctx context.Context, op string, principal *model.Principal, meetingID string, entries int, cause error,
) *Error {
	attrs := []any{"op", op, "meeting_id", meetingID, "entries", entries, "err", cause}
	if principal != nil {
		attrs = append(attrs, "user_id", principal.ID)
	}
	s.logger.ErrorContext(ctx, "registration storage failure", attrs...)
	return &Error{
		Code:    CodePersistence,
		Message: "registration could not be saved, please retry",
		Index:   -1,
		Cause:   cause,
	}
}

func normalize(entries []model.EventEntryDraft) []model.EventEntryDraft {
	out := make([]model.EventEntryDraft, len(entries))
	for i, e := range entries {
		out[i] = model.EventEntryDraft{
			EventID:      strings.TrimSpace(e.EventID),
			AgeGroupID:   strings.TrimSpace(e.AgeGroupID),
			PersonalBest: strings.TrimSpace(e.PersonalBest),
			PBVenue:      strings.TrimSpace(e.PBVenue),
			PBDate:       strings.TrimSpace(e.PBDate),
		}
	}
	return out
}

// ListForUser returns userID's registrations newest first.
func (s *RegistrationService) ListForUser(ctx context.Context, userID string) ([]model.Registration, error) {
	ctx, span := tracer.Start(ctx, "registration.ListForUser")
	defer span.End()

	regs, err := s.store.ListRegistrationsByUser(ctx, userID)
	if err != nil {
		return nil, s.persistenceFailure(ctx, "list registrations", nil, "", 0, err)
	}
	return regs, nil
}

// ListForCaller applies read authorisation before ListForUser: participants
// may read only their own registrations, managers may read anyone's. An empty
// userID means the caller's own.
func (s *RegistrationService) ListForCaller(ctx context.Context, caller *model.Principal, userID string) ([]model.Registration, error) {
	if caller == nil {
		return nil, newError(CodeUnauthenticated, "authentication required")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		userID = caller.ID
	}
	if userID != caller.ID && caller.Role != model.RoleManager {
		return nil, newError(CodeForbidden, "cannot list another user's registrations")
	}
	return s.ListForUser(ctx, userID)
}
