package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/Shivanand-hulikatti/meeting-registration/internal/catalog"
	"github.com/Shivanand-hulikatti/meeting-registration/internal/database"
	"github.com/Shivanand-hulikatti/meeting-registration/internal/metrics"
	"github.com/Shivanand-hulikatti/meeting-registration/internal/model"
	"github.com/Shivanand-hulikatti/meeting-registration/internal/repository"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

var (
	participant = &model.Principal{ID: "p1", Email: "p1@example.com", Role: model.RoleParticipant}
	manager     = &model.Principal{ID: "mgr", Email: "mgr@example.com", Role: model.RoleManager}
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestService returns a service over a fresh SQLite store seeded with an
// open meeting M1, a closed meeting M2 and a meeting M3 whose closing time
// has passed.
func newTestService(t *testing.T, opts ...Option) (*RegistrationService, *repository.SQLite) {
	t.Helper()
	ctx := context.Background()
	db, err := database.OpenSQLite(ctx, filepath.Join(t.TempDir(), "svc.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	store := repository.NewSQLite(db)

	for _, p := range []model.Profile{
		{ID: participant.ID, Email: participant.Email, Role: model.RoleParticipant},
		{ID: manager.ID, Email: manager.Email, Role: model.RoleManager},
	} {
		require.NoError(t, store.PutProfile(ctx, p))
	}
	for _, m := range []model.Meeting{
		{ID: "M1", Name: "Spring Open", Date: testNow.Add(30 * 24 * time.Hour), ClosingAt: testNow.Add(7 * 24 * time.Hour), IsOpen: true},
		{ID: "M2", Name: "Closed Classic", Date: testNow.Add(30 * 24 * time.Hour), ClosingAt: testNow.Add(7 * 24 * time.Hour), IsOpen: false},
		{ID: "M3", Name: "Past Deadline", Date: testNow.Add(2 * 24 * time.Hour), ClosingAt: testNow.Add(-time.Hour), IsOpen: true},
	} {
		require.NoError(t, store.PutMeeting(ctx, m))
	}

	base := []Option{WithClock(func() time.Time { return testNow }), WithLogger(discardLogger())}
	return NewRegistrationService(store, catalog.Static{}, append(base, opts...)...), store
}

func entry(eventID string) model.EventEntryDraft {
	return model.EventEntryDraft{EventID: eventID, AgeGroupID: "4", PersonalBest: "10.50"}
}

func entries(n int) []model.EventEntryDraft {
	out := make([]model.EventEntryDraft, n)
	for i := range out {
		out[i] = entry(fmt.Sprint(i%12 + 1))
	}
	return out
}

func requireCode(t require.TestingT, err error, code Code) *Error {
	var svcErr *Error
	require.ErrorAs(t, err, &svcErr)
	require.Equal(t, code, svcErr.Code, svcErr.Message)
	return svcErr
}

func TestCommit_TwoEntries(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	reg, err := svc.Commit(ctx, participant, "M1", []model.EventEntryDraft{
		{EventID: "1", AgeGroupID: "4", PersonalBest: "10.50"},
		{EventID: "8", AgeGroupID: "4", PersonalBest: "6.20", PBVenue: " Bedford ", PBDate: "2025-06-01"},
	})
	require.NoError(t, err)
	require.Equal(t, int64(20), reg.TotalCost)
	require.Equal(t, model.PaymentPending, reg.PaymentStatus)
	require.Equal(t, participant.ID, reg.UserID)
	require.True(t, reg.CreatedAt.Equal(testNow))
	require.Len(t, reg.Events, 2)
	require.Equal(t, "Bedford", reg.Events[1].PBVenue, "optional fields are trimmed")
	for _, e := range reg.Events {
		require.Equal(t, int64(10), e.Cost)
		require.NotEmpty(t, e.ID)
	}

	regs, err := store.ListRegistrationsByUser(ctx, participant.ID)
	require.NoError(t, err)
	require.Len(t, regs, 1)
	require.Equal(t, reg.ID, regs[0].ID)
	require.Equal(t, reg.Events, regs[0].Events)
}

func TestCommit_UnitCostOption(t *testing.T) {
	svc, _ := newTestService(t, WithUnitCost(25))
	reg, err := svc.Commit(context.Background(), participant, "M1", entries(3))
	require.NoError(t, err)
	require.Equal(t, int64(75), reg.TotalCost)
	require.Equal(t, int64(25), svc.UnitCost())
}

func TestCommit_Failures(t *testing.T) {
	tests := []struct {
		name      string
		principal *model.Principal
		meetingID string
		entries   []model.EventEntryDraft
		code      Code
		field     string
		index     int
	}{
		{name: "anonymous", meetingID: "M1", entries: entries(1), code: CodeUnauthenticated, index: -1},
		{name: "manager", principal: manager, meetingID: "M1", entries: entries(1), code: CodeForbidden, index: -1},
		{name: "blank meeting", principal: participant, meetingID: "  ", entries: entries(1), code: CodeMissingFields, index: -1},
		{name: "nil events", principal: participant, meetingID: "M1", code: CodeMissingFields, index: -1},
		{name: "empty events", principal: participant, meetingID: "M1", entries: []model.EventEntryDraft{}, code: CodeTooFewEvents, index: -1},
		{name: "six events", principal: participant, meetingID: "M1", entries: entries(6), code: CodeTooManyEvents, index: -1},
		{
			name: "missing event id", principal: participant, meetingID: "M1",
			entries: []model.EventEntryDraft{entry("1"), {AgeGroupID: "4", PersonalBest: "1"}},
			code:    CodeIncompleteEntry, field: "eventId", index: 1,
		},
		{
			name: "missing age group", principal: participant, meetingID: "M1",
			entries: []model.EventEntryDraft{{EventID: "1", PersonalBest: "1"}},
			code:    CodeIncompleteEntry, field: "ageGroupId", index: 0,
		},
		{
			name: "whitespace personal best", principal: participant, meetingID: "M1",
			entries: []model.EventEntryDraft{{EventID: "1", AgeGroupID: "4", PersonalBest: "   "}},
			code:    CodeIncompleteEntry, field: "personalBest", index: 0,
		},
		{
			name: "unknown event", principal: participant, meetingID: "M1",
			entries: []model.EventEntryDraft{entry("1"), entry("99")},
			code:    CodeUnknownReference, field: "eventId", index: 1,
		},
		{
			name: "unknown age group", principal: participant, meetingID: "M1",
			entries: []model.EventEntryDraft{{EventID: "1", AgeGroupID: "42", PersonalBest: "1"}},
			code:    CodeUnknownReference, field: "ageGroupId", index: 0,
		},
		{name: "no such meeting", principal: participant, meetingID: "nope", entries: entries(1), code: CodeMeetingNotFound, index: -1},
		{name: "closed meeting", principal: participant, meetingID: "M2", entries: entries(2), code: CodeRegistrationClosed, index: -1},
		{name: "past closing time", principal: participant, meetingID: "M3", entries: entries(2), code: CodeRegistrationClosed, index: -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store := newTestService(t)
			ctx := context.Background()

			reg, err := svc.Commit(ctx, tt.principal, tt.meetingID, tt.entries)
			require.Nil(t, reg)
			svcErr := requireCode(t, err, tt.code)
			require.Equal(t, tt.field, svcErr.Field)
			require.Equal(t, tt.index, svcErr.Index)

			for _, id := range []string{participant.ID, manager.ID} {
				regs, err := store.ListRegistrationsByUser(ctx, id)
				require.NoError(t, err)
				require.Empty(t, regs, "a rejected commit writes nothing")
			}
		})
	}
}

func TestCommit_ErrorsIsByCode(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Commit(context.Background(), participant, "M1", entries(6))
	require.ErrorIs(t, err, ErrTooManyEvents)
	require.NotErrorIs(t, err, ErrTooFewEvents)

	var svcErr *Error
	require.ErrorAs(t, err, &svcErr)
	require.Equal(t, KindValidation, svcErr.Kind())
}

func TestCommit_DuplicateSubmissionsAreSeparate(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	first, err := svc.Commit(ctx, participant, "M1", entries(2))
	require.NoError(t, err)
	second, err := svc.Commit(ctx, participant, "M1", entries(2))
	require.NoError(t, err)
	require.NotEqual(t, first.ID, second.ID)

	regs, err := store.ListRegistrationsByUser(ctx, participant.ID)
	require.NoError(t, err)
	require.Len(t, regs, 2)
}

// failingStore delegates reads to an inner store and fails writes.
type failingStore struct {
	Store
	err error
}

func (f failingStore) CreateRegistration(context.Context, *model.Registration) error {
	return f.err
}

func TestCommit_PersistenceFailureIsGeneric(t *testing.T) {
	_, inner := newTestService(t)
	cause := errors.New("pq: connection reset by peer at 10.0.0.7:5432")
	svc := NewRegistrationService(failingStore{Store: inner, err: cause}, catalog.Static{},
		WithClock(func() time.Time { return testNow }), WithLogger(discardLogger()))

	_, err := svc.Commit(context.Background(), participant, "M1", entries(1))
	svcErr := requireCode(t, err, CodePersistence)
	require.Equal(t, KindPersistence, svcErr.Kind())
	require.NotContains(t, svcErr.Message, "10.0.0.7")
	require.ErrorIs(t, err, cause)
}

func TestCommit_StoreStateErrorsMapToStateCodes(t *testing.T) {
	_, inner := newTestService(t)
	for storeErr, code := range map[error]Code{
		repository.ErrNotFound:      CodeMeetingNotFound,
		repository.ErrMeetingClosed: CodeRegistrationClosed,
	} {
		svc := NewRegistrationService(failingStore{Store: inner, err: storeErr}, catalog.Static{},
			WithClock(func() time.Time { return testNow }), WithLogger(discardLogger()))
		_, err := svc.Commit(context.Background(), participant, "M1", entries(1))
		requireCode(t, err, code)
	}
}

func TestCommit_RecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	svc, _ := newTestService(t, WithMetrics(metrics.New(reg)))
	ctx := context.Background()

	_, err := svc.Commit(ctx, participant, "M1", entries(2))
	require.NoError(t, err)
	_, err = svc.Commit(ctx, participant, "M1", entries(6))
	require.Error(t, err)

	families, err := reg.Gather()
	require.NoError(t, err)
	outcomes := map[string]float64{}
	for _, f := range families {
		if f.GetName() != "meetings_registration_commits_total" {
			continue
		}
		for _, m := range f.GetMetric() {
			outcomes[m.GetLabel()[0].GetValue()] = m.GetCounter().GetValue()
		}
	}
	require.Equal(t, map[string]float64{"ok": 1, "too_many_events": 1}, outcomes)
}

func TestCommit_EntryCountProperty(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(0, 10).Draw(rt, "n")
		before, err := store.ListRegistrationsByUser(ctx, participant.ID)
		require.NoError(rt, err)

		reg, err := svc.Commit(ctx, participant, "M1", entries(n))

		after, listErr := store.ListRegistrationsByUser(ctx, participant.ID)
		require.NoError(rt, listErr)

		switch {
		case n == 0:
			requireCode(rt, err, CodeTooFewEvents)
			require.Len(rt, after, len(before))
		case n > model.MaxEntries:
			requireCode(rt, err, CodeTooManyEvents)
			require.Len(rt, after, len(before))
		default:
			require.NoError(rt, err)
			require.Len(rt, reg.Events, n)
			require.Equal(rt, int64(n)*DefaultUnitCost, reg.TotalCost)
			require.Len(rt, after, len(before)+1)
		}
	})
}

func TestListForCaller(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Commit(ctx, participant, "M1", entries(1))
	require.NoError(t, err)

	own, err := svc.ListForCaller(ctx, participant, "")
	require.NoError(t, err)
	require.Len(t, own, 1)

	_, err = svc.ListForCaller(ctx, nil, participant.ID)
	requireCode(t, err, CodeUnauthenticated)

	_, err = svc.ListForCaller(ctx, &model.Principal{ID: "p2", Role: model.RoleParticipant}, participant.ID)
	requireCode(t, err, CodeForbidden)

	theirs, err := svc.ListForCaller(ctx, manager, participant.ID)
	require.NoError(t, err)
	require.Len(t, theirs, 1)

	none, err := svc.ListForCaller(ctx, manager, "")
	require.NoError(t, err)
	require.Empty(t, none)
}
