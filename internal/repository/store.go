// Package repository implements persistence for meetings, profiles, the
// reference catalog and registrations. Two backends are provided: PostgreSQL
// through pgx and SQLite through database/sql. Both commit a registration and
// its event rows inside one native transaction.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Shivanand-hulikatti/meeting-registration/internal/model"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// ErrMeetingClosed is returned when a meeting stopped accepting entries before
// the registration transaction could lock it.
var ErrMeetingClosed = errors.New("meeting is closed for registration")

// Store is the full persistence surface used by the server.
type Store interface {
	Ping(ctx context.Context) error

	GetProfile(ctx context.Context, id string) (*model.Profile, error)
	PutProfile(ctx context.Context, p model.Profile) error

	GetMeeting(ctx context.Context, id string) (*model.Meeting, error)
	ListOpenMeetings(ctx context.Context) ([]model.Meeting, error)
	PutMeeting(ctx context.Context, m model.Meeting) error

	ListEvents(ctx context.Context) ([]model.Event, error)
	ListAgeGroups(ctx context.Context) ([]model.AgeGroup, error)

	CreateRegistration(ctx context.Context, reg *model.Registration) error
	ListRegistrationsByUser(ctx context.Context, userID string) ([]model.Registration, error)
}

// registrationRow is one row of the registrations LEFT JOIN
// registration_events query. Entry columns are nil when the registration has
// no event rows.
type registrationRow struct {
	ID            string
	UserID        string
	MeetingID     string
	TotalCost     int64
	PaymentStatus string
	CreatedAt     time.Time

	EntryID      *string
	EventID      *string
	AgeGroupID   *string
	PersonalBest *string
	PBVenue      *string
	PBDate       *string
	Cost         *int64
}

// groupRegistrations folds joined rows back into nested registrations.
// Rows are keyed strictly by registration id and the first-seen order of ids
// is kept, so the caller's ORDER BY decides the result order. A registration
// without event rows is kept with an empty Events slice.
func groupRegistrations(rows []registrationRow) []model.Registration {
	out := make([]model.Registration, 0)
	index := make(map[string]int)

	for _, row := range rows {
		i, ok := index[row.ID]
		if !ok {
			i = len(out)
			index[row.ID] = i
			out = append(out, model.Registration{
				ID:            row.ID,
				UserID:        row.UserID,
				MeetingID:     row.MeetingID,
				Events:        []model.EventEntry{},
				TotalCost:     row.TotalCost,
				PaymentStatus: row.PaymentStatus,
				CreatedAt:     row.CreatedAt,
			})
		}
		if row.EntryID == nil {
			continue
		}
		out[i].Events = append(out[i].Events, model.EventEntry{
			ID:           *row.EntryID,
			EventID:      deref(row.EventID),
			AgeGroupID:   deref(row.AgeGroupID),
			PersonalBest: deref(row.PersonalBest),
			PBVenue:      deref(row.PBVenue),
			PBDate:       deref(row.PBDate),
			Cost:         derefInt(row.Cost),
		})
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefInt(n *int64) int64 {
	if n == nil {
		return 0
	}
	return *n
}

// nullable maps an empty optional field to SQL NULL.
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
