package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Shivanand-hulikatti/meeting-registration/internal/model"
)

// SQLite is the database/sql Store over modernc.org/sqlite. Timestamps are
// stored as UTC unix milliseconds.
type SQLite struct {
	db *sql.DB
}

// NewSQLite constructs a SQLite store over an opened database.
func NewSQLite(db *sql.DB) *SQLite {
	return &SQLite{db: db}
}

var _ Store = (*SQLite)(nil)

func toMillis(t time.Time) int64 { return t.UTC().UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }

// Ping checks the database handle.
func (r *SQLite) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// GetProfile returns the profile for an identity subject or ErrNotFound.
func (r *SQLite) GetProfile(ctx context.Context, id string) (*model.Profile, error) {
	var p model.Profile
	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, first_name, surname, role FROM profiles WHERE id = ?`, id,
	).Scan(&p.ID, &p.Email, &p.FirstName, &p.Surname, &p.Role)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return &p, nil
}

// PutProfile inserts or replaces a profile.
func (r *SQLite) PutProfile(ctx context.Context, p model.Profile) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO profiles (id, email, first_name, surname, role) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		   email = excluded.email, first_name = excluded.first_name,
		   surname = excluded.surname, role = excluded.role`,
		p.ID, p.Email, p.FirstName, p.Surname, string(p.Role),
	)
	if err != nil {
		return fmt.Errorf("put profile: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteMeeting(row rowScanner) (*model.Meeting, error) {
	var m model.Meeting
	var date, closingAt int64
	var isOpen bool
	if err := row.Scan(&m.ID, &m.Name, &date, &m.Venue, &m.Description, &closingAt, &isOpen); err != nil {
		return nil, err
	}
	m.Date = fromMillis(date)
	m.ClosingAt = fromMillis(closingAt)
	m.IsOpen = isOpen
	return &m, nil
}

// GetMeeting returns a single meeting or ErrNotFound.
func (r *SQLite) GetMeeting(ctx context.Context, id string) (*model.Meeting, error) {
	m, err := scanSQLiteMeeting(r.db.QueryRowContext(ctx,
		`SELECT `+meetingColumns+` FROM meetings WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get meeting: %w", err)
	}
	return m, nil
}

// ListOpenMeetings returns meetings flagged open, soonest first.
func (r *SQLite) ListOpenMeetings(ctx context.Context) ([]model.Meeting, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+meetingColumns+` FROM meetings WHERE is_open = 1 ORDER BY meeting_date, id`)
	if err != nil {
		return nil, fmt.Errorf("list meetings: %w", err)
	}
	defer rows.Close()

	var meetings []model.Meeting
	for rows.Next() {
		m, err := scanSQLiteMeeting(rows)
		if err != nil {
			return nil, fmt.Errorf("scan meeting: %w", err)
		}
		meetings = append(meetings, *m)
	}
	return meetings, rows.Err()
}

// PutMeeting inserts or replaces a meeting.
func (r *SQLite) PutMeeting(ctx context.Context, m model.Meeting) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO meetings (`+meetingColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		   name = excluded.name, meeting_date = excluded.meeting_date,
		   venue = excluded.venue, description = excluded.description,
		   closing_at = excluded.closing_at, is_open = excluded.is_open`,
		m.ID, m.Name, toMillis(m.Date), m.Venue, m.Description, toMillis(m.ClosingAt), m.IsOpen,
	)
	if err != nil {
		return fmt.Errorf("put meeting: %w", err)
	}
	return nil
}

// ListEvents returns active catalog events in list order.
func (r *SQLite) ListEvents(ctx context.Context) ([]model.Event, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, category FROM events WHERE is_active = 1 ORDER BY list_position, id`)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		var e model.Event
		if err := rows.Scan(&e.ID, &e.Name, &e.Category); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// ListAgeGroups returns active age groups in list order.
func (r *SQLite) ListAgeGroups(ctx context.Context) ([]model.AgeGroup, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, min_age, max_age FROM age_groups WHERE is_active = 1 ORDER BY list_position, id`)
	if err != nil {
		return nil, fmt.Errorf("list age groups: %w", err)
	}
	defer rows.Close()

	var groups []model.AgeGroup
	for rows.Next() {
		var g model.AgeGroup
		var minAge, maxAge sql.NullInt64
		if err := rows.Scan(&g.ID, &g.Name, &minAge, &maxAge); err != nil {
			return nil, fmt.Errorf("scan age group: %w", err)
		}
		g.MinAge = nullInt(minAge)
		g.MaxAge = nullInt(maxAge)
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

func nullInt(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

// CreateRegistration writes the registration row and all of its event rows in
// one transaction; any failure rolls the whole set back.
func (r *SQLite) CreateRegistration(ctx context.Context, reg *model.Registration) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	m, err := scanSQLiteMeeting(tx.QueryRowContext(ctx,
		`SELECT `+meetingColumns+` FROM meetings WHERE id = ?`, reg.MeetingID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("read meeting row: %w", err)
	}
	if !m.AcceptsEntries(reg.CreatedAt) {
		return ErrMeetingClosed
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO registrations (id, user_id, meeting_id, total_cost, payment_status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		reg.ID, reg.UserID, reg.MeetingID, reg.TotalCost, reg.PaymentStatus, toMillis(reg.CreatedAt),
	); err != nil {
		return fmt.Errorf("insert registration: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO registration_events
		   (id, registration_id, position, event_id, age_group_id, personal_best, pb_venue, pb_date, cost)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare registration event insert: %w", err)
	}
	defer stmt.Close()

	for i, e := range reg.Events {
		if _, err := stmt.ExecContext(ctx,
			e.ID, reg.ID, i, e.EventID, e.AgeGroupID, e.PersonalBest, nullable(e.PBVenue), nullable(e.PBDate), e.Cost,
		); err != nil {
			return fmt.Errorf("insert registration event: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// ListRegistrationsByUser returns a user's registrations newest first, each
// with its event entries in submission order.
func (r *SQLite) ListRegistrationsByUser(ctx context.Context, userID string) ([]model.Registration, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT r.id, r.user_id, r.meeting_id, r.total_cost, r.payment_status, r.created_at,
		        e.id, e.event_id, e.age_group_id, e.personal_best, e.pb_venue, e.pb_date, e.cost
		 FROM registrations r
		 LEFT JOIN registration_events e ON e.registration_id = r.id
		 WHERE r.user_id = ?
		 ORDER BY r.created_at DESC, r.id, e.position`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	defer rows.Close()

	var joined []registrationRow
	for rows.Next() {
		var row registrationRow
		var createdAt int64
		var entryID, eventID, ageGroupID, pb, pbVenue, pbDate sql.NullString
		var cost sql.NullInt64
		if err := rows.Scan(
			&row.ID, &row.UserID, &row.MeetingID, &row.TotalCost, &row.PaymentStatus, &createdAt,
			&entryID, &eventID, &ageGroupID, &pb, &pbVenue, &pbDate, &cost,
		); err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		row.CreatedAt = fromMillis(createdAt)
		row.EntryID = nullStringPtr(entryID)
		row.EventID = nullStringPtr(eventID)
		row.AgeGroupID = nullStringPtr(ageGroupID)
		row.PersonalBest = nullStringPtr(pb)
		row.PBVenue = nullStringPtr(pbVenue)
		row.PBDate = nullStringPtr(pbDate)
		if cost.Valid {
			row.Cost = &cost.Int64
		}
		joined = append(joined, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate registrations: %w", err)
	}
	return groupRegistrations(joined), nil
}

func nullStringPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	return &s.String
}
