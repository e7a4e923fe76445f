package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Shivanand-hulikatti/meeting-registration/internal/model"
)

// Postgres is the pgx-backed Store.
type Postgres struct {
	db *pgxpool.Pool
}

// NewPostgres constructs a Postgres store over a shared pool.
func NewPostgres(db *pgxpool.Pool) *Postgres {
	return &Postgres{db: db}
}

var _ Store = (*Postgres)(nil)

// Ping checks that the pool can reach the server.
func (r *Postgres) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

// ─── Profiles ────────────────────────────────────────────────────────────────

// GetProfile returns the profile for an identity subject or ErrNotFound.
func (r *Postgres) GetProfile(ctx context.Context, id string) (*model.Profile, error) {
	var p model.Profile
	err := r.db.QueryRow(ctx,
		`SELECT id, email, first_name, surname, role FROM profiles WHERE id = $1`,
		id,
	).Scan(&p.ID, &p.Email, &p.FirstName, &p.Surname, &p.Role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return &p, nil
}

// PutProfile inserts or replaces a profile.
func (r *Postgres) PutProfile(ctx context.Context, p model.Profile) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO profiles (id, email, first_name, surname, role)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO UPDATE SET
		   email = EXCLUDED.email, first_name = EXCLUDED.first_name,
		   surname = EXCLUDED.surname, role = EXCLUDED.role`,
		p.ID, p.Email, p.FirstName, p.Surname, p.Role,
	)
	if err != nil {
		return fmt.Errorf("put profile: %w", err)
	}
	return nil
}

// ─── Meetings ────────────────────────────────────────────────────────────────

const meetingColumns = `id, name, meeting_date, venue, description, closing_at, is_open`

func scanMeeting(row pgx.Row) (*model.Meeting, error) {
	var m model.Meeting
	if err := row.Scan(&m.ID, &m.Name, &m.Date, &m.Venue, &m.Description, &m.ClosingAt, &m.IsOpen); err != nil {
		return nil, err
	}
	m.Date = m.Date.UTC()
	m.ClosingAt = m.ClosingAt.UTC()
	return &m, nil
}

// GetMeeting returns a single meeting or ErrNotFound.
func (r *Postgres) GetMeeting(ctx context.Context, id string) (*model.Meeting, error) {
	m, err := scanMeeting(r.db.QueryRow(ctx,
		`SELECT `+meetingColumns+` FROM meetings WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get meeting: %w", err)
	}
	return m, nil
}

// ListOpenMeetings returns meetings flagged open, soonest first.
func (r *Postgres) ListOpenMeetings(ctx context.Context) ([]model.Meeting, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+meetingColumns+` FROM meetings WHERE is_open ORDER BY meeting_date, id`)
	if err != nil {
		return nil, fmt.Errorf("list meetings: %w", err)
	}
	defer rows.Close()

	var meetings []model.Meeting
	for rows.Next() {
		m, err := scanMeeting(rows)
		if err != nil {
			return nil, fmt.Errorf("scan meeting: %w", err)
		}
		meetings = append(meetings, *m)
	}
	return meetings, rows.Err()
}

// PutMeeting inserts or replaces a meeting.
func (r *Postgres) PutMeeting(ctx context.Context, m model.Meeting) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO meetings (`+meetingColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (id) DO UPDATE SET
		   name = EXCLUDED.name, meeting_date = EXCLUDED.meeting_date,
		   venue = EXCLUDED.venue, description = EXCLUDED.description,
		   closing_at = EXCLUDED.closing_at, is_open = EXCLUDED.is_open`,
		m.ID, m.Name, m.Date.UTC(), m.Venue, m.Description, m.ClosingAt.UTC(), m.IsOpen,
	)
	if err != nil {
		return fmt.Errorf("put meeting: %w", err)
	}
	return nil
}

// ─── Catalog ─────────────────────────────────────────────────────────────────

// ListEvents returns active catalog events in list order.
func (r *Postgres) ListEvents(ctx context.Context) ([]model.Event, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, name, category FROM events WHERE is_active ORDER BY list_position, id`)
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
func (r *Postgres) ListAgeGroups(ctx context.Context) ([]model.AgeGroup, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, name, min_age, max_age FROM age_groups WHERE is_active ORDER BY list_position, id`)
	if err != nil {
		return nil, fmt.Errorf("list age groups: %w", err)
	}
	defer rows.Close()

	var groups []model.AgeGroup
	for rows.Next() {
		var g model.AgeGroup
		if err := rows.Scan(&g.ID, &g.Name, &g.MinAge, &g.MaxAge); err != nil {
			return nil, fmt.Errorf("scan age group: %w", err)
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// ─── Registrations ───────────────────────────────────────────────────────────

// CreateRegistration writes the registration row and all of its event rows in
// one transaction. Nothing is visible to readers until COMMIT; any failure
// rolls back the parent row together with whatever children were written.
//
// The meeting row is read with FOR SHARE so a concurrent close (which needs
// FOR UPDATE / UPDATE) waits until this commit finishes. Entries that pass the
// open check here can never land in a meeting that was closed mid-commit.
func (r *Postgres) CreateRegistration(ctx context.Context, reg *model.Registration) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	// Rollback after a successful Commit is a no-op.
	defer func() { _ = tx.Rollback(ctx) }()

	// ── Step 1: lock the meeting and re-check that it still accepts entries.
	m, err := scanMeeting(tx.QueryRow(ctx,
		`SELECT `+meetingColumns+` FROM meetings WHERE id = $1 FOR SHARE`, reg.MeetingID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("lock meeting row: %w", err)
	}
	if !m.AcceptsEntries(reg.CreatedAt) {
		return ErrMeetingClosed
	}

	// ── Step 2: parent row.
	_, err = tx.Exec(ctx,
		`INSERT INTO registrations (id, user_id, meeting_id, total_cost, payment_status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		reg.ID, reg.UserID, reg.MeetingID, reg.TotalCost, reg.PaymentStatus, reg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert registration: %w", err)
	}

	// ── Step 3: child rows, pipelined in a single round trip.
	batch := &pgx.Batch{}
	for i, e := range reg.Events {
		batch.Queue(
			`INSERT INTO registration_events
			   (id, registration_id, position, event_id, age_group_id, personal_best, pb_venue, pb_date, cost)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			e.ID, reg.ID, i, e.EventID, e.AgeGroupID, e.PersonalBest, nullable(e.PBVenue), nullable(e.PBDate), e.Cost,
		)
	}
	br := tx.SendBatch(ctx, batch)
	for range reg.Events {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("insert registration event: %w", err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("close batch: %w", err)
	}

	// ── Step 4: commit. Only now do readers see the registration.
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// ListRegistrationsByUser returns a user's registrations newest first, each
// with its event entries in submission order.
func (r *Postgres) ListRegistrationsByUser(ctx context.Context, userID string) ([]model.Registration, error) {
	rows, err := r.db.Query(ctx,
		`SELECT r.id, r.user_id, r.meeting_id, r.total_cost, r.payment_status, r.created_at,
		        e.id, e.event_id, e.age_group_id, e.personal_best, e.pb_venue, e.pb_date, e.cost
		 FROM registrations r
		 LEFT JOIN registration_events e ON e.registration_id = r.id
		 WHERE r.user_id = $1
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
		if err := rows.Scan(
			&row.ID, &row.UserID, &row.MeetingID, &row.TotalCost, &row.PaymentStatus, &row.CreatedAt,
			&row.EntryID, &row.EventID, &row.AgeGroupID, &row.PersonalBest, &row.PBVenue, &row.PBDate, &row.Cost,
		); err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		row.CreatedAt = row.CreatedAt.UTC()
		joined = append(joined, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate registrations: %w", err)
	}
	return groupRegistrations(joined), nil
}
