package repository

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"github.com/iliyamo/campus-events/internal/model"
)

// EventRepo manages persistence for events.  Times are stored as UTC
// DATETIME values.
type EventRepo struct {
	db *sql.DB
}

func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

// DB exposes the underlying handle for callers that need a transaction
// spanning several repositories.
func (r *EventRepo) DB() *sql.DB { return r.db }

const eventColumns = `e.id, e.college_id, e.title, e.description, e.category, e.venue, e.city,
	e.latitude, e.longitude, e.starts_at, e.ends_at, e.total_seats, e.seats_booked, e.price_cents,
	e.poster_url, e.registration_url, e.external_sheet_id, e.status, e.rejection_reason,
	e.created_at, e.updated_at`

func scanEvent(row rowScanner, extra ...interface{}) (*model.Event, error) {
	var e model.Event
	var lat, lng sql.NullFloat64
	var poster, regURL, sheet, reason sql.NullString
	dest := []interface{}{
		&e.ID, &e.CollegeID, &e.Title, &e.Description, &e.Category, &e.Venue, &e.City,
		&lat, &lng, &e.StartsAt, &e.EndsAt, &e.TotalSeats, &e.SeatsBooked, &e.PriceCents,
		&poster, &regURL, &sheet, &e.Status, &reason, &e.CreatedAt, &e.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	e.Latitude, e.Longitude = nullFloat(lat), nullFloat(lng)
	e.PosterURL, e.RegistrationURL = nullString(poster), nullString(regURL)
	e.ExternalSheetID, e.RejectionReason = nullString(sheet), nullString(reason)
	e.StartsAt, e.EndsAt = e.StartsAt.UTC(), e.EndsAt.UTC()
	return &e, nil
}

// Create inserts a new event and populates its generated fields.
func (r *EventRepo) Create(ctx context.Context, e *model.Event) error {
	const q = `INSERT INTO events (college_id, title, description, category, venue, city, latitude, longitude,
	           starts_at, ends_at, total_seats, price_cents, poster_url, registration_url, external_sheet_id, status)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q,
		e.CollegeID, e.Title, e.Description, e.Category, e.Venue, e.City, e.Latitude, e.Longitude,
		e.StartsAt.UTC(), e.EndsAt.UTC(), e.TotalSeats, e.PriceCents, e.PosterURL, e.RegistrationURL,
		e.ExternalSheetID, e.Status)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	fresh, err := r.GetByID(ctx, uint64(id))
	if err != nil {
		return err
	}
	*e = *fresh
	return nil
}

// GetByID retrieves an event by its ID.
func (r *EventRepo) GetByID(ctx context.Context, id uint64) (*model.Event, error) {
	return scanEvent(r.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events e WHERE e.id = ?`, id))
}

// GetForCollege returns an event owned by collegeID.  ErrForbidden is
// returned when the event exists but belongs to another college.
func (r *EventRepo) GetForCollege(ctx context.Context, id, collegeID uint64) (*model.Event, error) {
	e, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.CollegeID != collegeID {
		return nil, ErrForbidden
	}
	return e, nil
}

// Update writes the editable fields under a row lock.  The price is frozen
// once the event has any booking of its own.  The window must still contain
// every session.
func (r *EventRepo) Update(ctx context.Context, e *model.Event) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	var booked, price uint32
	err = tx.QueryRowContext(ctx, `SELECT seats_booked, price_cents FROM events WHERE id = ? FOR UPDATE`, e.ID).
		Scan(&booked, &price)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrEventNotFound
	}
	if err != nil {
		return err
	}
	if e.TotalSeats < booked {
		return model.ErrSeatsBelowBooked
	}
	if e.PriceCents != price {
		var hasBookings bool
		if err = tx.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM bookings WHERE event_id = ? AND sub_event_id IS NULL)`, e.ID).
			Scan(&hasBookings); err != nil {
			return err
		}
		if hasBookings {
			return errors.Wrap(ErrConflict, "price is locked once the event has bookings")
		}
	}
	var outside int
	if err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sub_events WHERE event_id = ? AND (starts_at < ? OR ends_at > ?)`,
		e.ID, e.StartsAt.UTC(), e.EndsAt.UTC()).Scan(&outside); err != nil {
		return err
	}
	if outside > 0 {
		return model.ErrOutsideParent
	}
	const q = `UPDATE events SET title = ?, description = ?, category = ?, venue = ?, city = ?,
	           latitude = ?, longitude = ?, starts_at = ?, ends_at = ?, total_seats = ?, price_cents = ?,
	           poster_url = ?, registration_url = ?, external_sheet_id = ?, status = ?, rejection_reason = ?
	           WHERE id = ?`
	if _, err = tx.ExecContext(ctx, q,
		e.Title, e.Description, e.Category, e.Venue, e.City, e.Latitude, e.Longitude,
		e.StartsAt.UTC(), e.EndsAt.UTC(), e.TotalSeats, e.PriceCents, e.PosterURL, e.RegistrationURL,
		e.ExternalSheetID, e.Status, e.RejectionReason, e.ID); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return err
	}
	committed = true
	e.SeatsBooked = booked
	return nil
}

// SetStatus moves an event from one status to another.  The WHERE clause
// on the previous status makes concurrent moderation decisions safe.
func (r *EventRepo) SetStatus(ctx context.Context, id uint64, from, to string, reason *string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE events SET status = ?, rejection_reason = ? WHERE id = ? AND status = ?`,
		to, reason, id, from)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return model.ErrInvalidTransition
	}
	return nil
}

// Delete removes an event that never took a booking.
func (r *EventRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM events WHERE id = ? AND NOT EXISTS (SELECT 1 FROM bookings b WHERE b.event_id = ?)`, id, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return ErrConflict
	}
	return nil
}

// ListByCollege returns every event of a college, newest start first.
func (r *EventRepo) ListByCollege(ctx context.Context, collegeID uint64, status string) ([]model.Event, error) {
	q := `SELECT ` + eventColumns + ` FROM events e WHERE e.college_id = ?`
	args := []interface{}{collegeID}
	if status != "" {
		q += ` AND e.status = ?`
		args = append(args, status)
	}
	q += ` ORDER BY e.starts_at DESC`
	return r.list(ctx, q, args...)
}

// ListByStatus returns events in a moderation status, oldest submission
// first so the admin queue is FIFO.
func (r *EventRepo) ListByStatus(ctx context.Context, status string, limit, offset int) ([]model.Event, error) {
	return r.list(ctx, `SELECT `+eventColumns+` FROM events e WHERE e.status = ? ORDER BY e.updated_at ASC, e.id ASC LIMIT ? OFFSET ?`,
		status, limit, offset)
}

func (r *EventRepo) list(ctx context.Context, q string, args ...interface{}) ([]model.Event, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Event, 0)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

// EventStats aggregates booking and attendance numbers for organizers.
type EventStats struct {
	EventID            uint64 `json:"event_id"`
	TotalSeats         uint32 `json:"total_seats"`
	SeatsBooked        uint32 `json:"seats_booked"`
	SeatsLeft          uint32 `json:"seats_left"`
	ConfirmedBookings  int    `json:"confirmed_bookings"`
	PendingBookings    int    `json:"pending_bookings"`
	TicketsIssued      int    `json:"tickets_issued"`
	CheckedIn          int    `json:"checked_in"`
	RevenueCents       uint64 `json:"revenue_cents"`
	ExternalUnverified int    `json:"external_unverified"`
	ExternalVerified   int    `json:"external_verified"`
	ExternalRejected   int    `json:"external_rejected"`
}

// Stats computes EventStats for one event.
func (r *EventRepo) Stats(ctx context.Context, eventID uint64) (*EventStats, error) {
	e, err := r.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	st := &EventStats{EventID: e.ID, TotalSeats: e.TotalSeats, SeatsBooked: e.SeatsBooked, SeatsLeft: e.SeatsLeft()}
	const bq = `SELECT
	              COALESCE(SUM(status = 'CONFIRMED'), 0),
	              COALESCE(SUM(status = 'PENDING'), 0),
	              COALESCE(SUM(CASE WHEN status = 'CONFIRMED' THEN amount_cents ELSE 0 END), 0)
	            FROM bookings WHERE event_id = ? AND sub_event_id IS NULL`
	if err := r.db.QueryRowContext(ctx, bq, eventID).Scan(&st.ConfirmedBookings, &st.PendingBookings, &st.RevenueCents); err != nil {
		return nil, err
	}
	const tq = `SELECT COUNT(*), COALESCE(SUM(checked_in_at IS NOT NULL), 0)
	            FROM tickets WHERE event_id = ? AND sub_event_id IS NULL AND status = 'VALID'`
	if err := r.db.QueryRowContext(ctx, tq, eventID).Scan(&st.TicketsIssued, &st.CheckedIn); err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM external_registrations WHERE event_id = ? GROUP BY status`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		switch status {
		case model.ExternalUnverified:
			st.ExternalUnverified = n
		case model.ExternalVerified:
			st.ExternalVerified = n
		case model.ExternalRejected:
			st.ExternalRejected = n
		}
	}
	return st, rows.Err()
}
