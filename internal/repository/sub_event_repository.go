package repository

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"github.com/iliyamo/campus-events/internal/model"
)

// SubEventRepo manages sessions under an event.
type SubEventRepo struct{ db *sql.DB }

func NewSubEventRepo(db *sql.DB) *SubEventRepo { return &SubEventRepo{db: db} }

const subEventColumns = `id, event_id, title, description, venue, starts_at, ends_at, bookable,
	total_seats, seats_booked, created_at, updated_at`

func scanSubEvent(row rowScanner) (*model.SubEvent, error) {
	var s model.SubEvent
	err := row.Scan(&s.ID, &s.EventID, &s.Title, &s.Description, &s.Venue, &s.StartsAt, &s.EndsAt,
		&s.Bookable, &s.TotalSeats, &s.SeatsBooked, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSubEventNotFound
	}
	if err != nil {
		return nil, err
	}
	s.StartsAt, s.EndsAt = s.StartsAt.UTC(), s.EndsAt.UTC()
	return &s, nil
}

// Create inserts a session.  Non-bookable sessions are stored with zero
// seats.
func (r *SubEventRepo) Create(ctx context.Context, s *model.SubEvent) error {
	if !s.Bookable {
		s.TotalSeats = 0
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO sub_events (event_id, title, description, venue, starts_at, ends_at, bookable, total_seats)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		s.EventID, s.Title, s.Description, s.Venue, s.StartsAt.UTC(), s.EndsAt.UTC(), s.Bookable, s.TotalSeats)
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
	*s = *fresh
	return nil
}

func (r *SubEventRepo) GetByID(ctx context.Context, id uint64) (*model.SubEvent, error) {
	return scanSubEvent(r.db.QueryRowContext(ctx, `SELECT `+subEventColumns+` FROM sub_events WHERE id = ?`, id))
}

// ListByEvent returns the agenda of an event in start order.
func (r *SubEventRepo) ListByEvent(ctx context.Context, eventID uint64) ([]model.SubEvent, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+subEventColumns+` FROM sub_events WHERE event_id = ? ORDER BY starts_at, id`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.SubEvent, 0)
	for rows.Next() {
		s, err := scanSubEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// Update rewrites a session.  Like EventRepo.Update it locks the row so
// the seat total is compared against a stable seats_booked.
func (r *SubEventRepo) Update(ctx context.Context, s *model.SubEvent) error {
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
	var booked uint32
	err = tx.QueryRowContext(ctx, `SELECT seats_booked FROM sub_events WHERE id = ? FOR UPDATE`, s.ID).Scan(&booked)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrSubEventNotFound
	}
	if err != nil {
		return err
	}
	if !s.Bookable {
		s.TotalSeats = 0
	}
	if booked > 0 && (!s.Bookable || s.TotalSeats < booked) {
		return model.ErrSeatsBelowBooked
	}
	if _, err = tx.ExecContext(ctx,
		`UPDATE sub_events SET title = ?, description = ?, venue = ?, starts_at = ?, ends_at = ?,
		 bookable = ?, total_seats = ? WHERE id = ?`,
		s.Title, s.Description, s.Venue, s.StartsAt.UTC(), s.EndsAt.UTC(), s.Bookable, s.TotalSeats, s.ID); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return err
	}
	committed = true
	s.SeatsBooked = booked
	return nil
}

// Delete removes a session that has no bookings.
func (r *SubEventRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM sub_events WHERE id = ? AND NOT EXISTS (SELECT 1 FROM bookings b WHERE b.sub_event_id = ?)`, id, id)
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
