package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/iliyamo/campus-events/internal/model"
)

// AlreadyCheckedInError carries the timestamp of the original admission.
// It unwraps to model.ErrAlreadyCheckedIn.
type AlreadyCheckedInError struct{ At time.Time }

func (e *AlreadyCheckedInError) Error() string {
	return fmt.Sprintf("ticket already checked in at %s", e.At.Format(time.RFC3339))
}
func (e *AlreadyCheckedInError) Unwrap() error { return model.ErrAlreadyCheckedIn }

// TicketRepo reads tickets and performs door check-in.
type TicketRepo struct {
	db  *sql.DB
	Now func() time.Time
}

func NewTicketRepo(db *sql.DB) *TicketRepo {
	return &TicketRepo{db: db, Now: func() time.Time { return time.Now().UTC() }}
}

const ticketColumns = `t.id, t.booking_id, t.event_id, t.sub_event_id, t.user_id, t.seat_no, t.code, t.status,
	t.checked_in_at, t.checked_in_by, t.created_at`

func scanTicket(row rowScanner, extra ...interface{}) (*model.Ticket, error) {
	var t model.Ticket
	var sub, by sql.NullInt64
	var at sql.NullTime
	dest := []interface{}{&t.ID, &t.BookingID, &t.EventID, &sub, &t.UserID, &t.SeatNo, &t.Code, &t.Status,
		&at, &by, &t.CreatedAt}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTicketNotFound
		}
		return nil, err
	}
	t.SubEventID, t.CheckedInAt, t.CheckedInBy = nullUint64(sub), nullTime(at), nullUint64(by)
	return &t, nil
}

func collectTickets(rows *sql.Rows) ([]model.Ticket, error) {
	out := make([]model.Ticket, 0)
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// GetForUser returns a ticket owned by userID.
func (r *TicketRepo) GetForUser(ctx context.Context, id, userID uint64) (*model.Ticket, error) {
	t, err := scanTicket(r.db.QueryRowContext(ctx, `SELECT `+ticketColumns+` FROM tickets t WHERE t.id = ?`, id))
	if err != nil {
		return nil, err
	}
	if t.UserID != userID {
		return nil, ErrForbidden
	}
	return t, nil
}

// CheckinResult describes an admitted ticket.
type CheckinResult struct {
	Ticket     model.Ticket `json:"ticket"`
	EventTitle string       `json:"event_title"`
	Holder     string       `json:"holder"`
}

// CheckinRequest identifies the scanned ticket and the staff member.
// CollegeID is the staff member's college; admins pass AnyCollege.
type CheckinRequest struct {
	Code        string
	StaffID     uint64
	CollegeID   uint64
	OpensBefore time.Duration
}

// AnyCollege lets admins check in tickets of every college.
const AnyCollege = 0

// CheckIn admits a ticket.  The final write only succeeds while
// checked_in_at is still NULL, so of two concurrent scans exactly one wins
// and the other receives AlreadyCheckedInError.
func (r *TicketRepo) CheckIn(ctx context.Context, req CheckinRequest) (*CheckinResult, error) {
	var res CheckinResult
	var bookingStatus, eventStatus string
	var collegeID uint64
	var startsAt, endsAt time.Time
	t, err := scanTicket(r.db.QueryRowContext(ctx,
		`SELECT `+ticketColumns+`, b.status, e.status, e.college_id, e.title, u.full_name,
		        COALESCE(s.starts_at, e.starts_at), COALESCE(s.ends_at, e.ends_at)
		 FROM tickets t
		 JOIN bookings b ON b.id = t.booking_id
		 JOIN events e ON e.id = t.event_id
		 JOIN users u ON u.id = t.user_id
		 LEFT JOIN sub_events s ON s.id = t.sub_event_id
		 WHERE t.code = ?`, req.Code),
		&bookingStatus, &eventStatus, &collegeID, &res.EventTitle, &res.Holder, &startsAt, &endsAt)
	if err != nil {
		return nil, err
	}
	if req.CollegeID != AnyCollege && req.CollegeID != collegeID {
		return nil, ErrForbidden
	}
	now := r.Now()
	cc := model.CheckinContext{
		EventStatus:   eventStatus,
		BookingStatus: bookingStatus,
		StartsAt:      startsAt.UTC(),
		EndsAt:        endsAt.UTC(),
		OpensBefore:   req.OpensBefore,
	}
	if err := t.CheckCheckin(cc, now); err != nil {
		if errors.Is(err, model.ErrAlreadyCheckedIn) {
			return nil, &AlreadyCheckedInError{At: *t.CheckedInAt}
		}
		return nil, err
	}
	out, err := r.db.ExecContext(ctx,
		`UPDATE tickets SET checked_in_at = ?, checked_in_by = ?
		 WHERE id = ? AND checked_in_at IS NULL AND status = ?`,
		now, req.StaffID, t.ID, model.TicketValid)
	if err != nil {
		return nil, err
	}
	if n, err := out.RowsAffected(); err != nil {
		return nil, err
	} else if n == 0 {
		// lost the race to another scanner or to a cancellation
		var at sql.NullTime
		var status string
		if err := r.db.QueryRowContext(ctx, `SELECT checked_in_at, status FROM tickets WHERE id = ?`, t.ID).Scan(&at, &status); err != nil {
			return nil, err
		}
		if at.Valid {
			return nil, &AlreadyCheckedInError{At: at.Time.UTC()}
		}
		return nil, model.ErrTicketCancelled
	}
	staff := req.StaffID
	t.CheckedInAt, t.CheckedInBy = &now, &staff
	res.Ticket = *t
	return &res, nil
}

// Attendee is one ticket row of an organizer's attendee list.
type Attendee struct {
	TicketID      uint64     `json:"ticket_id"`
	BookingID     uint64     `json:"booking_id"`
	SubEventID    *uint64    `json:"sub_event_id,omitempty"`
	SubEventTitle *string    `json:"sub_event_title,omitempty"`
	SeatNo        uint32     `json:"seat_no"`
	UserID        uint64     `json:"user_id"`
	FullName      string     `json:"full_name"`
	Email         string     `json:"email"`
	CheckedInAt   *time.Time `json:"checked_in_at,omitempty"`
}

// Attendees lists valid tickets of confirmed bookings for an event,
// including its sessions.
func (r *TicketRepo) Attendees(ctx context.Context, eventID uint64, checkedIn *bool) ([]Attendee, error) {
	q := `SELECT t.id, t.booking_id, t.sub_event_id, s.title, t.seat_no, u.id, u.full_name, u.email, t.checked_in_at
	      FROM tickets t
	      JOIN bookings b ON b.id = t.booking_id
	      JOIN users u ON u.id = t.user_id
	      LEFT JOIN sub_events s ON s.id = t.sub_event_id
	      WHERE t.event_id = ? AND t.status = ? AND b.status = ?`
	args := []interface{}{eventID, model.TicketValid, model.BookingConfirmed}
	if checkedIn != nil {
		if *checkedIn {
			q += ` AND t.checked_in_at IS NOT NULL`
		} else {
			q += ` AND t.checked_in_at IS NULL`
		}
	}
	q += ` ORDER BY u.full_name, t.booking_id, t.seat_no`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]Attendee, 0)
	for rows.Next() {
		var a Attendee
		var sub sql.NullInt64
		var title sql.NullString
		var at sql.NullTime
		if err := rows.Scan(&a.TicketID, &a.BookingID, &sub, &title, &a.SeatNo, &a.UserID, &a.FullName, &a.Email, &at); err != nil {
			return nil, err
		}
		a.SubEventID, a.SubEventTitle, a.CheckedInAt = nullUint64(sub), nullString(title), nullTime(at)
		out = append(out, a)
	}
	return out, rows.Err()
}
