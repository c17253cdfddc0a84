package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/iliyamo/campus-events/internal/model"
	"github.com/iliyamo/campus-events/internal/utils"
)

// SoldOutError reports how many seats remained when a booking request could
// not be satisfied.  It unwraps to model.ErrSoldOut.
type SoldOutError struct{ SeatsLeft uint32 }

func (e *SoldOutError) Error() string { return fmt.Sprintf("only %d seats left", e.SeatsLeft) }
func (e *SoldOutError) Unwrap() error { return model.ErrSoldOut }

// BookRequest carries the inputs of a booking transaction.
type BookRequest struct {
	UserID   uint64
	PoolID   uint64 // event id or sub-event id
	Seats    int
	MaxSeats int
	HoldTTL  time.Duration
}

// BookingResult is the outcome of a booking state change.  Tickets are
// only populated once the booking is CONFIRMED.
type BookingResult struct {
	Booking   model.Booking  `json:"booking"`
	Tickets   []model.Ticket `json:"tickets"`
	SeatsLeft uint32         `json:"seats_left"`
	// Replayed is set when a confirmation was already applied earlier.
	Replayed bool `json:"-"`
}

// BookingRepo implements the seat booking transactions.  Every transaction
// locks the seat pool row (events or sub_events) before any booking row so
// concurrent bookings, cancellations and expiries serialize per pool.
type BookingRepo struct {
	db  *sql.DB
	Now func() time.Time
}

func NewBookingRepo(db *sql.DB) *BookingRepo {
	return &BookingRepo{db: db, Now: func() time.Time { return time.Now().UTC() }}
}

const bookingColumns = `b.id, b.user_id, b.event_id, b.sub_event_id, b.seats, b.status, b.amount_cents,
	b.payment_ref, b.expires_at, b.created_at, b.updated_at`

func scanBooking(row rowScanner, extra ...interface{}) (*model.Booking, error) {
	var b model.Booking
	var sub sql.NullInt64
	var ref sql.NullString
	var exp sql.NullTime
	dest := []interface{}{&b.ID, &b.UserID, &b.EventID, &sub, &b.Seats, &b.Status, &b.AmountCents,
		&ref, &exp, &b.CreatedAt, &b.UpdatedAt}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	b.SubEventID, b.PaymentRef, b.ExpiresAt = nullUint64(sub), nullString(ref), nullTime(exp)
	return &b, nil
}

// BookEvent reserves seats of an event for a student.  Free events confirm
// immediately and issue one ticket per seat; paid events create a PENDING
// booking that holds the seats until HoldTTL elapses.
func (r *BookingRepo) BookEvent(ctx context.Context, req BookRequest) (*BookingResult, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	now := r.Now()

	var e model.Event
	err = tx.QueryRowContext(ctx,
		`SELECT id, status, starts_at, total_seats, seats_booked, price_cents FROM events WHERE id = ? FOR UPDATE`,
		req.PoolID).Scan(&e.ID, &e.Status, &e.StartsAt, &e.TotalSeats, &e.SeatsBooked, &e.PriceCents)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := model.CheckBookable(e, now); err != nil {
		return nil, err
	}
	if err := model.CheckSeatRequest(req.Seats, req.MaxSeats, e.SeatsLeft()); err != nil {
		if errors.Is(err, model.ErrSoldOut) {
			return nil, &SoldOutError{SeatsLeft: e.SeatsLeft()}
		}
		return nil, err
	}
	if _, err = tx.ExecContext(ctx, `UPDATE events SET seats_booked = seats_booked + ? WHERE id = ?`, req.Seats, e.ID); err != nil {
		return nil, err
	}

	amount := e.PriceCents * uint32(req.Seats)
	status, expires := model.InitialBookingStatus(amount, now, req.HoldTTL)
	b := model.Booking{
		UserID: req.UserID, EventID: e.ID, Seats: uint32(req.Seats), Status: status,
		AmountCents: amount, ExpiresAt: expires, CreatedAt: now, UpdatedAt: now,
	}
	if status == model.BookingPending {
		ref := "inv_" + uuid.NewString()
		b.PaymentRef = &ref
	}
	if err = r.insertBooking(ctx, tx, &b); err != nil {
		return nil, err
	}
	res := &BookingResult{Booking: b, SeatsLeft: e.SeatsLeft() - uint32(req.Seats)}
	if status == model.BookingConfirmed {
		if res.Tickets, err = r.issueTickets(ctx, tx, b, now); err != nil {
			return nil, err
		}
	}
	if err = tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return res, nil
}

// BookSubEvent reserves seats of a bookable session.  Sessions are free,
// but when the parent event is paid the student must already hold a
// confirmed booking for it.
func (r *BookingRepo) BookSubEvent(ctx context.Context, req BookRequest) (*BookingResult, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	now := r.Now()

	var s model.SubEvent
	var parent model.Event
	err = tx.QueryRowContext(ctx,
		`SELECT s.id, s.event_id, s.starts_at, s.bookable, s.total_seats, s.seats_booked,
		        e.id, e.status, e.starts_at, e.price_cents
		 FROM sub_events s JOIN events e ON e.id = s.event_id
		 WHERE s.id = ? FOR UPDATE`, req.PoolID).
		Scan(&s.ID, &s.EventID, &s.StartsAt, &s.Bookable, &s.TotalSeats, &s.SeatsBooked,
			&parent.ID, &parent.Status, &parent.StartsAt, &parent.PriceCents)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSubEventNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := model.CheckSubEventBookable(parent, s, now); err != nil {
		return nil, err
	}
	if !parent.IsFree() {
		var n int
		if err = tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM bookings WHERE user_id = ? AND event_id = ? AND sub_event_id IS NULL AND status = ?`,
			req.UserID, parent.ID, model.BookingConfirmed).Scan(&n); err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, model.ErrParentUnpaid
		}
	}
	if err := model.CheckSeatRequest(req.Seats, req.MaxSeats, s.SeatsLeft()); err != nil {
		if errors.Is(err, model.ErrSoldOut) {
			return nil, &SoldOutError{SeatsLeft: s.SeatsLeft()}
		}
		return nil, err
	}
	if _, err = tx.ExecContext(ctx, `UPDATE sub_events SET seats_booked = seats_booked + ? WHERE id = ?`, req.Seats, s.ID); err != nil {
		return nil, err
	}
	subID := s.ID
	b := model.Booking{
		UserID: req.UserID, EventID: parent.ID, SubEventID: &subID, Seats: uint32(req.Seats),
		Status: model.BookingConfirmed, CreatedAt: now, UpdatedAt: now,
	}
	if err = r.insertBooking(ctx, tx, &b); err != nil {
		return nil, err
	}
	res := &BookingResult{Booking: b, SeatsLeft: s.SeatsLeft() - uint32(req.Seats)}
	if res.Tickets, err = r.issueTickets(ctx, tx, b, now); err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return res, nil
}

func (r *BookingRepo) insertBooking(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO bookings (user_id, event_id, sub_event_id, seats, status, amount_cents, payment_ref, active_key, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.UserID, b.EventID, b.SubEventID, b.Seats, b.Status, b.AmountCents, b.PaymentRef,
		model.ActiveKey(b.UserID, b.EventID, b.SubEventID), b.ExpiresAt)
	if err != nil {
		if isDuplicateKey(err) {
			return model.ErrAlreadyBooked
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	return nil
}

// issueTickets inserts one ticket per seat of a confirmed booking.
func (r *BookingRepo) issueTickets(ctx context.Context, tx *sql.Tx, b model.Booking, now time.Time) ([]model.Ticket, error) {
	out := make([]model.Ticket, 0, b.Seats)
	for i := uint32(1); i <= b.Seats; i++ {
		t := model.Ticket{
			BookingID: b.ID, EventID: b.EventID, SubEventID: b.SubEventID, UserID: b.UserID,
			SeatNo: i, Code: utils.NewTicketCode(), Status: model.TicketValid, CreatedAt: now,
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO tickets (booking_id, event_id, sub_event_id, user_id, seat_no, code) VALUES (?, ?, ?, ?, ?, ?)`,
			t.BookingID, t.EventID, t.SubEventID, t.UserID, t.SeatNo, t.Code)
		if err != nil {
			return nil, err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, err
		}
		t.ID = uint64(id)
		out = append(out, t)
	}
	return out, nil
}

// lockBooking locks the seat pool of the booking matched by cond and then
// the booking row itself.
func (r *BookingRepo) lockBooking(ctx context.Context, tx *sql.Tx, cond string, args ...interface{}) (*model.Booking, error) {
	var eventID uint64
	var sub sql.NullInt64
	err := tx.QueryRowContext(ctx, `SELECT b.event_id, b.sub_event_id FROM bookings b WHERE `+cond, args...).Scan(&eventID, &sub)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, err
	}
	var poolID uint64
	if sub.Valid {
		err = tx.QueryRowContext(ctx, `SELECT id FROM sub_events WHERE id = ? FOR UPDATE`, sub.Int64).Scan(&poolID)
	} else {
		err = tx.QueryRowContext(ctx, `SELECT id FROM events WHERE id = ? FOR UPDATE`, eventID).Scan(&poolID)
	}
	if err != nil {
		return nil, err
	}
	return scanBooking(tx.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings b WHERE `+cond+` FOR UPDATE`, args...))
}

// release returns the seats of b to its pool and closes the booking with
// the given terminal status.  Unused tickets are cancelled.
func (r *BookingRepo) release(ctx context.Context, tx *sql.Tx, b *model.Booking, status string) error {
	pool := `UPDATE events SET seats_booked = seats_booked - ? WHERE id = ? AND seats_booked >= ?`
	poolID := b.EventID
	if b.SubEventID != nil {
		pool = `UPDATE sub_events SET seats_booked = seats_booked - ? WHERE id = ? AND seats_booked >= ?`
		poolID = *b.SubEventID
	}
	if _, err := tx.ExecContext(ctx, pool, b.Seats, poolID, b.Seats); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE bookings SET status = ?, active_key = NULL, expires_at = NULL WHERE id = ?`, status, b.ID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE tickets SET status = ? WHERE booking_id = ? AND checked_in_at IS NULL`, model.TicketCancelled, b.ID); err != nil {
		return err
	}
	b.Status = status
	b.ExpiresAt = nil
	return nil
}

// ConfirmByPaymentRef marks a pending booking as paid and issues its
// tickets.  Confirming an already confirmed booking is a no-op that returns
// the existing tickets.  A hold whose expiry has passed is expired on the
// spot and ErrBookingNotActive is returned.
func (r *BookingRepo) ConfirmByPaymentRef(ctx context.Context, ref string) (*BookingResult, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	now := r.Now()
	b, err := r.lockBooking(ctx, tx, `b.payment_ref = ?`, ref)
	if err != nil {
		return nil, err
	}
	switch {
	case b.Status == model.BookingConfirmed:
		tickets, err := r.ticketsTx(ctx, tx, b.ID)
		if err != nil {
			return nil, err
		}
		return &BookingResult{Booking: *b, Tickets: tickets, Replayed: true}, nil
	case b.Status != model.BookingPending:
		return nil, model.ErrBookingNotActive
	case b.ExpiresAt != nil && !now.Before(*b.ExpiresAt):
		if err = r.release(ctx, tx, b, model.BookingExpired); err != nil {
			return nil, err
		}
		if err = tx.Commit(); err != nil {
			return nil, err
		}
		committed = true
		return nil, model.ErrBookingNotActive
	}
	if _, err = tx.ExecContext(ctx,
		`UPDATE bookings SET status = ?, expires_at = NULL WHERE id = ?`, model.BookingConfirmed, b.ID); err != nil {
		return nil, err
	}
	b.Status, b.ExpiresAt, b.UpdatedAt = model.BookingConfirmed, nil, now
	res := &BookingResult{Booking: *b}
	if res.Tickets, err = r.issueTickets(ctx, tx, *b, now); err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return res, nil
}

// CancelByPaymentRef releases a pending booking whose payment failed.
// Bookings that are already closed are left untouched.
func (r *BookingRepo) CancelByPaymentRef(ctx context.Context, ref string) (*model.Booking, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	b, err := r.lockBooking(ctx, tx, `b.payment_ref = ?`, ref)
	if err != nil {
		return nil, err
	}
	switch b.Status {
	case model.BookingConfirmed:
		return nil, model.ErrBookingNotActive
	case model.BookingCancelled, model.BookingExpired:
		return b, nil
	}
	if err = r.release(ctx, tx, b, model.BookingCancelled); err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return b, nil
}

// CancelByUser cancels a student's own booking before its event starts.
// Bookings with a checked-in ticket cannot be cancelled.
func (r *BookingRepo) CancelByUser(ctx context.Context, bookingID, userID uint64) (*model.Booking, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	b, err := r.lockBooking(ctx, tx, `b.id = ?`, bookingID)
	if err != nil {
		return nil, err
	}
	if b.UserID != userID {
		return nil, ErrForbidden
	}
	var start time.Time
	if b.SubEventID != nil {
		err = tx.QueryRowContext(ctx, `SELECT starts_at FROM sub_events WHERE id = ?`, *b.SubEventID).Scan(&start)
	} else {
		err = tx.QueryRowContext(ctx, `SELECT starts_at FROM events WHERE id = ?`, b.EventID).Scan(&start)
	}
	if err != nil {
		return nil, err
	}
	var checkedIn int
	if err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tickets WHERE booking_id = ? AND checked_in_at IS NOT NULL`, b.ID).Scan(&checkedIn); err != nil {
		return nil, err
	}
	if err = model.CheckCancellable(*b, start, checkedIn, r.Now()); err != nil {
		return nil, err
	}
	if err = r.release(ctx, tx, b, model.BookingCancelled); err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return b, nil
}

// ExpirePending closes up to limit PENDING bookings whose hold lapsed
// and returns them.  Each booking is expired in its own transaction.
func (r *BookingRepo) ExpirePending(ctx context.Context, limit int) ([]model.Booking, error) {
	now := r.Now()
	rows, err := r.db.QueryContext(ctx,
		`SELECT id FROM bookings WHERE status = ? AND expires_at <= ? ORDER BY expires_at LIMIT ?`,
		model.BookingPending, now, limit)
	if err != nil {
		return nil, err
	}
	var ids []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	out := make([]model.Booking, 0, len(ids))
	for _, id := range ids {
		b, err := r.expireOne(ctx, id, now)
		if err != nil {
			return out, err
		}
		if b != nil {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (r *BookingRepo) expireOne(ctx context.Context, id uint64, now time.Time) (*model.Booking, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	b, err := r.lockBooking(ctx, tx, `b.id = ?`, id)
	if err != nil {
		return nil, err
	}
	// paid or cancelled since the scan
	if b.Status != model.BookingPending || b.ExpiresAt == nil || now.Before(*b.ExpiresAt) {
		return nil, nil
	}
	if err = r.release(ctx, tx, b, model.BookingExpired); err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return b, nil
}

func (r *BookingRepo) ticketsTx(ctx context.Context, tx *sql.Tx, bookingID uint64) ([]model.Ticket, error) {
	rows, err := tx.QueryContext(ctx, `SELECT `+ticketColumns+` FROM tickets t WHERE t.booking_id = ? ORDER BY t.seat_no`, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTickets(rows)
}

// GetByPaymentRef returns the booking paid by an invoice.
func (r *BookingRepo) GetByPaymentRef(ctx context.Context, ref string) (*model.Booking, error) {
	return scanBooking(r.db.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings b WHERE b.payment_ref = ?`, ref))
}

// BookingDetail is a booking with the event context students need.
type BookingDetail struct {
	model.Booking
	EventTitle    string         `json:"event_title"`
	Venue         string         `json:"venue"`
	StartsAt      time.Time      `json:"starts_at"`
	EndsAt        time.Time      `json:"ends_at"`
	SubEventTitle *string        `json:"sub_event_title,omitempty"`
	Tickets       []model.Ticket `json:"tickets"`
}

const bookingDetailSelect = `SELECT ` + bookingColumns + `, e.title, e.venue,
	COALESCE(s.starts_at, e.starts_at), COALESCE(s.ends_at, e.ends_at), s.title
	FROM bookings b
	JOIN events e ON e.id = b.event_id
	LEFT JOIN sub_events s ON s.id = b.sub_event_id`

func scanBookingDetail(row rowScanner) (*BookingDetail, error) {
	var d BookingDetail
	var subTitle sql.NullString
	b, err := scanBooking(row, &d.EventTitle, &d.Venue, &d.StartsAt, &d.EndsAt, &subTitle)
	if err != nil {
		return nil, err
	}
	d.Booking = *b
	d.SubEventTitle = nullString(subTitle)
	d.StartsAt, d.EndsAt = d.StartsAt.UTC(), d.EndsAt.UTC()
	d.Tickets = []model.Ticket{}
	return &d, nil
}

// ListByUser returns a student's bookings, newest first, with tickets.
func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64) ([]BookingDetail, error) {
	rows, err := r.db.QueryContext(ctx, bookingDetailSelect+` WHERE b.user_id = ? ORDER BY b.created_at DESC, b.id DESC`, userID)
	if err != nil {
		return nil, err
	}
	out := make([]BookingDetail, 0)
	index := map[uint64]int{}
	for rows.Next() {
		d, err := scanBookingDetail(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		index[d.ID] = len(out)
		out = append(out, *d)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}
	trows, err := r.db.QueryContext(ctx, `SELECT `+ticketColumns+` FROM tickets t WHERE t.user_id = ? ORDER BY t.booking_id, t.seat_no`, userID)
	if err != nil {
		return nil, err
	}
	defer trows.Close()
	tickets, err := collectTickets(trows)
	if err != nil {
		return nil, err
	}
	for _, t := range tickets {
		if i, ok := index[t.BookingID]; ok {
			out[i].Tickets = append(out[i].Tickets, t)
		}
	}
	return out, nil
}

// GetForUser returns one booking of a student with its tickets.
func (r *BookingRepo) GetForUser(ctx context.Context, id, userID uint64) (*BookingDetail, error) {
	d, err := scanBookingDetail(r.db.QueryRowContext(ctx, bookingDetailSelect+` WHERE b.id = ?`, id))
	if err != nil {
		return nil, err
	}
	if d.UserID != userID {
		return nil, ErrForbidden
	}
	rows, err := r.db.QueryContext(ctx, `SELECT `+ticketColumns+` FROM tickets t WHERE t.booking_id = ? ORDER BY t.seat_no`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if d.Tickets, err = collectTickets(rows); err != nil {
		return nil, err
	}
	return d, nil
}
