package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/campus-events/internal/model"
)

const checkinLookupSQL = `SELECT (.+) FROM tickets t JOIN bookings b ON b.id = t.booking_id`

var checkinCols = []string{"id", "booking_id", "event_id", "sub_event_id", "user_id", "seat_no", "code", "status",
	"checked_in_at", "checked_in_by", "created_at", "b_status", "e_status", "college_id", "title", "full_name", "starts_at", "ends_at"}

func newTicketRepo(t *testing.T) (*TicketRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	r := NewTicketRepo(db)
	r.Now = func() time.Time { return fixedNow }
	return r, mock
}

func ticketRow(checkedIn interface{}) *sqlmock.Rows {
	return ticketRowWithEvent(checkedIn, model.EventApproved)
}

func ticketRowWithEvent(checkedIn interface{}, eventStatus string) *sqlmock.Rows {
	return sqlmock.NewRows(checkinCols).AddRow(
		11, 55, 7, nil, 3, 1, "5b0f3c1e-8f43-4a53-9d0e-1b7a4f1c2d3e", model.TicketValid,
		checkedIn, nil, fixedNow.Add(-24*time.Hour),
		model.BookingConfirmed, eventStatus, 4, "Tech Fest", "Asha Rao", fixedNow.Add(30*time.Minute), fixedNow.Add(4*time.Hour))
}

func checkinReq() CheckinRequest {
	return CheckinRequest{Code: "5b0f3c1e-8f43-4a53-9d0e-1b7a4f1c2d3e", StaffID: 9, CollegeID: 4, OpensBefore: time.Hour}
}

func TestCheckInAdmitsOnce(t *testing.T) {
	r, mock := newTicketRepo(t)
	mock.ExpectQuery(checkinLookupSQL).WillReturnRows(ticketRow(nil))
	mock.ExpectExec(`UPDATE tickets SET checked_in_at = \?, checked_in_by = \? WHERE id = \? AND checked_in_at IS NULL`).
		WithArgs(fixedNow, 9, 11, model.TicketValid).WillReturnResult(sqlmock.NewResult(0, 1))

	res, err := r.CheckIn(context.Background(), checkinReq())
	require.NoError(t, err)
	require.NotNil(t, res.Ticket.CheckedInAt)
	assert.Equal(t, fixedNow, *res.Ticket.CheckedInAt)
	assert.Equal(t, "Asha Rao", res.Holder)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckInSecondScan(t *testing.T) {
	r, mock := newTicketRepo(t)
	first := fixedNow.Add(-5 * time.Minute)
	mock.ExpectQuery(checkinLookupSQL).WillReturnRows(ticketRow(first))

	_, err := r.CheckIn(context.Background(), checkinReq())
	require.ErrorIs(t, err, model.ErrAlreadyCheckedIn)
	var ac *AlreadyCheckedInError
	require.True(t, errors.As(err, &ac))
	assert.Equal(t, first, ac.At)
}

func TestCheckInLosesRace(t *testing.T) {
	r, mock := newTicketRepo(t)
	winner := fixedNow.Add(-time.Second)
	mock.ExpectQuery(checkinLookupSQL).WillReturnRows(ticketRow(nil))
	mock.ExpectExec(`UPDATE tickets SET checked_in_at`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT checked_in_at, status FROM tickets WHERE id = \?`).WithArgs(11).
		WillReturnRows(sqlmock.NewRows([]string{"checked_in_at", "status"}).AddRow(winner, model.TicketValid))

	_, err := r.CheckIn(context.Background(), checkinReq())
	var ac *AlreadyCheckedInError
	require.True(t, errors.As(err, &ac))
	assert.Equal(t, winner, ac.At)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckInCancelledEvent(t *testing.T) {
	r, mock := newTicketRepo(t)
	mock.ExpectQuery(`SELECT (.+)b\.status, e\.status, e\.college_id(.+) FROM tickets t`).
		WithArgs("5b0f3c1e-8f43-4a53-9d0e-1b7a4f1c2d3e").
		WillReturnRows(ticketRowWithEvent(nil, model.EventCancelled))

	_, err := r.CheckIn(context.Background(), checkinReq())
	assert.ErrorIs(t, err, model.ErrEventCancelled)
	assert.NoError(t, mock.ExpectationsWereMet(), "no ticket update for a cancelled event")
}

func TestCheckInOtherCollege(t *testing.T) {
	r, mock := newTicketRepo(t)
	mock.ExpectQuery(checkinLookupSQL).WillReturnRows(ticketRow(nil))
	req := checkinReq()
	req.CollegeID = 99
	_, err := r.CheckIn(context.Background(), req)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestCheckInAdminAnyCollege(t *testing.T) {
	r, mock := newTicketRepo(t)
	mock.ExpectQuery(checkinLookupSQL).WillReturnRows(ticketRow(nil))
	mock.ExpectExec(`UPDATE tickets SET checked_in_at`).WillReturnResult(sqlmock.NewResult(0, 1))
	req := checkinReq()
	req.CollegeID = AnyCollege
	_, err := r.CheckIn(context.Background(), req)
	assert.NoError(t, err)
}

func TestCheckInUnknownCode(t *testing.T) {
	r, mock := newTicketRepo(t)
	mock.ExpectQuery(checkinLookupSQL).WillReturnRows(sqlmock.NewRows(checkinCols))
	_, err := r.CheckIn(context.Background(), checkinReq())
	assert.ErrorIs(t, err, ErrTicketNotFound)
}

func TestEventDeleteWithBookingsConflicts(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	r := NewEventRepo(db)
	mock.ExpectExec(`DELETE FROM events WHERE id = \?`).WithArgs(7, 7).WillReturnResult(sqlmock.NewResult(0, 0))
	rows := sqlmock.NewRows([]string{"id", "college_id", "title", "description", "category", "venue", "city",
		"latitude", "longitude", "starts_at", "ends_at", "total_seats", "seats_booked", "price_cents",
		"poster_url", "registration_url", "external_sheet_id", "status", "rejection_reason", "created_at", "updated_at"}).
		AddRow(7, 4, "Tech Fest", "", "tech", "Hall A", "Pune", nil, nil, fixedNow, fixedNow.Add(time.Hour),
			100, 3, 0, nil, nil, nil, model.EventApproved, nil, fixedNow, fixedNow)
	mock.ExpectQuery(`SELECT (.+) FROM events e WHERE e.id = \?`).WithArgs(7).WillReturnRows(rows)

	assert.ErrorIs(t, r.Delete(context.Background(), 7), ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}
