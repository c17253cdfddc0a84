package handler

import (
    "context"
    "net/http"
    "testing"
    "time"

    "github.com/DATA-DOG/go-sqlmock"
    "github.com/labstack/echo/v4"
    "github.com/pkg/errors"
    "github.com/stretchr/testify/assert"

    "github.com/iliyamo/campus-events/internal/config"
    "github.com/iliyamo/campus-events/internal/middleware"
    "github.com/iliyamo/campus-events/internal/model"
    "github.com/iliyamo/campus-events/internal/payments"
    "github.com/iliyamo/campus-events/internal/payments/stub"
)

// downProvider is a gateway that cannot create invoices.
type downProvider struct{ payments.Provider }

func (downProvider) CreatePayment(context.Context, string, uint32) (string, error) {
    return "", errors.New("gateway timeout")
}

func TestBookPaidEventReleasesHoldWhenGatewayFails(t *testing.T) {
    mock, repo := newMock(t)
    now := time.Now().UTC()
    mock.ExpectBegin()
    mock.ExpectQuery(`SELECT id, status, starts_at, total_seats, seats_booked, price_cents FROM events WHERE id = \? FOR UPDATE`).
        WithArgs(7).
        WillReturnRows(sqlmock.NewRows([]string{"id", "status", "starts_at", "total_seats", "seats_booked", "price_cents"}).
            AddRow(7, model.EventApproved, now.Add(48*time.Hour), 50, 10, 1500))
    mock.ExpectExec(`UPDATE events SET seats_booked = seats_booked \+ \?`).WithArgs(2, 7).WillReturnResult(sqlmock.NewResult(0, 1))
    mock.ExpectExec(`INSERT INTO bookings`).WillReturnResult(sqlmock.NewResult(56, 1))
    mock.ExpectCommit()

    mock.ExpectBegin()
    mock.ExpectQuery(`SELECT b.event_id, b.sub_event_id FROM bookings b WHERE b.payment_ref = \?`).
        WithArgs(sqlmock.AnyArg()).WillReturnRows(sqlmock.NewRows([]string{"event_id", "sub_event_id"}).AddRow(7, nil))
    mock.ExpectQuery(`SELECT id FROM events WHERE id = \? FOR UPDATE`).WithArgs(7).
        WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
    mock.ExpectQuery(`SELECT (.+) FROM bookings b WHERE b.payment_ref = \? FOR UPDATE`).WithArgs(sqlmock.AnyArg()).
        WillReturnRows(sqlmock.NewRows(bookingCols).
            AddRow(56, 3, 7, nil, 2, model.BookingPending, 3000, "inv_x", now.Add(15*time.Minute), now, now))
    mock.ExpectExec(`UPDATE events SET seats_booked = seats_booked - \?`).WithArgs(2, 7, 2).WillReturnResult(sqlmock.NewResult(0, 1))
    mock.ExpectExec(`UPDATE bookings SET status = \?, active_key = NULL`).
        WithArgs(model.BookingCancelled, 56).WillReturnResult(sqlmock.NewResult(0, 1))
    mock.ExpectExec(`UPDATE tickets SET status = \?`).WillReturnResult(sqlmock.NewResult(0, 0))
    mock.ExpectCommit()

    h := &BookingHandler{
        Cfg:      config.Config{Booking: config.BookingConfig{MaxSeatsPerBooking: 10, PendingTTL: 15 * time.Minute}},
        Bookings: repo(),
        Payments: downProvider{stub.New("whsec", "")},
    }
    rec := serve(newTestEcho(), h.BookEvent, jsonReq(http.MethodPost, "/v1/events/7/book", `{"seats":2}`), func(c echo.Context) {
        middleware.SetIdentity(c, 3, model.RoleStudent)
        c.SetParamNames("id")
        c.SetParamValues("7")
    })
    assert.Equal(t, http.StatusBadGateway, rec.Code)
    assert.NoError(t, mock.ExpectationsWereMet(), "the held seats must be returned to the pool")
}
