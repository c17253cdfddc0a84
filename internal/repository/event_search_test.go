package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/campus-events/internal/model"
	"github.com/iliyamo/campus-events/internal/utils"
)

var listingCols = []string{"id", "college_id", "title", "description", "category", "venue", "city",
	"latitude", "longitude", "starts_at", "ends_at", "total_seats", "seats_booked", "price_cents",
	"poster_url", "registration_url", "external_sheet_id", "status", "rejection_reason",
	"created_at", "updated_at", "name"}

func listingRow(rows *sqlmock.Rows, id int, lat, lng interface{}) *sqlmock.Rows {
	return rows.AddRow(id, 4, "Tech Fest", "", "tech", "Main Hall", "Bengaluru", lat, lng,
		fixedNow.Add(24*time.Hour), fixedNow.Add(30*time.Hour), 100, 40, 0,
		nil, nil, nil, model.EventApproved, nil, fixedNow, fixedNow, "Tech Institute")
}

func TestSearchNearComputesDistance(t *testing.T) {
	r, mock := newEventRepo(t)
	near := &GeoPoint{Lat: 12.9716, Lng: 77.5946}
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM events e WHERE (.+)ST_Distance_Sphere`).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))
	mock.ExpectQuery(`SELECT (.+), c.name FROM events e JOIN colleges c (.+) ORDER BY ST_Distance_Sphere(.+) ASC, e.starts_at ASC LIMIT \? OFFSET \?`).
		WillReturnRows(listingRow(sqlmock.NewRows(listingCols), 7, 12.9352, 77.6245))

	out, total, err := r.SearchApproved(context.Background(), EventSearchQuery{Near: near, RadiusKm: 10, Page: 1, PageSize: 20})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, out, 1)
	require.NotNil(t, out[0].DistanceKm)
	assert.InDelta(t, utils.HaversineKm(12.9716, 77.5946, 12.9352, 77.6245), *out[0].DistanceKm, 0.01)
	assert.Equal(t, uint32(60), out[0].SeatsLeft)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSearchWithoutPointOmitsDistance(t *testing.T) {
	r, mock := newEventRepo(t)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM events e WHERE e.status = \?`).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))
	mock.ExpectQuery(`ORDER BY e.price_cents ASC, e.starts_at ASC LIMIT \? OFFSET \?`).
		WithArgs(model.EventApproved, 20, 20).
		WillReturnRows(listingRow(sqlmock.NewRows(listingCols), 7, nil, nil))

	out, _, err := r.SearchApproved(context.Background(), EventSearchQuery{Sort: "price", Page: 2, PageSize: 20})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Nil(t, out[0].DistanceKm)
	assert.Equal(t, "Tech Institute", out[0].CollegeName)
	assert.NoError(t, mock.ExpectationsWereMet())
}
