package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTokenRepo(t *testing.T) (*TokenRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	r := NewTokenRepo(db)
	r.Now = func() time.Time { return fixedNow }
	return r, mock
}

var refreshCols = []string{"user_id", "expires_at", "revoked_at", "rotated"}

func TestValidateRefresh(t *testing.T) {
	r, mock := newTokenRepo(t)
	mock.ExpectQuery(`SELECT user_id, expires_at, revoked_at, rotated FROM refresh_tokens`).
		WithArgs("h1").
		WillReturnRows(sqlmock.NewRows(refreshCols).AddRow(5, fixedNow.Add(time.Hour), nil, false))

	id, err := r.ValidateRefresh(context.Background(), "h1")
	require.NoError(t, err)
	assert.Equal(t, uint64(5), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestValidateRefreshExpired(t *testing.T) {
	r, mock := newTokenRepo(t)
	mock.ExpectQuery(`FROM refresh_tokens`).
		WillReturnRows(sqlmock.NewRows(refreshCols).AddRow(5, fixedNow, nil, false))

	_, err := r.ValidateRefresh(context.Background(), "h1")
	assert.ErrorIs(t, err, ErrRefreshInvalid)
}

func TestReplayedRotatedTokenRevokesAllSessions(t *testing.T) {
	r, mock := newTokenRepo(t)
	mock.ExpectQuery(`FROM refresh_tokens`).
		WillReturnRows(sqlmock.NewRows(refreshCols).AddRow(5, fixedNow.Add(time.Hour), fixedNow.Add(-time.Minute), true))
	mock.ExpectExec(`UPDATE refresh_tokens SET revoked_at=\? WHERE user_id=\?`).
		WithArgs(fixedNow, uint64(5)).
		WillReturnResult(sqlmock.NewResult(0, 2))

	_, err := r.ValidateRefresh(context.Background(), "stolen")
	assert.ErrorIs(t, err, ErrRefreshInvalid)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRotate(t *testing.T) {
	r, mock := newTokenRepo(t)
	exp := fixedNow.Add(24 * time.Hour)
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE refresh_tokens SET revoked_at=\?, rotated=TRUE`).
		WithArgs(fixedNow, "old", uint64(5), fixedNow).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO refresh_tokens`).
		WithArgs(uint64(5), "new", exp).
		WillReturnResult(sqlmock.NewResult(9, 1))
	mock.ExpectCommit()

	require.NoError(t, r.Rotate(context.Background(), 5, "old", "new", exp))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRotateLosesRace(t *testing.T) {
	r, mock := newTokenRepo(t)
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE refresh_tokens SET revoked_at=\?, rotated=TRUE`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := r.Rotate(context.Background(), 5, "old", "new", fixedNow.Add(time.Hour))
	assert.ErrorIs(t, err, ErrRefreshInvalid)
	assert.NoError(t, mock.ExpectationsWereMet())
}
