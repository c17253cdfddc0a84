package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
)

// ErrRefreshInvalid covers unknown, revoked and expired refresh tokens.
var ErrRefreshInvalid = errors.New("invalid refresh token")

// TokenRepo stores SHA-256 hashes of refresh tokens.  Raw tokens never
// reach the database.
type TokenRepo struct {
	DB  *sql.DB
	Now func() time.Time
}

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db, Now: time.Now} }

func (r *TokenRepo) now() time.Time { return r.Now().UTC() }

// StoreRefresh records a freshly issued token.
func (r *TokenRepo) StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO refresh_tokens (user_id, token_hash, expires_at) VALUES (?,?,?)",
		userID, tokenHash, exp.UTC())
	return err
}

// ValidateRefresh returns the owner of a live token.  Presenting a token
// that was already rotated away revokes every session of its owner, since
// only a copied token can be replayed that way.
func (r *TokenRepo) ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error) {
	var (
		userID    uint64
		expiresAt time.Time
		revokedAt sql.NullTime
		rotated   bool
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT user_id, expires_at, revoked_at, rotated FROM refresh_tokens WHERE token_hash=?",
		tokenHash).Scan(&userID, &expiresAt, &revokedAt, &rotated)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrRefreshInvalid
	}
	if err != nil {
		return 0, err
	}
	if rotated {
		if err := r.RevokeAllForUser(ctx, userID); err != nil {
			return 0, err
		}
		return 0, ErrRefreshInvalid
	}
	if revokedAt.Valid || !r.now().Before(expiresAt) {
		return 0, ErrRefreshInvalid
	}
	return userID, nil
}

// Rotate retires oldHash and stores newHash in one transaction.  Only one
// of several concurrent rotations of the same token succeeds; the others get
// ErrRefreshInvalid.
func (r *TokenRepo) Rotate(ctx context.Context, userID uint64, oldHash, newHash string, exp time.Time) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := r.now()
	res, err := tx.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked_at=?, rotated=TRUE
		 WHERE token_hash=? AND user_id=? AND revoked_at IS NULL AND expires_at > ?`,
		now, oldHash, userID, now)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return ErrRefreshInvalid
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO refresh_tokens (user_id, token_hash, expires_at) VALUES (?,?,?)",
		userID, newHash, exp.UTC()); err != nil {
		return err
	}
	return errors.Wrap(tx.Commit(), "commit rotation")
}

// RevokeByHash ends one session.
func (r *TokenRepo) RevokeByHash(ctx context.Context, tokenHash string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=? WHERE token_hash=? AND revoked_at IS NULL",
		r.now(), tokenHash)
	return err
}

// RevokeAllForUser ends every session of a user.
func (r *TokenRepo) RevokeAllForUser(ctx context.Context, userID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=? WHERE user_id=? AND revoked_at IS NULL",
		r.now(), userID)
	return err
}
