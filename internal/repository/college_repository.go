package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"

	"github.com/iliyamo/campus-events/internal/model"
)

// CollegeRepo manages organizer profiles.
type CollegeRepo struct{ db *sql.DB }

func NewCollegeRepo(db *sql.DB) *CollegeRepo { return &CollegeRepo{db: db} }

const collegeColumns = "id, user_id, name, city, website, contact_email, created_at, updated_at"

func scanCollege(row rowScanner) (*model.College, error) {
	var c model.College
	var website, contact sql.NullString
	err := row.Scan(&c.ID, &c.UserID, &c.Name, &c.City, &website, &contact, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCollegeNotFound
	}
	if err != nil {
		return nil, err
	}
	c.Website = nullString(website)
	c.ContactEmail = nullString(contact)
	return &c, nil
}

// Upsert creates or updates the profile owned by c.UserID and returns the
// stored row.
func (r *CollegeRepo) Upsert(ctx context.Context, c model.College) (*model.College, error) {
	const q = `INSERT INTO colleges (user_id, name, city, website, contact_email) VALUES (?, ?, ?, ?, ?)
	           ON DUPLICATE KEY UPDATE name = VALUES(name), city = VALUES(city),
	           website = VALUES(website), contact_email = VALUES(contact_email)`
	if _, err := r.db.ExecContext(ctx, q, c.UserID, c.Name, c.City, c.Website, c.ContactEmail); err != nil {
		return nil, err
	}
	return r.GetByUserID(ctx, c.UserID)
}

// GetByUserID returns the college owned by a COLLEGE user.
func (r *CollegeRepo) GetByUserID(ctx context.Context, userID uint64) (*model.College, error) {
	return scanCollege(r.db.QueryRowContext(ctx, `SELECT `+collegeColumns+` FROM colleges WHERE user_id = ?`, userID))
}

func (r *CollegeRepo) GetByID(ctx context.Context, id uint64) (*model.College, error) {
	return scanCollege(r.db.QueryRowContext(ctx, `SELECT `+collegeColumns+` FROM colleges WHERE id = ?`, id))
}

// ListAll returns all colleges ordered by name.
func (r *CollegeRepo) ListAll(ctx context.Context) ([]model.College, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+collegeColumns+` FROM colleges ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.College, 0)
	for rows.Next() {
		c, err := scanCollege(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func nullUint64(n sql.NullInt64) *uint64 {
	if !n.Valid {
		return nil
	}
	v := uint64(n.Int64)
	return &v
}

func nullFloat(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}

func nullTime(n sql.NullTime) *time.Time {
	if !n.Valid {
		return nil
	}
	t := n.Time.UTC()
	return &t
}
