package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/iliyamo/campus-events/internal/model"
)

// ExternalRegistrationRepo tracks self-reported off-platform registrations.
type ExternalRegistrationRepo struct{ db *sql.DB }

func NewExternalRegistrationRepo(db *sql.DB) *ExternalRegistrationRepo {
	return &ExternalRegistrationRepo{db: db}
}

const externalColumns = `x.id, x.event_id, x.user_id, u.email, x.form_email, x.note, x.status,
	x.reviewed_by, x.reviewed_at, x.created_at, x.updated_at`

const externalFrom = ` FROM external_registrations x JOIN users u ON u.id = x.user_id`

func scanExternal(row rowScanner) (*model.ExternalRegistration, error) {
	var x model.ExternalRegistration
	var by sql.NullInt64
	var at sql.NullTime
	err := row.Scan(&x.ID, &x.EventID, &x.UserID, &x.UserEmail, &x.FormEmail, &x.Note, &x.Status,
		&by, &at, &x.CreatedAt, &x.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrExternalNotFound
	}
	if err != nil {
		return nil, err
	}
	x.ReviewedBy, x.ReviewedAt = nullUint64(by), nullTime(at)
	return &x, nil
}

// Create records a new UNVERIFIED claim.  A second claim by the same
// student for the same event yields ErrDuplicate.
func (r *ExternalRegistrationRepo) Create(ctx context.Context, eventID, userID uint64, formEmail, note string) (*model.ExternalRegistration, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO external_registrations (event_id, user_id, form_email, note, status) VALUES (?, ?, ?, ?, ?)`,
		eventID, userID, NormalizeEmail(formEmail), strings.TrimSpace(note), model.ExternalUnverified)
	if err != nil {
		if isDuplicateKey(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, uint64(id))
}

func (r *ExternalRegistrationRepo) GetByID(ctx context.Context, id uint64) (*model.ExternalRegistration, error) {
	return scanExternal(r.db.QueryRowContext(ctx, `SELECT `+externalColumns+externalFrom+` WHERE x.id = ?`, id))
}

// ListByEvent returns the claims for an event, optionally by status.
func (r *ExternalRegistrationRepo) ListByEvent(ctx context.Context, eventID uint64, status string) ([]model.ExternalRegistration, error) {
	q := `SELECT ` + externalColumns + externalFrom + ` WHERE x.event_id = ?`
	args := []interface{}{eventID}
	if status != "" {
		q += ` AND x.status = ?`
		args = append(args, status)
	}
	q += ` ORDER BY x.created_at, x.id`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.ExternalRegistration, 0)
	for rows.Next() {
		x, err := scanExternal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *x)
	}
	return out, rows.Err()
}

// ListByUser returns every claim a student made.
func (r *ExternalRegistrationRepo) ListByUser(ctx context.Context, userID uint64) ([]model.ExternalRegistration, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+externalColumns+externalFrom+` WHERE x.user_id = ? ORDER BY x.created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.ExternalRegistration, 0)
	for rows.Next() {
		x, err := scanExternal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *x)
	}
	return out, rows.Err()
}

// Review records the organizer's decision on an UNVERIFIED claim.  The
// status guard in the WHERE clause keeps a decision from being overwritten.
func (r *ExternalRegistrationRepo) Review(ctx context.Context, id, eventID, reviewerID uint64, decision string) (*model.ExternalRegistration, error) {
	x, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if x.EventID != eventID {
		return nil, ErrExternalNotFound
	}
	if err := x.CheckReview(decision); err != nil {
		return nil, err
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE external_registrations SET status = ?, reviewed_by = ?, reviewed_at = ?
		 WHERE id = ? AND status = ?`,
		decision, reviewerID, time.Now().UTC(), id, model.ExternalUnverified)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, model.ErrAlreadyReviewed
	}
	return r.GetByID(ctx, id)
}

// VerifyByEmails marks UNVERIFIED claims of an event as VERIFIED when their
// form email or account email appears in emails.  It returns the number of
// rows updated.
func (r *ExternalRegistrationRepo) VerifyByEmails(ctx context.Context, eventID, reviewerID uint64, emails []string) (int64, error) {
	if len(emails) == 0 {
		return 0, nil
	}
	var total int64
	// keep IN lists bounded
	const chunk = 500
	for start := 0; start < len(emails); start += chunk {
		end := start + chunk
		if end > len(emails) {
			end = len(emails)
		}
		part := emails[start:end]
		marks := strings.TrimSuffix(strings.Repeat("?,", len(part)), ",")
		args := []interface{}{model.ExternalVerified, reviewerID, time.Now().UTC(), eventID, model.ExternalUnverified}
		for _, e := range part {
			args = append(args, NormalizeEmail(e))
		}
		for _, e := range part {
			args = append(args, NormalizeEmail(e))
		}
		res, err := r.db.ExecContext(ctx,
			`UPDATE external_registrations x JOIN users u ON u.id = x.user_id
			 SET x.status = ?, x.reviewed_by = ?, x.reviewed_at = ?
			 WHERE x.event_id = ? AND x.status = ?
			   AND (x.form_email IN (`+marks+`) OR u.email IN (`+marks+`))`, args...)
		if err != nil {
			return total, err
		}
		n, _ := res.RowsAffected()
		total += n
	}
	return total, nil
}
