// Package repository holds the MySQL data access layer.  Sentinel errors
// defined here let handlers distinguish failure scenarios without looking
// at driver errors.
package repository

import (
    "github.com/go-sql-driver/mysql"
    "github.com/pkg/errors"
)

// ErrForbidden is returned when the caller attempts an operation on a
// resource they do not own.  Handlers translate it into HTTP 403.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when an operation cannot proceed because of
// dependent records, such as deleting an event that has bookings.
var ErrConflict = errors.New("conflict")

var (
    ErrUserNotFound     = errors.New("user not found")
    ErrCollegeNotFound  = errors.New("college not found")
    ErrEventNotFound    = errors.New("event not found")
    ErrSubEventNotFound = errors.New("sub-event not found")
    ErrBookingNotFound  = errors.New("booking not found")
    ErrTicketNotFound   = errors.New("ticket not found")
    ErrExternalNotFound = errors.New("external registration not found")
    ErrEmailExists      = errors.New("email already exists")
    ErrDuplicate        = errors.New("duplicate")
)

// isDuplicateKey reports whether err is a MySQL unique constraint violation.
func isDuplicateKey(err error) bool {
    var me *mysql.MySQLError
    return errors.As(err, &me) && me.Number == 1062
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
    Scan(dest ...interface{}) error
}
