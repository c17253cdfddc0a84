package model

import "time"

// College is the organizer profile attached to a COLLEGE user.  Events
// reference the college rather than the user so the public API never
// exposes account details.
type College struct {
    ID           uint64    `json:"id"`
    UserID       uint64    `json:"-"`
    Name         string    `json:"name"`
    City         string    `json:"city"`
    Website      *string   `json:"website,omitempty"`
    ContactEmail *string   `json:"contact_email,omitempty"`
    CreatedAt    time.Time `json:"created_at"`
    UpdatedAt    time.Time `json:"updated_at"`
}
