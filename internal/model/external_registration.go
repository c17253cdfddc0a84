package model

import (
    "errors"
    "time"
)

const (
    ExternalUnverified = "UNVERIFIED"
    ExternalVerified   = "VERIFIED"
    ExternalRejected   = "REJECTED"
)

var (
    ErrNoExternalForm  = errors.New("event has no external registration form")
    ErrAlreadyReviewed = errors.New("registration already reviewed")
)

// ExternalRegistration is a student's claim to have registered through an
// off-platform form.  Organizers verify or reject it once.
type ExternalRegistration struct {
    ID         uint64     `json:"id"`
    EventID    uint64     `json:"event_id"`
    UserID     uint64     `json:"user_id"`
    UserEmail  string     `json:"user_email,omitempty"`
    FormEmail  string     `json:"form_email"`
    Note       string     `json:"note"`
    Status     string     `json:"status"`
    ReviewedBy *uint64    `json:"reviewed_by,omitempty"`
    ReviewedAt *time.Time `json:"reviewed_at,omitempty"`
    CreatedAt  time.Time  `json:"created_at"`
    UpdatedAt  time.Time  `json:"updated_at"`
}

// CheckReview validates a reviewer decision.
func (r ExternalRegistration) CheckReview(decision string) error {
    if decision != ExternalVerified && decision != ExternalRejected {
        return ErrInvalidTransition
    }
    if r.Status != ExternalUnverified {
        return ErrAlreadyReviewed
    }
    return nil
}
