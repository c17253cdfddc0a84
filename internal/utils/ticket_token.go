package utils

import (
    "strconv"
    "strings"

    "github.com/golang-jwt/jwt/v5"
    "github.com/google/uuid"
)

// NewTicketCode returns the opaque identifier stored on a ticket row.
func NewTicketCode() string { return uuid.NewString() }

// NewTicketToken signs the QR payload of a ticket.  The token has no expiry;
// the ticket row is the source of truth for validity.
func NewTicketToken(secret, code string, eventID uint64) (string, error) {
    claims := jwt.MapClaims{
        "typ": "ticket",
        "tid": code,
        "eid": strconv.FormatUint(eventID, 10),
    }
    return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// TicketCodeFromPayload extracts the ticket code from a scanned payload.
// Door staff may type the bare code, so a valid UUID is accepted as is;
// anything else must be a ticket token signed with secret.
func TicketCodeFromPayload(secret, payload string) (string, error) {
    payload = strings.TrimSpace(payload)
    if payload == "" {
        return "", ErrInvalidToken
    }
    if id, err := uuid.Parse(payload); err == nil {
        return id.String(), nil
    }
    claims, err := parseHS256(secret, payload)
    if err != nil {
        return "", err
    }
    if typ, _ := claims["typ"].(string); typ != "ticket" {
        return "", ErrInvalidToken
    }
    code, _ := claims["tid"].(string)
    if _, err := uuid.Parse(code); err != nil {
        return "", ErrInvalidToken
    }
    return code, nil
}
