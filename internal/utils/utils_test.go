package utils

import (
    "bytes"
    "strings"
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
    "golang.org/x/crypto/bcrypt"
)

const secret = "test-secret"

func TestAccessTokenRoundTrip(t *testing.T) {
    tok, err := NewAccessToken(secret, 42, "COLLEGE", 5)
    require.NoError(t, err)
    id, err := ParseAccessToken(secret, tok.Token)
    require.NoError(t, err)
    assert.Equal(t, Identity{UserID: 42, Role: "COLLEGE"}, id)

    _, err = ParseAccessToken("other-secret", tok.Token)
    assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestExpiredAccessTokenRejected(t *testing.T) {
    tok, err := NewAccessToken(secret, 1, "STUDENT", -1)
    require.NoError(t, err)
    _, err = ParseAccessToken(secret, tok.Token)
    assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTicketTokenIsNotAnAccessToken(t *testing.T) {
    tok, err := NewTicketToken(secret, NewTicketCode(), 7)
    require.NoError(t, err)
    _, err = ParseAccessToken(secret, tok)
    assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTicketCodeFromPayload(t *testing.T) {
    code := NewTicketCode()
    tok, err := NewTicketToken(secret, code, 7)
    require.NoError(t, err)

    got, err := TicketCodeFromPayload(secret, tok)
    require.NoError(t, err)
    assert.Equal(t, code, got)

    got, err = TicketCodeFromPayload(secret, "  "+code+"\n")
    require.NoError(t, err)
    assert.Equal(t, code, got)

    _, err = TicketCodeFromPayload("wrong", tok)
    assert.ErrorIs(t, err, ErrInvalidToken)

    access, err := NewAccessToken(secret, 1, "STUDENT", 5)
    require.NoError(t, err)
    _, err = TicketCodeFromPayload(secret, access.Token)
    assert.ErrorIs(t, err, ErrInvalidToken)

    _, err = TicketCodeFromPayload(secret, "")
    assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefreshTokenHash(t *testing.T) {
    rt, err := NewRefreshToken(1)
    require.NoError(t, err)
    assert.Len(t, rt.Raw, 96)
    assert.Len(t, HashRefreshRaw(rt.Raw), 64)
    assert.Equal(t, HashRefreshRaw(rt.Raw), HashRefreshRaw(rt.Raw))
}

func TestPassword(t *testing.T) {
    h, err := HashPassword("hunter22", bcrypt.MinCost)
    require.NoError(t, err)
    assert.True(t, VerifyPassword(h, "hunter22"))
    assert.False(t, VerifyPassword(h, "hunter23"))

    assert.False(t, NeedsRehash(h, bcrypt.MinCost))
    assert.True(t, NeedsRehash(h, bcrypt.MinCost+1))
    assert.True(t, NeedsRehash("not-a-hash", bcrypt.MinCost))

    _, err = HashPassword(strings.Repeat("x", 73), bcrypt.MinCost)
    assert.ErrorIs(t, err, ErrPasswordTooLong)
}

func TestQRPNG(t *testing.T) {
    png, err := QRPNG("hello")
    require.NoError(t, err)
    assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))
}

func TestHaversine(t *testing.T) {
    // Bengaluru to Chennai is roughly 290 km as the crow flies.
    d := HaversineKm(12.9716, 77.5946, 13.0827, 80.2707)
    assert.InDelta(t, 290, d, 10)
    assert.InDelta(t, 0, HaversineKm(1, 1, 1, 1), 1e-9)

    minLat, maxLat, minLng, maxLng := BoundingBox(12.97, 77.59, 10)
    assert.Less(t, minLat, 12.97)
    assert.Greater(t, maxLat, 12.97)
    assert.Less(t, minLng, 77.59)
    assert.Greater(t, maxLng, 77.59)
}

func TestHMACSignature(t *testing.T) {
    body := `{"invoice":"inv_1","status":"paid"}`
    sig := HMACSHA256Hex("whsec", body)
    assert.Len(t, sig, 64)
    assert.True(t, VerifyHMACSHA256Hex("whsec", body, sig))
    assert.False(t, VerifyHMACSHA256Hex("other", body, sig))
    assert.False(t, VerifyHMACSHA256Hex("whsec", body, "not-hex"))
    assert.False(t, VerifyHMACSHA256Hex("whsec", body, ""))
}
