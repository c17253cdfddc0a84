package utils

import (
    "crypto/hmac"
    "crypto/sha256"
    "encoding/hex"
)

// HMACSHA256Hex signs msg with secret and returns the hex digest.
func HMACSHA256Hex(secret, msg string) string {
    mac := hmac.New(sha256.New, []byte(secret))
    mac.Write([]byte(msg))
    return hex.EncodeToString(mac.Sum(nil))
}

// VerifyHMACSHA256Hex compares sig against the digest of msg in constant
// time.
func VerifyHMACSHA256Hex(secret, msg, sig string) bool {
    want, err := hex.DecodeString(sig)
    if err != nil || len(want) == 0 {
        return false
    }
    mac := hmac.New(sha256.New, []byte(secret))
    mac.Write([]byte(msg))
    return hmac.Equal(want, mac.Sum(nil))
}
