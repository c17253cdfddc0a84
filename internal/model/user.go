package model

import "time"

// Roles understood by the role middleware.  Students book seats, colleges
// organize events and admins moderate submissions.
const (
    RoleStudent = "STUDENT"
    RoleCollege = "COLLEGE"
    RoleAdmin   = "ADMIN"
)

// User represents an application user record as stored in the `users`
// table.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Email        – unique, lower-cased email address.
//  PasswordHash – bcrypt hashed password.
//  FullName     – display name.
//  Role         – STUDENT, COLLEGE or ADMIN.
//  IsActive     – whether the account may log in.
type User struct {
    ID           uint64    // users.id
    Email        string    // users.email
    PasswordHash string    // users.password_hash
    FullName     string    // users.full_name
    Role         string    // users.role
    IsActive     bool      // users.is_active
    CreatedAt    time.Time // users.created_at
    UpdatedAt    time.Time // users.updated_at
}

// NormalizeRole maps a requested self-service role onto an allowed one.
// ADMIN cannot be self-assigned; anything unknown becomes STUDENT.
func NormalizeRole(r string) string {
    if r == RoleCollege {
        return RoleCollege
    }
    return RoleStudent
}

// RefreshToken models an entry in the `refresh_tokens` table.  The plain
// token is not stored; only its SHA-256 hash.
type RefreshToken struct {
    ID        uint64     // refresh_tokens.id
    UserID    uint64     // refresh_tokens.user_id
    TokenHash string     // refresh_tokens.token_hash
    ExpiresAt time.Time  // refresh_tokens.expires_at
    RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
    CreatedAt time.Time  // refresh_tokens.created_at
}
