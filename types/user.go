package types

import "time"

// Roles recognized by the onboarding system. Staff accounts are created
// through the admin API; admin accounts only through out-of-band seeding.
const (
	RoleAdmin = "admin"
	RoleStaff = "staff"
)

// User represents an account in the onboarding system.
// It contains identity, role, and audit metadata.
type User struct {
	// ID is the unique identifier of the user.
	ID int `json:"id" db:"id"`

	// Email is the unique address the user signs in with.
	Email string `json:"email" db:"email"`

	// Name is the user's display or full name.
	Name string `json:"name" db:"name"`

	// Role indicates the user's authorization level within the
	// system, either "admin" or "staff".
	Role string `json:"role" db:"role"`

	// PasswordHash stores the bcrypt hash of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// CreatedAt is the timestamp when the account was created.
	CreatedAt time.Time `json:"createdAt" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the account.
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// Identity is the authenticated subject carried by a session. It holds the
// user's public fields only, never the password hash.
type Identity struct {
	ID    int    `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

// IdentityOf extracts the session identity from a user record.
func IdentityOf(u User) Identity {
	return Identity{
		ID:    u.ID,
		Email: u.Email,
		Name:  u.Name,
		Role:  u.Role,
	}
}
