package user

import "time"

// User represents a user entity in the system.
type User struct {
	ID           string    // ID is the opaque store-assigned identifier
	FirstName    string    // FirstName is the user's given name
	LastName     string    // LastName is the user's family name
	Email        string    // Email is the unique, lower-cased email address
	Phone        string    // Phone is optional and stored as entered
	PasswordHash string    // PasswordHash is the bcrypt hash, never exposed
	CreatedDate  time.Time // CreatedDate is set once on insert
	UpdatedDate  time.Time // UpdatedDate is bumped on every update
}

// FullName joins first and last name.
func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}
