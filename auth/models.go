package auth

import "time"

// UserType identifies the guard a user authenticates against. It is stamped
// onto the master records the user creates.
type UserType string

const (
	UserTypeUser   UserType = "user"
	UserTypeAdmin  UserType = "admin"
	UserTypeClient UserType = "client"
)

// User is the domain representation of an authenticated user.
// It mirrors the users table and should not include JSON annotations so it
// can be reused by different presentation layers.
type User struct {
	ID           string
	Email        string
	FullName     string
	PasswordHash string
	UserType     UserType
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// RegisterRequest contains user registration data supplied by callers.
type RegisterRequest struct {
	Email    string   `json:"email"`
	Password string   `json:"password"`
	FullName string   `json:"full_name"`
	UserType UserType `json:"user_type"`
}

// LoginRequest contains user login credentials.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Claims is the identity carried by a verified token.
type Claims struct {
	UserID   string
	UserType UserType
}
