package database

import (
	"time"
)

// Account roles
const (
	RoleUser  = "user"
	RoleGuest = "guest"
	RoleAdmin = "admin"
)

// ValidRole reports whether role is one of the known account roles.
func ValidRole(role string) bool {
	switch role {
	case RoleUser, RoleGuest, RoleAdmin:
		return true
	}
	return false
}

// Account is a registered person who may log in to the dashboard.
type Account struct {
	ID           int64
	Username     string
	PasswordHash string
	Role         string
	FaceFilename string // reference photo in the known faces directory, empty if none
	CreatedAt    time.Time
}

// StoredSession is a login session persisted across restarts.
type StoredSession struct {
	ID        string
	AccountID int64
	Username  string
	Role      string
	CreatedAt time.Time
	ExpiresAt time.Time
}
