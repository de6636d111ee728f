package domain

import "time"

// User is an authenticated person. A user takes part in a group only
// through a Membership.
type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
