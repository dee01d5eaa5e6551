package models

import "time"

// MinPasswordLength is the shortest accepted password, in characters.
const MinPasswordLength = 8

// User represents a user account in the system.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Never expose this to the client
	FullName     string    `json:"full_name"`
	Username     string    `json:"username"`
	Location     *string   `json:"location,omitempty"`
	Address      *string   `json:"address,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
