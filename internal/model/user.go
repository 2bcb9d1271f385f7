// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents an account known to the service.
//
// Identity (credentials, sign-in, password reset) is owned by an external
// identity provider; we only ever see a user's opaque ID inside a verified
// token. The row here exists so memberships and step entries have something
// to reference and so listings can show a human-readable name.
type User struct {
	ID          string    `json:"id"          db:"id"`
	DisplayName string    `json:"displayName" db:"display_name"`
	CreatedAt   time.Time `json:"createdAt"   db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt"   db:"updated_at"`
}
