package model

import "time"

// Group is a named circle of users who share their step statistics.
//
// OwnerID is denormalized: the owner also holds a Membership with RoleOwner
// for the same group. Both are written together in one transaction, and the
// access package consults both, so neither field is ever trusted alone.
type Group struct {
	ID        string    `json:"id"        db:"id"`
	Name      string    `json:"name"      db:"name"`
	OwnerID   string    `json:"ownerId"   db:"owner_id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
