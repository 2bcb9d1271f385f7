package model

import "time"

// Invitation is a single-use, time-boxed token that lets its bearer join a
// group. Tokens are 32 bytes of crypto/rand output, URL-safe base64 without
// padding, unique in the database.
//
// Lifecycle: created → active → used (accepted) or expired. Used and expired
// are both terminal; IsActive treats them identically, and callers surface
// the same "invalid or expired" message for both so a token never reveals
// its own history.
type Invitation struct {
	ID           string     `json:"id"           db:"id"`
	GroupID      string     `json:"groupId"      db:"group_id"`
	Token        string     `json:"token"        db:"token"`
	CreatedByID  string     `json:"createdById"  db:"created_by_id"`
	AcceptedByID *string    `json:"acceptedById" db:"accepted_by_id"`
	CreatedAt    time.Time  `json:"createdAt"    db:"created_at"`
	ExpiresAt    time.Time  `json:"expiresAt"    db:"expires_at"`
	UsedAt       *time.Time `json:"usedAt"       db:"used_at"`
}

// IsActive reports whether the invitation can still be accepted at the given
// instant. Once UsedAt is set it is false forever, regardless of expiry.
func (i *Invitation) IsActive(now time.Time) bool {
	return i.UsedAt == nil && !now.After(i.ExpiresAt)
}
