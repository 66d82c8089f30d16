package domain

import "time"

// Identity is the authenticated user context that gates favorites mutations
// and supplies the bearer credential for remote calls.
type Identity struct {
	ExpiresAt time.Time `json:"expires_at"`
	UserID    string    `json:"user_id" validate:"required"`
	Token     string    `json:"token" validate:"required"`
}

// Active reports whether the identity is usable at now.
// A zero ExpiresAt never expires.
func (i Identity) Active(now time.Time) bool {
	if i.UserID == "" || i.Token == "" {
		return false
	}
	return i.ExpiresAt.IsZero() || now.Before(i.ExpiresAt)
}
