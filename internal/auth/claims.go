package auth

import "time"

// sessionClaims are the claims sealed into the session token.
type sessionClaims struct {
	Expiration time.Time `json:"exp"`
	IssuedAt   time.Time `json:"iat"`
	Issuer     string    `json:"iss"`
	Subject    string    `json:"sub"`
	Bearer     string    `json:"bearer"`
}
