package models

import (
	"time"
)

// Bearer token issued by the identity service
type Credential struct {
	AccessToken string
	IssuedAt    time.Time
	ExpiresAt   time.Time
}

// Valid reports whether the credential may still be used at moment now
func (c Credential) Valid(now time.Time) bool {
	return c.AccessToken != "" && now.Before(c.ExpiresAt)
}
