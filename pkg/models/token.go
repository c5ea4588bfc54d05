package models

import "time"

// AccessToken is the credential presented to the live parts provider.
type AccessToken struct {
	Value     string    `json:"-"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (t AccessToken) IsZero() bool { return t.Value == "" }

// UsableAt reports whether the token may still be presented at now,
// keeping margin in reserve before expiry.
func (t AccessToken) UsableAt(now time.Time, margin time.Duration) bool {
	return !t.IsZero() && now.Before(t.ExpiresAt.Add(-margin))
}
