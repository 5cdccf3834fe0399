package models

import (
	"time"
)

// ApiKeyToken is one provider-issued access token stored on behalf of a
// user. Rows are only ever inserted and deleted; the token value and
// owner are immutable once stored.
type ApiKeyToken struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Token     string    `json:"token"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (t *ApiKeyToken) IsExpired() bool {
	return time.Now().After(t.ExpiresAt)
}
