package models

import "time"

// User captures application-facing fields for an authenticated identity.
// Identity fields come from the external provider on login; PasswordHash is
// only set for locally registered accounts.
type User struct {
	ID              string    `json:"id"`
	Email           string    `json:"email"`
	Name            string    `json:"name"`
	ProfileImageURL string    `json:"profileImageUrl"`
	PasswordHash    string    `json:"-"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}
