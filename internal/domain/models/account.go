package models

import "time"

// Account represents a registered user as stored in the database.
// PassHash and RefreshToken never leave the service layer; Profile is the
// outward-facing view.
type Account struct {
	ID            string
	Username      string
	Email         string
	FullName      string
	AvatarURL     string
	CoverImageURL string
	PassHash      []byte
	RefreshToken  string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Profile is the client-visible subset of an Account.
type Profile struct {
	ID            string    `json:"id"`
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	FullName      string    `json:"fullname"`
	AvatarURL     string    `json:"avatar"`
	CoverImageURL string    `json:"coverImage,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Profile strips the credential fields off an Account.
func (a *Account) Profile() Profile {
	return Profile{
		ID:            a.ID,
		Username:      a.Username,
		Email:         a.Email,
		FullName:      a.FullName,
		AvatarURL:     a.AvatarURL,
		CoverImageURL: a.CoverImageURL,
		CreatedAt:     a.CreatedAt,
	}
}
