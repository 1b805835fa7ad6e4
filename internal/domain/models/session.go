package models

// TokenPair is an access/refresh token pair issued together on login or
// refresh. It is never persisted; the refresh token alone is written onto the
// Account record.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}
