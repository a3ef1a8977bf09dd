package models

import "time"

// TokenResponse is returned by the auth endpoints after a successful
// login, signup, Google sign-in, or refresh.
type TokenResponse struct {
	AccessToken  string    `json:"accessToken"`
	TokenType    string    `json:"tokenType"`
	ExpiresIn    int       `json:"expiresIn"`
	RefreshToken string    `json:"-"` // carried only in the httpOnly cookie
	IssuedAt     time.Time `json:"issuedAt"`
}
