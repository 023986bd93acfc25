package dto

import "time"

// LoginRequest payload. StaffRef is the chat user the operator acts as.
type LoginRequest struct {
	StaffRef    string `json:"staff_ref"`
	DisplayName string `json:"display_name"`
	Password    string `json:"password"`
}

// TokenResponse returns a bearer token.
type TokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}
