package dto

import "time"

// CareerSubmitRequest is the single-field form submission.
type CareerSubmitRequest struct {
	Career string `json:"career" validate:"required,min=2,max=120"`
}

// CareerTokenResponse is a short-lived signed handle for a submitted career.
type CareerTokenResponse struct {
	Token     string    `json:"token"`
	Career    string    `json:"career"`
	ExpiresAt time.Time `json:"expires_at"`
}
