package models

// Credentials is the login body
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenResponse is returned by a successful login
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// Me identifies the authenticated user
type Me struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Health is the gateway liveness payload
type Health struct {
	Status  string `json:"status"`
	Service string `json:"service,omitempty"`
	Version string `json:"version,omitempty"`
}
