package apimodel

// TokenResult is the token pair returned by login and refresh.
type TokenResult struct {
	// AccessToken is a short-lived JWT sent as "Authorization: Bearer <accessToken>".
	AccessToken string `json:"accessToken"`

	// RefreshToken is an opaque value exchanged at /api/auth/refresh. It rotates on every use.
	RefreshToken string `json:"refreshToken"`
}

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	UserID  string `json:"userId"`
	PinCode string `json:"pinCode"`
}

// RefreshRequest is the body of POST /api/auth/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}
