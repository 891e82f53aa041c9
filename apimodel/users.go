package apimodel

// SignupRequest is the body of POST /api/users/signup.
type SignupRequest struct {
	Username    string `json:"username"`
	PhoneNumber string `json:"phoneNumber"`
	PinCode     string `json:"pinCode"`
	DeviceID    string `json:"deviceId,omitempty"`
}

// SignupResult carries the identifier the device keeps for PIN logins.
type SignupResult struct {
	UserID string `json:"userId"`
}

// PinResetRequest is the body of PATCH /api/users/pin.
type PinResetRequest struct {
	UserID  string `json:"userId"`
	PinCode string `json:"pinCode"`
}

// PushTokenRequest is the body of POST /api/notifications/fcm/register.
type PushTokenRequest struct {
	Token string `json:"token"`
}

// UserInfo is the profile returned by GET /api/users/info.
type UserInfo struct {
	UserID      string  `json:"userId"`
	Username    string  `json:"username"`
	PhoneNumber string  `json:"phoneNumber"`
	ProfileURL  *string `json:"profileImage,omitempty"`
}
