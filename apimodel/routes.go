package apimodel

// Backend endpoints consumed by the client.
const (
	RouteLogin         = "/api/auth/login"
	RouteRefresh       = "/api/auth/refresh"
	RouteSignup        = "/api/users/signup"
	RoutePinReset      = "/api/users/pin"
	RouteUserInfo      = "/api/users/info"
	RoutePushRegister  = "/api/notifications/fcm/register"
	RoutePushNamespace = "/api/notifications/fcm"
)
