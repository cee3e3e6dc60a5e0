package transport

// Machine-readable reason strings surfaced at the request boundary. The
// client heartbeat keys off these to pick the message it shows on forced
// logout.
const (
	ReasonInvalidCredentials    = "invalid_credentials"
	ReasonAccountDeactivated    = "account_deactivated"
	ReasonSessionActive         = "session_active"
	ReasonSessionSuperseded     = "session_superseded"
	ReasonInvalidToken          = "invalid_token"
	ReasonUnauthenticated       = "unauthenticated"
	ReasonForbidden             = "forbidden"
	ReasonInvalidOrExpiredToken = "invalid_or_expired_token"
)
