package common

const (
	// AuthorizationHeaderName carries the caller's bearer token.
	AuthorizationHeaderName = "Authorization"

	// BearerPrefix precedes the raw token in AuthorizationHeaderName.
	BearerPrefix = "Bearer "

	// DateLayout is the fixed-width calendar date format used for entry dates
	// and attachment key prefixes.
	DateLayout = "2006-01-02"
)
