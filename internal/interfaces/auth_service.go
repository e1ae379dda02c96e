package interfaces

// AuthService - bearer credential validation for write endpoints
type AuthService interface {
	// Authorize validates a bearer token. A disabled service admits
	// every caller.
	Authorize(token string) error

	// Enabled reports whether credential checks are active.
	Enabled() bool
}
