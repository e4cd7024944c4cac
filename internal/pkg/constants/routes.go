package constants

// Static route constants
const (
	LoginRoute   = "/login"
	AccountRoute = "/account"
	// Prefix for public card pages, without trailing slash
	CardPublicPrefix = "/c"
)
