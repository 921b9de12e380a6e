// Package auth verifies Pawline access tokens.
//
// Token issuance, refresh, and account management live in the platform's
// account service; this package only consumes previously issued tokens.
// Access tokens are PASETO v4.public and are short-lived. Verification is
// synchronous and single-attempt: expired or invalid tokens are never
// silently refreshed here.
package auth
