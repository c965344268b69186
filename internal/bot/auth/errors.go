package auth

import "errors"

var (
	// ErrNoToken means the credential exchange produced no identity token.
	ErrNoToken = errors.New("login returned no token")
	// ErrNoAuthCode means the authorize step produced no OAuth code.
	ErrNoAuthCode = errors.New("authorization returned no oauth code")
)
