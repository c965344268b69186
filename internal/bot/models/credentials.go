// Package models defines the data passed between the bot stages.
package models

import "net/http"

// Credentials is the result of a successful login. It is created once per
// run and only read afterwards.
type Credentials struct {
	// HTTPClient carries the cookie jar populated during login and must be
	// reused for every platform call.
	HTTPClient *http.Client

	Token     string
	UserID    string
	OAuthCode string

	// ModelToken and ModelUserID are the second-tier marketplace
	// credentials. Empty means the platform did not issue them.
	ModelToken  string
	ModelUserID string
}

// HasModelToken reports whether the second-tier credentials are present.
func (c *Credentials) HasModelToken() bool {
	return c != nil && c.ModelToken != "" && c.ModelUserID != ""
}
