package auth

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/dmitrijs2005/profilebot/internal/common"
)

// loginReply is what the credential exchange left behind: the decoded body
// (nil when it was not a JSON object) and the cookies now in the jar.
type loginReply struct {
	body    map[string]any
	cookies []*http.Cookie
}

// tokenStrategy pulls a token and/or a user id out of a login reply.
type tokenStrategy struct {
	name    string
	extract func(r loginReply) (token, userID string)
}

// tokenStrategies are tried in order. The first non-empty token wins, and
// so does the first non-empty user id, independently.
var tokenStrategies = []tokenStrategy{
	{name: "data", extract: func(r loginReply) (string, string) {
		data, _ := r.body["data"].(map[string]any)
		return stringField(data, "token"), stringField(data, "userId")
	}},
	{name: "top-level", extract: func(r loginReply) (string, string) {
		return stringField(r.body, "token"), stringField(r.body, "userId")
	}},
	{name: "id-application cookie", extract: func(r loginReply) (string, string) {
		return parseIDApplication(cookieValue(r.cookies, common.CookieIDApplication))
	}},
	{name: "cxy cookies", extract: func(r loginReply) (string, string) {
		return cookieValue(r.cookies, common.HeaderToken), cookieValue(r.cookies, common.HeaderUserID)
	}},
}

// extractIdentity runs tokenStrategies and reports which one supplied the
// token.
func extractIdentity(r loginReply) (token, userID, source string) {
	for _, s := range tokenStrategies {
		t, u := s.extract(r)
		if token == "" && t != "" {
			token, source = t, s.name
		}
		if userID == "" && u != "" {
			userID = u
		}
	}
	return token, userID, source
}

// parseIDApplication decodes the URL-encoded JSON {"token":..,"userId":..}
// cookie.
func parseIDApplication(raw string) (string, string) {
	if raw == "" {
		return "", ""
	}
	decoded, err := url.QueryUnescape(raw)
	if err != nil {
		return "", ""
	}
	var payload map[string]any
	dec := json.NewDecoder(strings.NewReader(decoded))
	dec.UseNumber()
	if err := dec.Decode(&payload); err != nil {
		return "", ""
	}
	return stringField(payload, "token"), stringField(payload, "userId")
}

// stringField renders m[key] as a string. Numbers are formatted without
// exponent; booleans, objects and nulls yield "".
func stringField(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return fmt.Sprintf("%.0f", v)
	default:
		return ""
	}
}

func cookieValue(cookies []*http.Cookie, name string) string {
	for _, c := range cookies {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

// authCodeFrom finds the OAuth code in the authorize reply: data.code, a
// string top-level code, result.location's query, then the final URL.
func authCodeFrom(body map[string]any, finalURL *url.URL) string {
	if data, ok := body["data"].(map[string]any); ok {
		if c, ok := data["code"].(string); ok && c != "" {
			return c
		}
	}
	if c, ok := body["code"].(string); ok && c != "" {
		return c
	}
	if result, ok := body["result"].(map[string]any); ok {
		if loc, ok := result["location"].(string); ok && loc != "" {
			if u, err := url.Parse(loc); err == nil {
				if c := u.Query().Get("code"); c != "" {
					return c
				}
			}
		}
	}
	if finalURL != nil {
		return finalURL.Query().Get("code")
	}
	return ""
}
