package auth

import (
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractIdentity_Order(t *testing.T) {
	tests := []struct {
		name       string
		reply      loginReply
		wantToken  string
		wantUser   string
		wantSource string
	}{
		{
			name:       "data wins over top-level",
			reply:      loginReply{body: map[string]any{"data": map[string]any{"token": "D", "userId": "1"}, "token": "TOP"}},
			wantToken:  "D",
			wantUser:   "1",
			wantSource: "data",
		},
		{
			name:       "top-level",
			reply:      loginReply{body: map[string]any{"token": "TOP", "userId": "2"}},
			wantToken:  "TOP",
			wantUser:   "2",
			wantSource: "top-level",
		},
		{
			name: "user id from body, token from cookie",
			reply: loginReply{
				body:    map[string]any{"data": map[string]any{"userId": "5"}},
				cookies: []*http.Cookie{{Name: "__cxy_token_", Value: "CK"}, {Name: "__cxy_uid_", Value: "6"}},
			},
			wantToken:  "CK",
			wantUser:   "5",
			wantSource: "cxy cookies",
		},
		{
			name:  "nothing",
			reply: loginReply{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, user, source := extractIdentity(tt.reply)
			assert.Equal(t, tt.wantToken, token)
			assert.Equal(t, tt.wantUser, user)
			assert.Equal(t, tt.wantSource, source)
		})
	}
}

func TestParseIDApplication(t *testing.T) {
	token, user := parseIDApplication("%7B%22token%22%3A%22T2%22%2C%22userId%22%3A7%7D")
	assert.Equal(t, "T2", token)
	assert.Equal(t, "7", user)

	token, user = parseIDApplication("%7Bbroken")
	assert.Empty(t, token)
	assert.Empty(t, user)

	token, user = parseIDApplication("")
	assert.Empty(t, token)
	assert.Empty(t, user)
}

func TestAuthCodeFrom(t *testing.T) {
	final, _ := url.Parse("https://cloud.example/es/?code=URL")

	assert.Equal(t, "D", authCodeFrom(map[string]any{"data": map[string]any{"code": "D"}}, final))
	assert.Equal(t, "S", authCodeFrom(map[string]any{"code": "S"}, final))
	assert.Equal(t, "L", authCodeFrom(map[string]any{"result": map[string]any{"location": "https://x/?code=L"}}, final))
	assert.Equal(t, "URL", authCodeFrom(nil, final))
	assert.Equal(t, "", authCodeFrom(map[string]any{"code": 0.0}, nil))
}

func TestTokenExpiry(t *testing.T) {
	exp := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": exp.Unix(), "sub": "42"}).SignedString([]byte("k"))
	require.NoError(t, err)

	got, ok := TokenExpiry(signed)
	require.True(t, ok)
	assert.True(t, got.Equal(exp))

	_, ok = TokenExpiry("opaque-token")
	assert.False(t, ok)

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "42"}).SignedString([]byte("k"))
	require.NoError(t, err)
	_, ok = TokenExpiry(noExp)
	assert.False(t, ok)
}

func TestDefaultHeaders_DoNotOverride(t *testing.T) {
	var got http.Header
	base := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		got = r.Header
		return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody, Request: r}, nil
	})
	h := http.Header{}
	h.Set("Origin", "https://id.example")
	h.Set("Accept", "json")
	rt := &DefaultHeaders{Header: h, Base: base}

	req, _ := http.NewRequest(http.MethodGet, "http://x/", nil)
	req.Header.Set("Origin", "https://cloud.example")
	_, err := rt.RoundTrip(req)
	require.NoError(t, err)

	assert.Equal(t, "https://cloud.example", got.Get("Origin"))
	assert.Equal(t, "json", got.Get("Accept"))
	assert.Empty(t, req.Header.Get("Accept"), "caller request must not be mutated")
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }
