// Package auth performs the federated login against the identity provider
// and the marketplace: credential exchange, authorize, code exchange and
// warm-up, all on one cookie-carrying HTTP client.
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/profilebot/internal/bot/models"
	"github.com/dmitrijs2005/profilebot/internal/clock"
	"github.com/dmitrijs2005/profilebot/internal/common"
	"github.com/dmitrijs2005/profilebot/internal/logging"
	"github.com/dmitrijs2005/profilebot/internal/netx"
	"github.com/google/uuid"
	"golang.org/x/net/publicsuffix"
)

const (
	loginPath     = "/api/cxy/account/v2/loginV2"
	authorizePath = "/api/cxy/oauth2/authorize"
	oauthPath     = "/oauth"
	homePath      = "/es/"

	appVersion = "0.0.1"
	appChannel = "Chrome 143.0.0.0"
	osVersion  = "Windows 10"
)

var newRequestID = uuid.NewString

// Options configures a Session.
type Options struct {
	IDBaseURL    string
	CloudBaseURL string
	ClientID     string
	UserAgent    string
	// DUID is the device id; a random one is generated when empty.
	DUID     string
	Platform int
	Locale   string
	Lang     int
	Timezone int
	// RedirectURI defaults to "<cloud>/es/?ts=<ms>".
	RedirectURI string
	Timeout     time.Duration

	// Transport is the base round tripper; http.DefaultTransport when nil.
	Transport http.RoundTripper
	Clock     clock.Clock
	Logger    logging.Logger
}

// Session logs in once and hands out the resulting credentials.
type Session struct {
	opts  Options
	clock clock.Clock
	log   logging.Logger
}

func NewSession(o Options) *Session {
	s := &Session{opts: o, clock: o.Clock, log: o.Logger}
	if s.clock == nil {
		s.clock = clock.Real()
	}
	if s.log == nil {
		s.log = logging.Nop()
	}
	if s.opts.DUID == "" {
		s.opts.DUID = uuid.NewString()
	}
	if s.opts.Timeout == 0 {
		s.opts.Timeout = 15 * time.Second
	}
	return s
}

// Login runs the four steps in order. Failure of the first three aborts
// the login; missing marketplace cookies and warm-up errors only log.
func (s *Session) Login(ctx context.Context, account, password string) (*models.Credentials, error) {
	ts := s.clock.Now().UnixMilli()
	redirect := s.opts.RedirectURI
	if redirect == "" {
		redirect = fmt.Sprintf("%s%s?ts=%d", s.opts.CloudBaseURL, homePath, ts)
	}

	client, err := s.newHTTPClient(redirect)
	if err != nil {
		return nil, err
	}
	creds := &models.Credentials{HTTPClient: client}

	log := s.log.With(logging.KeyPhase, "login")

	creds.Token, creds.UserID, err = s.exchangeCredentials(ctx, client, account, password)
	if err != nil {
		log.Error(ctx, "credential exchange failed", logging.KeyOutcome, logging.OutcomeFailed, logging.KeyError, err)
		return nil, err
	}
	if exp, ok := TokenExpiry(creds.Token); ok {
		log.Debug(ctx, "identity token issued", "user_id", creds.UserID, "expires", exp)
	}

	creds.OAuthCode, err = s.authorize(ctx, client, creds.Token, creds.UserID, redirect)
	if err != nil {
		log.Error(ctx, "authorize failed", logging.KeyOutcome, logging.OutcomeFailed, logging.KeyError, err)
		return nil, err
	}

	creds.ModelToken, creds.ModelUserID, err = s.exchangeCode(ctx, client, creds.OAuthCode, redirect)
	if err != nil {
		log.Error(ctx, "code exchange failed", logging.KeyOutcome, logging.OutcomeFailed, logging.KeyError, err)
		return nil, err
	}
	if !creds.HasModelToken() {
		log.Warn(ctx, "marketplace cookies missing after code exchange",
			"model_token", creds.ModelToken != "", "model_user_id", creds.ModelUserID != "")
	}

	s.warmUp(ctx, client, ts)

	log.Info(ctx, "logged in", "user_id", creds.UserID, logging.KeyOutcome, logging.OutcomeOK)
	return creds, nil
}

func (s *Session) newHTTPClient(redirect string) (*http.Client, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}

	idURL, err := url.Parse(s.opts.IDBaseURL)
	if err != nil {
		return nil, fmt.Errorf("identity base url: %w", err)
	}
	jar.SetCookies(idURL, []*http.Cookie{
		{Name: "id-app-id", Value: common.AppID},
		{Name: "id-lang", Value: strconv.Itoa(s.opts.Lang)},
		{Name: "id-locale", Value: s.opts.Locale},
		{Name: "id-uuid", Value: s.opts.DUID},
	})

	base := s.opts.Transport
	if base == nil {
		base = http.DefaultTransport
	}

	q := url.Values{}
	q.Set("lang", s.opts.Locale)
	q.Set("client_id", s.opts.ClientID)
	q.Set("app_id", common.AppID)
	q.Set("redirect_uri", redirect)
	q.Set("platform", strconv.Itoa(s.opts.Platform))

	h := http.Header{}
	h.Set("Accept", "application/json, text/plain, */*")
	h.Set("User-Agent", s.opts.UserAgent)
	h.Set("Accept-Language", s.opts.Locale+","+strings.SplitN(s.opts.Locale, "-", 2)[0]+";q=0.9")
	h.Set("Origin", s.opts.IDBaseURL)
	h.Set("Referer", s.opts.IDBaseURL+"/?"+q.Encode())
	h.Set(common.HeaderAppID, common.AppID)
	h.Set(common.HeaderPlatform, strconv.Itoa(s.opts.Platform))
	h.Set(common.HeaderOSLang, strconv.Itoa(s.opts.Lang))
	h.Set(common.HeaderTimezone, strconv.Itoa(s.opts.Timezone))
	h.Set(common.HeaderAppVer, appVersion)
	h.Set(common.HeaderAppCh, appChannel)
	h.Set(common.HeaderOSVer, osVersion)
	h.Set(common.HeaderDUID, s.opts.DUID)

	return &http.Client{
		Jar:       jar,
		Timeout:   s.opts.Timeout,
		Transport: &DefaultHeaders{Header: h, Base: base},
	}, nil
}

func (s *Session) exchangeCredentials(ctx context.Context, client *http.Client, account, password string) (string, string, error) {
	const op = "credential exchange"

	payload := map[string]any{
		"type":        2,
		"account":     account,
		"password":    password,
		"appId":       common.AppID,
		"clientId":    s.opts.ClientID,
		"lang":        s.opts.Lang,
		"locale":      s.opts.Locale,
		"countryCode": "",
		"platform":    s.opts.Platform,
		"timezone":    s.opts.Timezone,
	}
	buf, err := json.Marshal(payload)
	if err != nil {
		return "", "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.opts.IDBaseURL+loginPath, bytes.NewReader(buf))
	if err != nil {
		return "", "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(common.HeaderRequestID, newRequestID())

	resp, err := client.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("%s: %w", op, err)
	}
	raw, err := netx.ReadBody(resp)
	if err != nil {
		return "", "", fmt.Errorf("%s: %w", op, err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return "", "", &netx.StatusError{Op: op, StatusCode: resp.StatusCode, Body: netx.Snippet(string(raw))}
	}

	body := decodeObject(raw)
	reply := loginReply{body: body, cookies: client.Jar.Cookies(req.URL)}
	token, userID, source := extractIdentity(reply)
	if token == "" {
		return "", "", fmt.Errorf("%w: http_status=%d code=%v msg=%q body=%q",
			ErrNoToken, resp.StatusCode, body["code"], firstString(body, "msg", "message"), netx.Snippet(string(raw)))
	}

	s.log.Debug(ctx, "token extracted", "source", source)
	return token, userID, nil
}

func (s *Session) authorize(ctx context.Context, client *http.Client, token, userID, redirect string) (string, error) {
	const op = "authorize"

	q := url.Values{}
	q.Set("response_type", "code")
	q.Set("client_id", s.opts.ClientID)
	q.Set("redirect_uri", redirect)
	q.Set("timestamp", strconv.FormatInt(s.clock.Now().UnixMilli(), 10))
	q.Set("platform", strconv.Itoa(s.opts.Platform))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.opts.IDBaseURL+authorizePath+"?"+q.Encode(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set(common.HeaderToken, token)
	req.Header.Set(common.HeaderUserID, userID)

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	raw, err := netx.ReadBody(resp)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return "", &netx.StatusError{Op: op, StatusCode: resp.StatusCode, Body: netx.Snippet(string(raw))}
	}

	var final *url.URL
	if resp.Request != nil {
		final = resp.Request.URL
	}
	code := authCodeFrom(decodeObject(raw), final)
	if code == "" {
		return "", ErrNoAuthCode
	}
	return code, nil
}

func (s *Session) exchangeCode(ctx context.Context, client *http.Client, code, redirect string) (string, string, error) {
	const op = "code exchange"

	q := url.Values{}
	q.Set("code", code)
	q.Set("redirect_uri", redirect)
	q.Set("platform", strconv.Itoa(s.opts.Platform))
	q.Set("newUser", "undefined")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.opts.CloudBaseURL+oauthPath+"?"+q.Encode(), nil)
	if err != nil {
		return "", "", err
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("%s: %w", op, err)
	}
	raw, err := netx.ReadBody(resp)
	if err != nil {
		return "", "", fmt.Errorf("%s: %w", op, err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return "", "", &netx.StatusError{Op: op, StatusCode: resp.StatusCode, Body: netx.Snippet(string(raw))}
	}

	cloudURL, err := url.Parse(s.opts.CloudBaseURL)
	if err != nil {
		return "", "", fmt.Errorf("cloud base url: %w", err)
	}
	cookies := client.Jar.Cookies(cloudURL)
	return cookieValue(cookies, common.CookieModelToken), cookieValue(cookies, common.CookieModelUserID), nil
}

func (s *Session) warmUp(ctx context.Context, client *http.Client, ts int64) {
	u := fmt.Sprintf("%s%s?ts=%d", s.opts.CloudBaseURL, homePath, ts)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return
	}
	resp, err := client.Do(req)
	if err != nil {
		s.log.Debug(ctx, "warm-up failed", logging.KeyError, err)
		return
	}
	_, _ = netx.ReadBody(resp)
}

// decodeObject returns the JSON object in raw, or nil.
func decodeObject(raw []byte) map[string]any {
	var m map[string]any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&m); err != nil {
		return nil
	}
	return m
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}
