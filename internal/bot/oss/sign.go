package oss

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"net/http"
	"sort"
	"strings"
)

// HeaderPrefix marks the headers that take part in the signature.
const HeaderPrefix = "x-oss-"

// Protocol headers.
const (
	HeaderDate          = "X-Oss-Date"
	HeaderSecurityToken = "X-Oss-Security-Token"
	HeaderUserAgent     = "X-Oss-User-Agent"
)

// StringToSign builds the canonical string for method, resource and h:
//
//	METHOD \n Content-MD5 \n Content-Type \n Date \n <x-oss-* headers> RESOURCE
//
// Header names are matched case-insensitively. Date is x-oss-date when
// present, Date otherwise.
func StringToSign(method, resource string, h http.Header) string {
	ossHeaders := make(map[string]string)
	for name, values := range h {
		lower := strings.ToLower(name)
		if !strings.HasPrefix(lower, HeaderPrefix) {
			continue
		}
		v := strings.Join(values, ",")
		if prev, ok := ossHeaders[lower]; ok {
			v = prev + "," + v
		}
		ossHeaders[lower] = v
	}

	names := make([]string, 0, len(ossHeaders))
	for name := range ossHeaders {
		names = append(names, name)
	}
	sort.Strings(names)

	date, ok := ossHeaders[strings.ToLower(HeaderDate)]
	if !ok {
		date = headerValue(h, "Date")
	}

	var b strings.Builder
	b.WriteString(method)
	b.WriteByte('\n')
	b.WriteString(headerValue(h, "Content-MD5"))
	b.WriteByte('\n')
	b.WriteString(headerValue(h, "Content-Type"))
	b.WriteByte('\n')
	b.WriteString(date)
	b.WriteByte('\n')
	for _, name := range names {
		b.WriteString(name)
		b.WriteByte(':')
		b.WriteString(ossHeaders[name])
		b.WriteByte('\n')
	}
	b.WriteString(resource)
	return b.String()
}

// Sign returns the base64 HMAC-SHA1 of the string to sign under secret.
func Sign(method, resource string, h http.Header, secret string) string {
	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write([]byte(StringToSign(method, resource, h)))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// Authorization formats the Authorization header value.
func Authorization(accessKeyID, signature string) string {
	return "OSS " + accessKeyID + ":" + signature
}

// headerValue looks name up case-insensitively, including keys that were
// stored without canonicalization.
func headerValue(h http.Header, name string) string {
	if v := h.Get(name); v != "" {
		return v
	}
	for k, values := range h {
		if strings.EqualFold(k, name) && len(values) > 0 {
			return values[0]
		}
	}
	return ""
}
