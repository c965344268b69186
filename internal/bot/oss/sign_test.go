package oss

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

const testDate = "Wed, 01 Jan 2025 00:00:00 GMT"

func imageHeaders() http.Header {
	h := http.Header{}
	h.Set("Content-Type", "image/jpeg")
	h.Set("Content-Length", "123")
	h.Set(HeaderDate, testDate)
	h.Set(HeaderSecurityToken, "tok")
	h.Set("User-Agent", "browser")
	return h
}

func TestStringToSign_Layout(t *testing.T) {
	got := StringToSign(http.MethodPut, "/pic2-creality/crealityCloud/upload/a.jpeg", imageHeaders())

	want := "PUT\n\nimage/jpeg\n" + testDate + "\n" +
		"x-oss-date:" + testDate + "\n" +
		"x-oss-security-token:tok\n" +
		"/pic2-creality/crealityCloud/upload/a.jpeg"
	assert.Equal(t, want, got)
}

func TestSign_KnownVector(t *testing.T) {
	sig := Sign(http.MethodPut, "/pic2-creality/crealityCloud/upload/a.jpeg", imageHeaders(), "secret")
	assert.Equal(t, "19R2rVoBNdeQFQuYKEtxuM0b/dw=", sig)
}

func TestSign_PlainDateHeaderFallback(t *testing.T) {
	h := http.Header{}
	h.Set("Date", "Thu, 17 Nov 2005 18:49:58 GMT")

	assert.Equal(t, "GET\n\n\nThu, 17 Nov 2005 18:49:58 GMT\n/bucket/key", StringToSign(http.MethodGet, "/bucket/key", h))
	assert.Equal(t, "bGX47gG2nPlYXdimeAMzBVPGLdI=", Sign(http.MethodGet, "/bucket/key", h, "secret"))
}

func TestSign_Deterministic(t *testing.T) {
	a := Sign(http.MethodPost, "/b/k?uploads", imageHeaders(), "s")
	b := Sign(http.MethodPost, "/b/k?uploads", imageHeaders(), "s")
	assert.Equal(t, a, b)
}

func TestSign_IgnoresNonProtocolHeaders(t *testing.T) {
	base := Sign(http.MethodPut, "/b/k", imageHeaders(), "s")

	h := imageHeaders()
	h.Set("User-Agent", "something else")
	h.Set("Content-Length", "999")
	h.Set("Origin", "https://example.com")

	assert.Equal(t, base, Sign(http.MethodPut, "/b/k", h, "s"))
}

func TestSign_OrderAndCaseIndependent(t *testing.T) {
	a := http.Header{}
	a["X-Oss-Security-Token"] = []string{"tok"}
	a["X-Oss-Date"] = []string{testDate}
	a["X-Oss-User-Agent"] = []string{"sdk"}

	b := http.Header{}
	b["x-oss-user-agent"] = []string{"sdk"}
	b["x-oss-date"] = []string{testDate}
	b["X-OSS-SECURITY-TOKEN"] = []string{"tok"}

	assert.Equal(t, StringToSign(http.MethodPut, "/b/k", a), StringToSign(http.MethodPut, "/b/k", b))
	assert.Equal(t, Sign(http.MethodPut, "/b/k", a, "s"), Sign(http.MethodPut, "/b/k", b, "s"))
}

func TestSign_ProtocolHeaderChangesSignature(t *testing.T) {
	base := Sign(http.MethodPut, "/b/k", imageHeaders(), "s")

	h := imageHeaders()
	h.Set(HeaderSecurityToken, "other")
	assert.NotEqual(t, base, Sign(http.MethodPut, "/b/k", h, "s"))

	assert.NotEqual(t, base, Sign(http.MethodPut, "/b/k?uploads", imageHeaders(), "s"))
	assert.NotEqual(t, base, Sign(http.MethodPut, "/b/k", imageHeaders(), "t"))
}

func TestSign_ContentMD5NonCanonicalKey(t *testing.T) {
	h := http.Header{}
	h["Content-MD5"] = []string{"abc=="}
	assert.Equal(t, "PUT\nabc==\n\n\n/b/k", StringToSign(http.MethodPut, "/b/k", h))
}

func TestAuthorization(t *testing.T) {
	assert.Equal(t, "OSS AKID:sig=", Authorization("AKID", "sig="))
}
