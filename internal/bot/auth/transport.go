package auth

import "net/http"

// DefaultHeaders adds Header to every outgoing request that does not
// already carry the same key.
type DefaultHeaders struct {
	Header http.Header
	Base   http.RoundTripper
}

func (t *DefaultHeaders) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	for k, v := range t.Header {
		if _, ok := r.Header[k]; !ok {
			r.Header[k] = append([]string(nil), v...)
		}
	}
	return t.Base.RoundTrip(r)
}
