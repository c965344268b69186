// Package netx holds HTTP plumbing shared by the platform clients: typed
// errors that keep transport/status failures apart from decode failures.
package netx

import (
	"fmt"
	"io"
	"net/http"
)

// SnippetLimit bounds the response text attached to errors.
const SnippetLimit = 200

// StatusError reports an unexpected HTTP status.
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Op, e.StatusCode, e.Body)
}

// DecodeError reports a response that arrived fine but could not be parsed.
type DecodeError struct {
	Op  string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: decode response: %v", e.Op, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Snippet truncates s to SnippetLimit bytes.
func Snippet(s string) string {
	if len(s) <= SnippetLimit {
		return s
	}
	return s[:SnippetLimit]
}

// ReadBody drains and closes resp.Body.
func ReadBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// ExpectStatus returns a *StatusError carrying a body snippet when resp
// does not have the wanted status. The body is consumed in that case.
func ExpectStatus(op string, resp *http.Response, want int) error {
	if resp.StatusCode == want {
		return nil
	}
	b, _ := ReadBody(resp)
	return &StatusError{Op: op, StatusCode: resp.StatusCode, Body: Snippet(string(b))}
}
