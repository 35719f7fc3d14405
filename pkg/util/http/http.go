package http

import (
	"io"
	"net/http"

	"github.com/pkg/errors"
)

const maxErrorBody = 512

func isSuccessStatusCode(resp *http.Response) bool {
	return resp.StatusCode >= 200 && resp.StatusCode <= 299
}

// EnsureSuccessStatusCode returns an error carrying the status and a prefix of the
// body when resp is not 2xx.
func EnsureSuccessStatusCode(resp *http.Response) error {
	if isSuccessStatusCode(resp) {
		return nil
	}

	var snippet string
	if resp.Body != nil {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		snippet = string(b)
	}

	if snippet == "" {
		return errors.New("http response did not indicate success status code: " + resp.Status)
	}
	return errors.Errorf("http response did not indicate success status code: %s: %s", resp.Status, snippet)
}
