// studybuddy/utils/http/httputils.go
package httputils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Client is shared by every outbound JSON call. It has no timeout of its own;
// callers bound requests through ctx.
var Client = &http.Client{}

// StatusError is returned for non-200 responses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("bad status: %d %s", e.StatusCode, e.Body)
}

func newRequest(ctx context.Context, url string, headers map[string]string, body interface{}) (*http.Request, error) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return req, nil
}

func statusError(r *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(r.Body, 4096))
	return &StatusError{StatusCode: r.StatusCode, Body: string(b)}
}

func PostJSON(ctx context.Context, url string, headers map[string]string, body interface{}, resp interface{}) error {
	req, err := newRequest(ctx, url, headers, body)
	if err != nil {
		return err
	}
	r, err := Client.Do(req)
	if err != nil {
		return err
	}
	defer r.Body.Close()
	if r.StatusCode != http.StatusOK {
		return statusError(r)
	}
	if resp != nil {
		return json.NewDecoder(r.Body).Decode(resp)
	}
	return nil
}

func PostStream(ctx context.Context, url string, headers map[string]string, body interface{}) (io.ReadCloser, error) {
	req, err := newRequest(ctx, url, headers, body)
	if err != nil {
		return nil, err
	}
	r, err := Client.Do(req)
	if err != nil {
		return nil, err
	}
	if r.StatusCode != http.StatusOK {
		defer r.Body.Close()
		return nil, statusError(r)
	}
	return r.Body, nil
}
