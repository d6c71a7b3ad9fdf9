package httputils

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))
		var in map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		json.NewEncoder(w).Encode(map[string]string{"echo": in["q"]})
	}))
	defer srv.Close()

	var out map[string]string
	err := PostJSON(context.Background(), srv.URL, map[string]string{"Authorization": "Bearer k"}, map[string]string{"q": "hi"}, &out)
	require.NoError(t, err)
	assert.Equal(t, "hi", out["echo"])
}

func TestPostJSON_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	err := PostJSON(context.Background(), srv.URL, nil, struct{}{}, nil)
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusTooManyRequests, se.StatusCode)
	assert.Contains(t, se.Body, "quota")
}

func TestPostStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("line1\nline2\n"))
	}))
	defer srv.Close()

	body, err := PostStream(context.Background(), srv.URL, nil, struct{}{})
	require.NoError(t, err)
	defer body.Close()
	b, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "line1\nline2\n", string(b))
}
