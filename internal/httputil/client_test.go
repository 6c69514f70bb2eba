package httputil

import (
	"context"
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ Doer = (*http.Client)(nil)

func get(t *testing.T, c Doer, url string) *http.Response {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, nil)
	require.NoError(t, err)
	resp, err := c.Do(req)
	require.NoError(t, err)
	return resp
}

func TestMockClient(t *testing.T) {
	c := NewMockClient(map[string]string{"http://x/a": "hello"})

	resp := get(t, c, "http://x/a")
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "hello", string(body))
	assert.EqualValues(t, 5, resp.ContentLength)

	resp = get(t, c, "http://x/missing")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	c.Status["http://x/a"] = http.StatusInternalServerError
	resp = get(t, c, "http://x/a")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	assert.Equal(t, []string{"http://x/a", "http://x/missing", "http://x/a"}, c.Requests())
}

func TestMockClientError(t *testing.T) {
	c := NewMockClient(nil)
	c.Err = errors.New("boom")
	req, err := http.NewRequest(http.MethodGet, "http://x/a", nil)
	require.NoError(t, err)
	_, err = c.Do(req)
	assert.EqualError(t, err, "boom")
}
