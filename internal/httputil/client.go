// Package httputil provides the HTTP client seam used for downloads.
package httputil

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
)

// Doer sends HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// MockClient serves canned bodies keyed by URL and records every request.
type MockClient struct {
	mu       sync.Mutex
	Bodies   map[string]string
	Status   map[string]int
	Err      error
	requests []string
}

// NewMockClient returns a MockClient serving bodies.
func NewMockClient(bodies map[string]string) *MockClient {
	return &MockClient{Bodies: bodies, Status: map[string]int{}}
}

// Do implements Doer. Unknown URLs get 404.
func (c *MockClient) Do(req *http.Request) (*http.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	url := req.URL.String()
	c.requests = append(c.requests, url)
	if c.Err != nil {
		return nil, c.Err
	}
	if err := req.Context().Err(); err != nil {
		return nil, err
	}
	body, ok := c.Bodies[url]
	code := http.StatusOK
	if !ok {
		code = http.StatusNotFound
	}
	if s, ok := c.Status[url]; ok {
		code = s
	}
	return &http.Response{
		StatusCode:    code,
		Status:        fmt.Sprintf("%d %s", code, http.StatusText(code)),
		Header:        http.Header{},
		ContentLength: int64(len(body)),
		Body:          io.NopCloser(strings.NewReader(body)),
		Request:       req,
	}, nil
}

// Requests returns the URLs requested so far.
func (c *MockClient) Requests() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.requests...)
}
