// Package transport performs the single GET a query needs and hands back the
// parsed JSON body.
package transport

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"apiquery/internal/logger"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/valyala/fastjson"
)

// maxBodyBytes caps how much of a response is read.
const maxBodyBytes = 32 << 20

// Error is a failed request: either a non-2xx status or a network-level
// failure (StatusCode 0).
type Error struct {
	URL        string
	StatusCode int
	Msg        string
	Err        error
}

func (e *Error) Error() string {
	switch {
	case e.StatusCode != 0 && e.Msg != "":
		return fmt.Sprintf("HTTP error! Status: %d: %s", e.StatusCode, e.Msg)
	case e.StatusCode != 0:
		return fmt.Sprintf("HTTP error! Status: %d", e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	default:
		return e.Msg
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Getter is the only capability the session needs from the network.
type Getter interface {
	Get(ctx context.Context, url string) (*fastjson.Value, error)
}

// GetterFunc adapts a function to Getter.
type GetterFunc func(ctx context.Context, url string) (*fastjson.Value, error)

func (f GetterFunc) Get(ctx context.Context, url string) (*fastjson.Value, error) {
	return f(ctx, url)
}

// HTTP is a Getter backed by a pooled net/http client.
type HTTP struct {
	client  *http.Client
	maxBody int64 // 0 means maxBodyBytes
}

// NewHTTP returns an HTTP getter. A zero timeout leaves requests unbounded.
func NewHTTP(timeout time.Duration) *HTTP {
	client := cleanhttp.DefaultPooledClient()
	client.Timeout = timeout
	return &HTTP{client: client}
}

// NewHTTPWithClient is used by tests to inject httptest clients.
func NewHTTPWithClient(client *http.Client) *HTTP {
	return &HTTP{client: client}
}

// Get issues exactly one request; there are no retries.
func (h *HTTP) Get(ctx context.Context, url string) (*fastjson.Value, error) {
	log := logger.FromContext(ctx).WithValues("url", url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &Error{URL: url, Msg: "invalid request", Err: err}
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := h.client.Do(req)
	if err != nil {
		log.V(1).Info("request failed", "error", err.Error())
		return nil, &Error{URL: url, Msg: "request failed", Err: err}
	}
	defer resp.Body.Close()

	limit := h.maxBody
	if limit <= 0 {
		limit = maxBodyBytes
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	log.V(1).Info("response", "status", resp.StatusCode, "bytes", len(body), "duration", time.Since(start).String())
	if err != nil {
		return nil, &Error{URL: url, Msg: "reading response body failed", Err: err}
	}
	if int64(len(body)) > limit {
		return nil, &Error{URL: url, Msg: "response too large"}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Error{URL: url, StatusCode: resp.StatusCode, Msg: errorMessage(body)}
	}

	var p fastjson.Parser
	v, err := p.ParseBytes(body)
	if err != nil {
		return nil, &Error{URL: url, Msg: "malformed response body", Err: err}
	}
	return v, nil
}

// errorMessage extracts {"error": "..."} from an error response, if present.
func errorMessage(body []byte) string {
	v, err := fastjson.ParseBytes(body)
	if err != nil {
		return ""
	}
	return string(v.GetStringBytes("error"))
}
