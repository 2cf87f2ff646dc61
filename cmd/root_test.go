package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeBody(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "response.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func newBackend(t *testing.T, requests *[]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*requests = append(*requests, r.URL.RequestURI())
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/prod/users":
			w.Write([]byte(`[{"id":1,"name":"Ana"},{"id":2,"name":"Bo"}]`))
		case "/prod/courses":
			w.Write([]byte(`[]`))
		case "/prod/query":
			w.Write([]byte(`[{"one":1}]`))
		default:
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":"Unknown table"}`))
		}
	}))
	t.Cleanup(srv.Close)
	t.Setenv("APIQUERY_BASE_URL", srv.URL+"/prod")
	t.Setenv("APIQUERY_RAW_PREFIX", srv.URL+"/prod/query?sql=")
	return srv
}

func TestQueryFromFile(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    []string
		wantErr bool
	}{
		{
			name: "table",
			body: `[{"id":1,"name":"Ana"}]`,
			want: []string{"id", "name", "Ana", "1 row(s)"},
		},
		{
			name: "empty",
			body: `[]`,
			want: []string{"No data found."},
		},
		{
			name: "single object",
			body: `{"id":7,"name":"Cy"}`,
			want: []string{"id", "name", "Cy", "1 row(s)"},
		},
		{
			name:    "unexpected shape",
			body:    `42`,
			want:    []string{"Unexpected data format from API"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := runCLI(t, "query", "--no-color", "--from-file", writeBody(t, tt.body))
			if tt.wantErr {
				assert.ErrorIs(t, err, errQueryFailed)
			} else {
				assert.NoError(t, err)
			}
			for _, w := range tt.want {
				assert.Contains(t, out, w)
			}
		})
	}
}

func TestQueryLive(t *testing.T) {
	var requests []string
	newBackend(t, &requests)

	out, err := runCLI(t, "query", "--no-color", "users", "?name=Ana")
	require.NoError(t, err)
	assert.Equal(t, []string{"/prod/users?name=Ana"}, requests)
	assert.Contains(t, out, "Bo")
	assert.Contains(t, out, "2 row(s)")

	out, err = runCLI(t, "query", "courses")
	require.NoError(t, err)
	assert.Contains(t, out, "No data found.")
}

func TestQueryValidationSkipsNetwork(t *testing.T) {
	var requests []string
	newBackend(t, &requests)

	out, err := runCLI(t, "query", "users", "name=Ana")
	assert.ErrorIs(t, err, errQueryFailed)
	assert.Contains(t, out, "Query string must start with '?'")
	assert.Empty(t, requests)
}

func TestQueryHTTPError(t *testing.T) {
	var requests []string
	newBackend(t, &requests)

	out, err := runCLI(t, "query", "--no-color", "course_assignment")
	assert.ErrorIs(t, err, errQueryFailed)
	assert.Contains(t, out, "API request failed: HTTP error! Status: 404")
}

func TestQueryRaw(t *testing.T) {
	var requests []string
	newBackend(t, &requests)

	out, err := runCLI(t, "query", "--raw", "SELECT", "1", "AS", "one")
	require.NoError(t, err)
	assert.Equal(t, []string{"/prod/query?sql=SELECT+1+AS+one"}, requests)
	assert.Contains(t, out, "one")
}

func TestQueryArgs(t *testing.T) {
	_, err := runCLI(t, "query", "students")
	assert.ErrorContains(t, err, `unknown resource "students"`)

	_, err = runCLI(t, "query")
	assert.Error(t, err)

	_, err = runCLI(t, "query", "--raw", "--from-file", "x.json")
	assert.Error(t, err)
}

func TestBadConfig(t *testing.T) {
	t.Setenv("APIQUERY_BASE_URL", "ftp://example.com")
	_, err := runCLI(t, "query", "users")
	assert.ErrorContains(t, err, "base_url must be an http(s) URL")
}
