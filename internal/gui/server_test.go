package gui

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"apiquery/internal/session"
	"apiquery/internal/transport"

	"github.com/gin-gonic/gin"
	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fastjson"
)

const base = "https://api.example.com/prod"

type fakeBackend struct {
	mu     sync.Mutex
	urls   []string
	bodies map[string]string
	gate   chan struct{} // when set, every Get waits for it to close
}

func (f *fakeBackend) Get(ctx context.Context, u string) (*fastjson.Value, error) {
	f.mu.Lock()
	f.urls = append(f.urls, u)
	f.mu.Unlock()

	if f.gate != nil {
		<-f.gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	body, ok := f.bodies[u]
	if !ok {
		return nil, &transport.Error{URL: u, StatusCode: http.StatusInternalServerError}
	}
	return fastjson.Parse(body)
}

func newTestServer(bodies map[string]string) (*Server, *fakeBackend) {
	gin.SetMode(gin.TestMode)
	backend := &fakeBackend{bodies: bodies}
	ctrl := session.NewController(backend,
		session.WithBaseURL(base),
		session.WithRawPrefix("http://localhost:5000/prod/query?sql="),
	)
	return NewServer(ctrl, logr.Discard()), backend
}

func post(t *testing.T, s *Server, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req, err := http.NewRequest("POST", path, strings.NewReader(form.Encode()))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	s.Handler().ServeHTTP(w, req)
	return w
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req, err := http.NewRequest("GET", path, nil)
	require.NoError(t, err)
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestIndexIdle(t *testing.T) {
	s, _ := newTestServer(nil)

	w := get(t, s, "/")
	assert.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `<option value="users" selected>Users</option>`)
	assert.Contains(t, body, `<option value="course_assignment">Course Assignment</option>`)
	assert.Contains(t, body, `placeholder="?filter=value"`)
	assert.NotContains(t, body, "<table>")
}

func TestQueryRendersTable(t *testing.T) {
	s, backend := newTestServer(map[string]string{
		base + "/users": `[{"id":1,"name":"Ana","tags":["a"]},{"id":2,"name":"<b>Bo</b>","tags":[]}]`,
	})

	w := post(t, s, "/query", url.Values{"resource": {"users"}, "suffix": {"  "}})
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
	assert.Equal(t, []string{base + "/users"}, backend.urls)

	body := get(t, s, "/").Body.String()
	assert.Contains(t, body, "<th>id</th><th>name</th><th>tags</th>")
	assert.Contains(t, body, `<tr class="even"><td>1</td><td>Ana</td><td>[&#34;a&#34;]</td></tr>`)
	assert.Contains(t, body, `<tr class="odd"><td>2</td><td>&lt;b&gt;Bo&lt;/b&gt;</td><td>[]</td></tr>`)
}

func TestQueryValidationError(t *testing.T) {
	s, backend := newTestServer(nil)

	w := post(t, s, "/query", url.Values{"resource": {"courses"}, "suffix": {"title=Math"}})
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Empty(t, backend.urls)

	body := get(t, s, "/").Body.String()
	assert.Contains(t, body, `<div class="error">Query string must start with &#39;?&#39;</div>`)
	assert.Contains(t, body, `<option value="courses" selected>Courses</option>`)
	assert.Contains(t, body, `value="title=Math"`)
}

func TestQueryEmptyAndError(t *testing.T) {
	s, _ := newTestServer(map[string]string{
		base + "/course_assignment?student=5": `[]`,
	})

	post(t, s, "/query", url.Values{"resource": {"course_assignment"}, "suffix": {"?student=5"}})
	assert.Contains(t, get(t, s, "/").Body.String(), `<div class="empty">No data found.</div>`)

	post(t, s, "/query", url.Values{"resource": {"users"}})
	body := get(t, s, "/").Body.String()
	assert.Contains(t, body, "HTTP error! Status: 500")
	assert.NotContains(t, body, "<table>")
}

func TestSubmitIgnoredWhileLoading(t *testing.T) {
	s, backend := newTestServer(map[string]string{
		base + "/users": `[{"id":1}]`,
	})
	backend.gate = make(chan struct{})

	done := make(chan struct{})
	go func() {
		defer close(done)
		form := url.Values{"resource": {"users"}}
		req := httptest.NewRequest("POST", "/query", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		s.Handler().ServeHTTP(httptest.NewRecorder(), req)
	}()
	require.Eventually(t, func() bool {
		return s.ctrl.State().Phase == session.Loading
	}, 2*time.Second, 5*time.Millisecond)

	w := post(t, s, "/query", url.Values{"resource": {"courses"}, "suffix": {"?title=Math"}})
	assert.Equal(t, http.StatusSeeOther, w.Code)
	w = post(t, s, "/raw", url.Values{"query": {"SELECT 1"}})
	assert.Equal(t, http.StatusSeeOther, w.Code)

	close(backend.gate)
	<-done

	backend.mu.Lock()
	assert.Equal(t, []string{base + "/users"}, backend.urls)
	backend.mu.Unlock()
	assert.Equal(t, session.Success, s.ctrl.State().Phase)

	body := get(t, s, "/").Body.String()
	assert.Contains(t, body, `<option value="users" selected>Users</option>`)
	assert.NotContains(t, body, `value="?title=Math"`)
}

func TestQueryUnknownResource(t *testing.T) {
	s, backend := newTestServer(nil)

	w := post(t, s, "/query", url.Values{"resource": {"students"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, backend.urls)
}

func TestRawQuery(t *testing.T) {
	s, backend := newTestServer(map[string]string{
		"http://localhost:5000/prod/query?sql=SELECT+1+AS+one": `[{"one":1}]`,
	})

	w := post(t, s, "/raw", url.Values{"query": {"SELECT 1 AS one"}})
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Len(t, backend.urls, 1)

	state := get(t, s, "/state")
	assert.Equal(t, http.StatusOK, state.Code)
	assert.JSONEq(t, `{"phase":"success","seq":1,"url":"http://localhost:5000/prod/query?sql=SELECT+1+AS+one","table":{"columns":["one"],"rows":[["1"]]}}`, state.Body.String())
}
