// Package gui serves the browser front end of the query client.
package gui

import (
	"context"
	"embed"
	"html/template"
	"net/http"
	"strings"
	"sync"

	"apiquery/internal/handler"
	"apiquery/internal/model"
	"apiquery/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/go-logr/logr"
)

//go:embed templates/*.tmpl
var templates embed.FS

// Server renders the controller's state and forwards form submissions to it.
type Server struct {
	ctrl   *session.Controller
	engine *gin.Engine

	mu       sync.Mutex
	selected model.Resource
	suffix   string
	raw      string
}

type resourceOption struct {
	Value    string
	Label    string
	Selected bool
}

type pageData struct {
	Resources    []resourceOption
	Suffix       string
	Raw          string
	Loading      bool
	Message      string
	MessageClass string
	Table        *model.Table
}

func NewServer(ctrl *session.Controller, log logr.Logger) *Server {
	s := &Server{ctrl: ctrl, selected: model.ResourceUsers}

	tmpl := template.Must(template.New("").Funcs(template.FuncMap{
		"even": func(i int) bool { return i%2 == 0 },
	}).ParseFS(templates, "templates/*.tmpl"))

	r := gin.New()
	r.Use(gin.Recovery(), handler.RequestLogger(log))
	r.SetHTMLTemplate(tmpl)

	r.GET("/", s.index)
	r.GET("/state", s.state)
	r.POST("/query", s.query)
	r.POST("/raw", s.rawQuery)

	s.engine = r
	return s
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) index(c *gin.Context) {
	st := s.ctrl.State()

	s.mu.Lock()
	data := pageData{
		Suffix: s.suffix,
		Raw:    s.raw,
	}
	for _, r := range model.ResourceOrder {
		data.Resources = append(data.Resources, resourceOption{
			Value:    string(r),
			Label:    r.Label(),
			Selected: r == s.selected,
		})
	}
	s.mu.Unlock()

	switch st.Phase {
	case session.Loading:
		data.Loading = true
	case session.Success:
		data.Table = st.Table
	case session.Empty:
		data.Message = st.Message()
		data.MessageClass = "empty"
	case session.Error:
		data.Message = st.Message()
		data.MessageClass = "error"
	}

	c.HTML(http.StatusOK, "index.tmpl", data)
}

func (s *Server) state(c *gin.Context) {
	c.JSON(http.StatusOK, s.ctrl.State())
}

func (s *Server) query(c *gin.Context) {
	resource := model.Resource(c.PostForm("resource"))
	if !resource.Known() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown resource"})
		return
	}
	suffix := c.PostForm("suffix")

	if s.busy() {
		c.Redirect(http.StatusSeeOther, "/")
		return
	}

	s.mu.Lock()
	s.selected = resource
	s.suffix = suffix
	s.mu.Unlock()

	// a closed browser tab must not cancel the request other viewers wait on
	ctx := context.WithoutCancel(c.Request.Context())
	s.ctrl.Submit(ctx, resource, suffix)
	c.Redirect(http.StatusSeeOther, "/")
}

func (s *Server) rawQuery(c *gin.Context) {
	query := strings.TrimSpace(c.PostForm("query"))

	if s.busy() {
		c.Redirect(http.StatusSeeOther, "/")
		return
	}

	s.mu.Lock()
	s.raw = query
	s.mu.Unlock()

	s.ctrl.SubmitRaw(context.WithoutCancel(c.Request.Context()), query)
	c.Redirect(http.StatusSeeOther, "/")
}

// busy reports whether a request is in flight; submissions are ignored until it settles.
func (s *Server) busy() bool {
	return s.ctrl.State().Phase == session.Loading
}
