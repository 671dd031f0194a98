package dashboard

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	q "github.com/invertedv/qdash"
	"go.uber.org/zap"
)

//go:embed templates/page.html
var templates embed.FS

const (
	requestIDHeader = "X-Request-Id"
	shutdownTimeout = 5 * time.Second
)

// Server is the HTTP surface of a Dashboard.
type Server struct {
	dash   *Dashboard
	logger *zap.Logger
	page   *template.Template
	mux    *http.ServeMux
}

func NewServer(d *Dashboard, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	funcs := template.FuncMap{
		"checked": func(b bool) template.HTMLAttr {
			if b {
				return "checked"
			}

			return ""
		},
		"selected": func(b bool) template.HTMLAttr {
			if b {
				return "selected"
			}

			return ""
		},
		"has":   has[string],
		"float": func(x float64) string { return strconv.FormatFloat(x, 'f', -1, 64) },
	}

	page, e := template.New("page.html").Funcs(funcs).ParseFS(templates, "templates/page.html")
	if e != nil {
		return nil, e
	}

	s := &Server{dash: d, logger: logger, page: page, mux: http.NewServeMux()}
	s.mux.HandleFunc("GET /{$}", s.handlePage)
	s.mux.HandleFunc("GET /api/dirs", s.handleDirs)
	s.mux.HandleFunc("GET /api/page", s.handlePageJSON)
	s.mux.HandleFunc("GET /export/timeseries.png", s.handlePNG)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)

	return s, nil
}

// Handler is the routes wrapped in request logging.
func (s *Server) Handler() http.Handler {
	return s.logRequests(s.mux)
}

// ListenAndServe serves on addr until ctx ends, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("dashboard listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		return srv.Shutdown(shutdownCtx)
	case e := <-errCh:
		if errors.Is(e, http.ErrServerClosed) {
			return nil
		}

		return e
	}
}

// *********** handlers ***********

type panel struct {
	ID     string          `json:"id"`
	Title  string          `json:"title"`
	Figure json.RawMessage `json:"figure"`
}

type pageData struct {
	Selection    Selection `json:"selection"`
	Layout       Layout    `json:"layout"`
	Dirs         []string  `json:"dirs"`
	Labels       []string  `json:"labels"`
	Levels       []string  `json:"-"`
	LowerChoices []float64 `json:"-"`
	UpperChoices []float64 `json:"-"`
	Map          []panel   `json:"map"`
	Chart        []panel   `json:"chart"`
	Error        string    `json:"error,omitempty"`
	Background   string    `json:"-"`
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	data := &pageData{Labels: s.dash.Labels(), Levels: LevelChoices, LowerChoices: LowerChoices, UpperChoices: UpperChoices,
		Background: s.dash.Style().Background}

	status := http.StatusOK
	page, e := s.render(r)
	switch {
	case e != nil:
		status = statusOf(e)
		data.Error = e.Error()
		data.Selection, _ = ParseSelection(r.URL.Query(), data.Labels)
		data.Dirs, _ = s.dash.Dirs(r.Context())
	default:
		if e = fillPage(data, page); e != nil {
			s.fail(w, r, e)
			return
		}
	}

	var buf bytes.Buffer
	if e = s.page.Execute(&buf, data); e != nil {
		s.fail(w, r, e)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (s *Server) handlePageJSON(w http.ResponseWriter, r *http.Request) {
	page, e := s.render(r)
	if e != nil {
		s.fail(w, r, e)
		return
	}

	data := &pageData{}
	if e = fillPage(data, page); e != nil {
		s.fail(w, r, e)
		return
	}

	writeJSON(w, http.StatusOK, data)
}

func (s *Server) handleDirs(w http.ResponseWriter, r *http.Request) {
	dirs, e := s.dash.Dirs(r.Context())
	if e != nil {
		s.fail(w, r, e)
		return
	}

	writeJSON(w, http.StatusOK, map[string][]string{"dirs": dirs})
}

func (s *Server) handlePNG(w http.ResponseWriter, r *http.Request) {
	sel, e := ParseSelection(r.URL.Query(), s.dash.Labels())
	if e != nil {
		s.fail(w, r, e)
		return
	}

	metric := r.URL.Query().Get("metric")
	var buf bytes.Buffer
	if e = s.dash.TimeSeriesPNG(r.Context(), sel, metric, &buf); e != nil {
		s.fail(w, r, e)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", metric+".png"))
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) render(r *http.Request) (*Page, error) {
	sel, e := ParseSelection(r.URL.Query(), s.dash.Labels())
	if e != nil {
		return nil, e
	}

	return s.dash.Render(r.Context(), sel)
}

func fillPage(data *pageData, page *Page) error {
	data.Selection, data.Layout = page.Selection, page.Layout
	data.Dirs, data.Labels = page.Dirs, page.Labels

	var e error
	if data.Map, e = panels("map", page.Map); e != nil {
		return e
	}

	data.Chart, e = panels("chart", page.Chart)

	return e
}

func panels(prefix string, ts *q.TabSet) ([]panel, error) {
	if ts == nil {
		return nil, nil
	}

	var out []panel
	for ind, t := range ts.Tabs {
		fig, e := t.Plot.JSON()
		if e != nil {
			return nil, e
		}

		out = append(out, panel{ID: prefix + strconv.Itoa(ind), Title: t.Title, Figure: fig})
	}

	return out, nil
}

// statusOf maps the error taxonomy to HTTP status codes.
func statusOf(e error) int {
	switch {
	case errors.Is(e, q.ErrMissingData):
		return http.StatusNotFound
	case errors.Is(e, q.ErrMalformedInput):
		return http.StatusBadRequest
	}

	return http.StatusInternalServerError
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, e error) {
	status := statusOf(e)
	s.logger.Warn("request failed", zap.String("path", r.URL.Path), zap.String("id", w.Header().Get(requestIDHeader)),
		zap.Int("status", status), zap.Error(e))
	writeJSON(w, status, map[string]string{"error": e.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// *********** middleware ***********

type statusWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (sw *statusWriter) WriteHeader(status int) {
	sw.status = status
	sw.ResponseWriter.WriteHeader(status)
}

func (sw *statusWriter) Write(b []byte) (int, error) {
	if sw.status == 0 {
		sw.status = http.StatusOK
	}

	n, e := sw.ResponseWriter.Write(b)
	sw.bytes += n

	return n, e
}

// logRequests tags each request with an id and logs it once served.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}

		w.Header().Set(requestIDHeader, id)
		sw := &statusWriter{ResponseWriter: w}
		start := time.Now()
		next.ServeHTTP(sw, r)

		s.logger.Info("request",
			zap.String("id", id),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", sw.status),
			zap.Int("bytes", sw.bytes),
			zap.Duration("elapsed", time.Since(start)))
	})
}
