// Package server renders the admin screens and translates browser actions
// into grid state transitions. One process hosts every screen; all state
// lives in the grids, so handlers stay thin.
package server

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"finadmin/internal/grid"
	"finadmin/internal/log"
	appweb "finadmin/web"
)

type Server struct {
	http.Server
	templates *template.Template
	grids     []*grid.Grid
	byRoute   map[string]*grid.Grid
	logger    *log.Logger
}

// NewServer wires routes and templates for the given screens. Grids are
// expected to be loaded already; the refresh action re-fetches on demand.
func NewServer(addr string, grids []*grid.Grid, logger *log.Logger) (*Server, error) {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		grids:   grids,
		byRoute: make(map[string]*grid.Grid, len(grids)),
		logger:  logger.WithComponent(log.ComponentServer),
	}
	for _, g := range grids {
		s.byRoute[g.Config().Route] = g
	}

	t, err := template.New("").Funcs(template.FuncMap{
		"seq": func(a, b int) []int {
			if b < a {
				return nil
			}
			out := make([]int, 0, b-a+1)
			for i := a; i <= b; i++ {
				out = append(out, i)
			}
			return out
		},
		"add": func(a, b int) int { return a + b },
	}).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	s.templates = t

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("/static/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "public, max-age=3600")
			static.ServeHTTP(w, r)
		}))
	} else {
		s.logger.Warn("mount embedded static FS failed", log.FieldError, err)
	}

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", handleReady)
	mux.HandleFunc("/{$}", s.withMiddleware(s.handleHome))

	for _, g := range grids {
		s.registerScreen(mux, g)
	}

	return s, nil
}

func (s *Server) registerScreen(mux *http.ServeMux, g *grid.Grid) {
	route := g.Config().Route
	h := func(fn func(*grid.Grid, http.ResponseWriter, *http.Request)) http.HandlerFunc {
		return s.withMiddleware(func(w http.ResponseWriter, r *http.Request) {
			fn(g, w, r)
		})
	}

	mux.HandleFunc("GET "+route, h(s.handleGrid))
	mux.HandleFunc("POST "+route+"/search", h(s.handleSearch))
	mux.HandleFunc("POST "+route+"/criteria", h(s.handleCriteria))
	mux.HandleFunc("POST "+route+"/clear", h(s.handleClearFilters))
	mux.HandleFunc("POST "+route+"/sort", h(s.handleSort))
	mux.HandleFunc("POST "+route+"/page", h(s.handlePage))
	mux.HandleFunc("POST "+route+"/page-size", h(s.handlePageSize))
	mux.HandleFunc("POST "+route+"/refresh", h(s.handleRefresh))

	mux.HandleFunc("POST "+route+"/add", h(s.handleOpenAdd))
	mux.HandleFunc("POST "+route+"/edit", h(s.handleOpenEdit))
	mux.HandleFunc("POST "+route+"/field", h(s.handleSetField))
	mux.HandleFunc("POST "+route+"/save", h(s.handleSave))
	mux.HandleFunc("POST "+route+"/cancel", h(s.handleCancelForm))
	mux.HandleFunc("POST "+route+"/delete", h(s.handleDelete))

	mux.HandleFunc("POST "+route+"/columns/toggle", h(s.handleColumnsToggle))
	mux.HandleFunc("POST "+route+"/columns/all", h(s.handleColumnsAll))
	mux.HandleFunc("POST "+route+"/columns/none", h(s.handleColumnsNone))
	mux.HandleFunc("POST "+route+"/columns/apply", h(s.handleColumnsApply))
	mux.HandleFunc("POST "+route+"/columns/cancel", h(s.handleColumnsCancel))

	mux.HandleFunc("GET "+route+"/export", h(s.handleExport))
	mux.HandleFunc("POST "+route+"/import", h(s.handleImport))
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	if len(s.grids) == 0 {
		http.Error(w, "no screens configured", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, s.grids[0].Config().Route, http.StatusSeeOther)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// withMiddleware adds security headers, a request id and request logging.
func (s *Server) withMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := generateRequestID()

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self' 'unsafe-inline'; style-src 'self' 'unsafe-inline'; img-src 'self' data:")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		s.logger.InfoContext(r.Context(), "request",
			log.FieldRequestID, requestID,
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldStatusCode, rw.statusCode,
			log.FieldDuration, time.Since(start).Milliseconds(),
			log.FieldClientIP, clientIP(r))
	}
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func clientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		return ip
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	return r.RemoteAddr
}

func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}
