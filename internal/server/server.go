// Package server exposes a live annual session and the multi-plant page over
// HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/lamim/corrispettivi-report/internal/annotator"
	"github.com/lamim/corrispettivi-report/internal/dashboard"
	"github.com/lamim/corrispettivi-report/internal/multiplant"
	"github.com/lamim/corrispettivi-report/internal/page"
	"github.com/lamim/corrispettivi-report/internal/totals"
)

// MultiPageFunc returns a fresh multi-plant page for year.
type MultiPageFunc func(ctx context.Context, year int) (*page.Document, error)

// Options configures a Server.
type Options struct {
	// Annual is the session served at "/". It may be nil.
	Annual *dashboard.AnnualSession
	// MultiPage builds the page served at "/totale". It may be nil.
	MultiPage MultiPageFunc
	Deps      dashboard.Deps
	Multi     dashboard.MultiOptions
	Logger    *zap.Logger
}

// Server routes requests to the sessions.
type Server struct {
	annual    *dashboard.AnnualSession
	multiPage MultiPageFunc
	deps      dashboard.Deps
	multi     dashboard.MultiOptions
	logger    *zap.Logger
}

// New creates a server.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		annual:    opts.Annual,
		multiPage: opts.MultiPage,
		deps:      opts.Deps,
		multi:     opts.Multi,
		logger:    logger,
	}
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)
	s.RegisterRoutes(r)
	return r
}

// RegisterRoutes mounts the routes on r.
func (s *Server) RegisterRoutes(r chi.Router) {
	r.Get("/", s.handleAnnual)
	r.Get("/totale", s.handleMulti)
	r.Get("/totali.json", s.handleTotals)
	r.Post("/commenti/{anno}/{mese}", s.handleComment)
	r.Post("/celle/{anno}/{classe}/{mese}", s.handleCell)
	r.Get("/healthz", handleHealth)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)))
	})
}

func (s *Server) handleAnnual(w http.ResponseWriter, r *http.Request) {
	if s.annual == nil {
		http.Error(w, "No annual page configured", http.StatusNotFound)
		return
	}
	html, err := s.annual.HTML()
	if err != nil {
		http.Error(w, "Error rendering page: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeHTML(w, html)
}

func (s *Server) handleMulti(w http.ResponseWriter, r *http.Request) {
	if s.multiPage == nil {
		http.Error(w, "No multi-plant page configured", http.StatusNotFound)
		return
	}
	opts := s.multi
	if v := r.URL.Query().Get("anno"); v != "" {
		year, err := strconv.Atoi(v)
		if err != nil || year <= 0 {
			http.Error(w, "Invalid year", http.StatusBadRequest)
			return
		}
		opts.Year = year
	}
	if v := r.URL.Query().Get("pagina"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "Invalid page", http.StatusBadRequest)
			return
		}
		opts.Page = n
	}

	doc, err := s.multiPage(r.Context(), opts.Year)
	if err != nil {
		http.Error(w, "Error loading page: "+err.Error(), http.StatusBadGateway)
		return
	}
	session, err := dashboard.RunMulti(r.Context(), doc, s.deps, opts)
	if err != nil {
		var cfgErr *multiplant.ConfigError
		if errors.As(err, &cfgErr) {
			http.Error(w, cfgErr.Message, http.StatusUnprocessableEntity)
			return
		}
		http.Error(w, multiplant.LoadErrorMessage, http.StatusBadGateway)
		return
	}
	html, err := session.Doc.HTML()
	if err != nil {
		http.Error(w, "Error rendering page: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeHTML(w, html)
}

type totalsResponse struct {
	Totals  []totals.YearlyTotal `json:"totals"`
	Summary totals.Summary       `json:"summary"`
	Failed  []int                `json:"failed_years"`
}

func (s *Server) handleTotals(w http.ResponseWriter, r *http.Request) {
	if s.annual == nil {
		http.Error(w, "No annual page configured", http.StatusNotFound)
		return
	}
	years := s.annual.Totals()
	if years == nil {
		years = []totals.YearlyTotal{}
	}
	writeJSON(w, http.StatusOK, totalsResponse{
		Totals:  years,
		Summary: totals.AllYears(years),
		Failed:  s.annual.FailedYears(),
	})
}

func (s *Server) handleComment(w http.ResponseWriter, r *http.Request) {
	if s.annual == nil {
		http.Error(w, "No annual page configured", http.StatusNotFound)
		return
	}
	year, month, ok := yearMonth(w, r)
	if !ok {
		return
	}

	err := s.annual.Comment(r.Context(), year, month, r.FormValue("testo"))
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	case errors.Is(err, dashboard.ErrNoControl):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		s.logger.Warn("comment not saved", zap.Int("anno", year), zap.Int("mese", month), zap.Error(err))
		writeJSON(w, http.StatusBadGateway, map[string]interface{}{
			"success": false,
			"error":   annotator.SaveErrorMessage,
		})
	}
}

func (s *Server) handleCell(w http.ResponseWriter, r *http.Request) {
	if s.annual == nil {
		http.Error(w, "No annual page configured", http.StatusNotFound)
		return
	}
	year, month, ok := yearMonth(w, r)
	if !ok {
		return
	}
	class := chi.URLParam(r, "classe")

	err := s.annual.EditCell(year, class, month, r.FormValue("valore"))
	switch {
	case errors.Is(err, dashboard.ErrUnknownTable):
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	case errors.Is(err, dashboard.ErrUnknownCell):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case err != nil:
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	t, err := s.annual.TableTotals(year)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

func yearMonth(w http.ResponseWriter, r *http.Request) (year, month int, ok bool) {
	year, err := strconv.Atoi(chi.URLParam(r, "anno"))
	if err != nil || year <= 0 {
		http.Error(w, "Invalid year", http.StatusBadRequest)
		return 0, 0, false
	}
	month, err = strconv.Atoi(chi.URLParam(r, "mese"))
	if err != nil || month < 1 || month > annotator.Months {
		http.Error(w, "Invalid month", http.StatusBadRequest)
		return 0, 0, false
	}
	return year, month, true
}

func writeHTML(w http.ResponseWriter, html string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(html))
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
