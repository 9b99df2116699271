// Package server exposes the apartment search as a small password-gated
// HTTP dashboard API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"apartment-finder/config"
	"apartment-finder/models"
	"apartment-finder/services"
	"apartment-finder/storage"
	"apartment-finder/utils"
)

// Searcher runs one apartment search.
type Searcher interface {
	Search(ctx context.Context, sc models.SearchConfig) (*models.SearchResult, error)
}

type server struct {
	cfg     *config.Config
	finder  Searcher
	reports *services.ReportService
	auth    *Auth
	logger  *utils.Logger
}

type errorResponse struct {
	Error string `json:"error"`
}

type searchResponse struct {
	Search *models.SearchResult `json:"search"`
	Report *models.SearchReport `json:"report"`
}

// New builds the dashboard router.
func New(cfg *config.Config, finder Searcher, reports *services.ReportService, gatherer prometheus.Gatherer, logger *utils.Logger) (http.Handler, error) {
	auth, err := NewAuth(cfg.AppPassword, cfg.SessionSigningKey)
	if err != nil {
		return nil, err
	}

	s := &server{cfg: cfg, finder: finder, reports: reports, auth: auth, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/health", s.handleHealth)
	r.Post("/api/login", s.handleLogin)
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware)
		r.Get("/api/search", s.handleSearch)
		r.Get("/api/search.csv", s.handleSearchCSV)
	})

	return r, nil
}

func (s *server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("[server] %s %s → %d in %v (%s)",
			r.Method, r.URL.Path, ww.Status(), time.Since(start), middleware.GetReqID(r.Context()))
	})
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request payload"})
		return
	}

	if !s.auth.checkPassword(body.Password) {
		s.logger.Warn("[server] Rejected login from %s", r.RemoteAddr)
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid password"})
		return
	}

	token, exp, err := s.auth.issue()
	if err != nil {
		s.logger.Error("[server] Signing session token: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "could not create session"})
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  exp,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (s *server) handleSearch(w http.ResponseWriter, r *http.Request) {
	res, ok := s.runSearch(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, searchResponse{Search: res, Report: s.reports.Generate(res)})
}

func (s *server) handleSearchCSV(w http.ResponseWriter, r *http.Request) {
	res, ok := s.runSearch(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="apartments.csv"`)
	cw, err := storage.NewCSVWriter(w)
	if err == nil {
		err = cw.Write(res.Listings)
	}
	if err != nil {
		s.logger.Error("[server] Writing CSV for search %s: %v", res.ID, err)
	}
}

// runSearch parses the request and runs the search detached from the
// request's cancellation, so a started search always completes.
func (s *server) runSearch(w http.ResponseWriter, r *http.Request) (*models.SearchResult, bool) {
	sc, err := s.searchConfig(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return nil, false
	}

	res, err := s.finder.Search(context.WithoutCancel(r.Context()), sc)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return nil, false
	}
	return res, true
}

// searchConfig applies query overrides on top of the configured defaults.
func (s *server) searchConfig(r *http.Request) (models.SearchConfig, error) {
	sc := s.cfg.DefaultSearch()
	q := r.URL.Query()

	if raw := strings.TrimSpace(q.Get("radius")); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || !(v > 0) {
			return sc, fmt.Errorf("radius must be a positive number, got %q", raw)
		}
		sc.RadiusMi = v
	}
	if raw := strings.TrimSpace(q.Get("min_rent")); raw != "" {
		v, err := parsePositiveInt(raw)
		if err != nil {
			return sc, fmt.Errorf("min_rent: %w", err)
		}
		sc.MinRent = v
	}
	if raw := strings.TrimSpace(q.Get("max_rent")); raw != "" {
		v, err := parsePositiveInt(raw)
		if err != nil {
			return sc, fmt.Errorf("max_rent: %w", err)
		}
		sc.MaxRent = v
	}
	if q.Has("types") {
		types := parseCSV(q.Get("types"))
		if len(types) == 0 {
			return sc, errors.New("types must name at least one place category")
		}
		sc.PlaceTypes = types
	}
	return sc, nil
}

func parsePositiveInt(raw string) (int, error) {
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("must be a positive integer, got %q", raw)
	}
	return v, nil
}

func parseCSV(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
