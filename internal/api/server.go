// Package api exposes the HTTP surface: call listings, analysis triggering
// and analysis retrieval, all scoped to the authenticated user.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/gongintel/gongintel/internal/analysis"
	"github.com/gongintel/gongintel/internal/apperr"
	"github.com/gongintel/gongintel/internal/calls"
	"github.com/gongintel/gongintel/internal/store"
)

// CallsService is the call listing/access surface the server needs.
type CallsService interface {
	ListForUser(ctx context.Context, userID, userEmail, from, to string) ([]calls.Summary, error)
	GetForUser(ctx context.Context, callID, userEmail string) (*store.Call, error)
}

// AnalysisService triggers and reads analysis jobs.
type AnalysisService interface {
	Trigger(ctx context.Context, call *store.Call, userID string) (string, error)
	Status(ctx context.Context, callID, userID string) (analysis.StatusResponse, error)
	Latest(ctx context.Context, callID, userID string) (*store.Analysis, error)
}

type Server struct {
	router   *chi.Mux
	port     int
	apiToken string
	calls    CallsService
	analyses AnalysisService
	logger   *slog.Logger
}

func NewServer(port int, apiToken string, callsSvc CallsService, analyses AnalysisService, logger *slog.Logger) *Server {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)

	s := &Server{
		router:   router,
		port:     port,
		apiToken: apiToken,
		calls:    callsSvc,
		analyses: analyses,
		logger:   logger,
	}

	router.Get("/health", s.health)

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(s.authenticate)
		r.Get("/calls", s.listCalls)
		r.Route("/calls/{callID}", func(r chi.Router) {
			r.Post("/analyze", s.triggerAnalysis)
			r.Get("/analysis", s.getAnalysis)
			r.Get("/analysis/status", s.getAnalysisStatus)
		})
	})

	return s
}

func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	s.logger.Info("API server starting", "addr", addr)
	return http.ListenAndServe(addr, s.router)
}

// identity is the gateway-asserted caller, read from trusted headers.
type identity struct {
	UserID string
	Email  string
}

type ctxKey int

const identityKey ctxKey = 0

func identityFrom(ctx context.Context) identity {
	id, _ := ctx.Value(identityKey).(identity)
	return id
}

// authenticate checks the shared bearer token (when configured) and requires
// the gateway identity headers on every /api/v1 request.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.apiToken != "" {
			auth := r.Header.Get("Authorization")
			if auth != "Bearer "+s.apiToken {
				s.writeError(w, r, apperr.Auth("Invalid or missing API token", 401))
				return
			}
		}

		id := identity{
			UserID: strings.TrimSpace(r.Header.Get("X-User-Id")),
			Email:  strings.ToLower(strings.TrimSpace(r.Header.Get("X-User-Email"))),
		}
		if id.UserID == "" || id.Email == "" {
			s.writeError(w, r, apperr.Auth("Missing user identity headers", 401))
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), identityKey, id)))
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// listCalls returns the caller's calls in a date range, defaulting to the
// last 7 days.
func (s *Server) listCalls(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r.Context())

	now := time.Now().UTC()
	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")
	if to == "" {
		to = now.Format("2006-01-02")
	}
	if from == "" {
		from = now.AddDate(0, 0, -7).Format("2006-01-02")
	}
	for _, d := range []string{from, to} {
		if _, err := time.Parse("2006-01-02", d); err != nil {
			s.writeError(w, r, apperr.Validation(fmt.Sprintf("invalid date %q, expected YYYY-MM-DD", d)))
			return
		}
	}
	if from > to {
		s.writeError(w, r, apperr.Validation("'from' must not be after 'to'"))
		return
	}

	summaries, err := s.calls.ListForUser(r.Context(), id.UserID, id.Email, from, to)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"calls": summaries, "from": from, "to": to})
}

func (s *Server) triggerAnalysis(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r.Context())
	callID := chi.URLParam(r, "callID")

	call, err := s.calls.GetForUser(r.Context(), callID, id.Email)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	analysisID, err := s.analyses.Trigger(r.Context(), call, id.UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, map[string]string{"analysisId": analysisID, "status": store.StatusPending})
}

func (s *Server) getAnalysis(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r.Context())
	callID := chi.URLParam(r, "callID")

	if _, err := s.calls.GetForUser(r.Context(), callID, id.Email); err != nil {
		s.writeError(w, r, err)
		return
	}

	a, err := s.analyses.Latest(r.Context(), callID, id.UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, a)
}

func (s *Server) getAnalysisStatus(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r.Context())
	callID := chi.URLParam(r, "callID")

	if _, err := s.calls.GetForUser(r.Context(), callID, id.Email); err != nil {
		s.writeError(w, r, err)
		return
	}

	status, err := s.analyses.Status(r.Context(), callID, id.UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, status)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperr.StatusOf(err)
	body := errorBody{Error: err.Error()}

	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		body.Code = appErr.Code
	} else {
		body.Error = "Internal server error"
	}

	if status >= 500 {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	}
	s.writeJSON(w, status, body)
}
