// Package api provides the JSON-over-HTTP surface of newsdesk.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/RobinCoderZhao/newsdesk/internal/newsdesk/assistant"
	"github.com/RobinCoderZhao/newsdesk/internal/newsdesk/enricher"
	"github.com/RobinCoderZhao/newsdesk/internal/newsdesk/news"
)

// Newsroom is the headline pipeline behind the news routes.
type Newsroom interface {
	GetHeadlines(ctx context.Context, category news.Category, page, pageSize int) (news.Page, error)
	Search(ctx context.Context, query string, page, pageSize int) (news.Page, error)
	Refresh(ctx context.Context, category news.Category, page, pageSize int, force bool) (news.Page, error)
}

// Enricher extracts the full text of one article.
type Enricher interface {
	Enrich(ctx context.Context, url string) (enricher.Result, error)
}

// Assistant answers questions about recent articles.
type Assistant interface {
	Ask(ctx context.Context, question string, category news.Category) (*assistant.Answer, error)
}

// Options configures a Server.
type Options struct {
	// AdminSecret signs admin tokens. Empty leaves forced refresh open.
	AdminSecret string
	CORSOrigins []string
	Logger      *slog.Logger
}

// Server holds the dependencies for the API.
type Server struct {
	newsroom    Newsroom
	enricher    Enricher
	assistant   Assistant
	adminSecret []byte
	corsOrigins []string
	logger      *slog.Logger
}

// NewServer creates a new API Server. assistant may be nil when no
// text-generation backend is configured.
func NewServer(newsroom Newsroom, enr Enricher, asst Assistant, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Server{
		newsroom:    newsroom,
		enricher:    enr,
		assistant:   asst,
		adminSecret: []byte(opts.AdminSecret),
		corsOrigins: opts.CORSOrigins,
		logger:      opts.Logger.With("component", "api"),
	}
}

// Routes returns the http.Handler for the API with middleware applied.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/news", s.handleNews())
	mux.HandleFunc("POST /api/news/refresh", s.handleRefresh())
	mux.HandleFunc("GET /api/news/enrich", s.handleEnrich())
	mux.HandleFunc("POST /api/news/enrich", s.handleEnrich())
	mux.HandleFunc("GET /api/categories", s.handleCategories())
	mux.HandleFunc("POST /api/chat", s.handleChat())

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.Handle("GET /metrics", promhttp.Handler())

	return s.cors(s.requestID(s.accessLog(mux)))
}

// --- Helpers ---

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondFailure maps pipeline errors: invalid input is the caller's
// fault, anything else is ours.
func (s *Server) respondFailure(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, news.ErrInvalidInput) {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	logFor(r).Error("request failed", "path", r.URL.Path, "error", err)
	respondError(w, http.StatusInternalServerError, "internal error")
}
