// Package httpx contains the HTTP delivery layer (net/http handlers) for the
// podmeta service. It maps HTTP requests to the application service while
// enforcing validation, body size limits, security headers, and error
// translation. Handlers are split across files (create.go, retrieve.go,
// mutate.go, list.go, episodes.go, health.go, errors.go).
package httpx

import (
	"context"
	"net/http"

	"github.com/podmeta/podmeta/internal/app"
	"github.com/podmeta/podmeta/internal/domain"
)

// ServicePort abstracts the subset of app.Service used by the HTTP layer.
// It is satisfied by *app.Service in production and mocked in tests.
type ServicePort interface {
	CreateRecord(ctx context.Context, in app.CreateInput) (domain.Record, error)
	GetRecord(ctx context.Context, id string) (domain.Record, error)
	UpdateRecord(ctx context.Context, id, token string, in app.UpdateInput) (domain.Record, error)
	DeleteRecord(ctx context.Context, id, token string) error
	ListRecords(ctx context.Context, limit, offset int) (app.Page, error)
	FindByEpisode(ctx context.Context, podcastGUID, rssItemGUID string) ([]domain.Record, error)
}

// AboutInfo is the static service description served at /about.
type AboutInfo struct {
	Service string `json:"service"`
	Version string `json:"version"`
	Backend string `json:"backend"`
}

// Handler wires HTTP endpoints to the application service.
// It is safe for concurrent use. Zero-value is not valid; construct via New.
type Handler struct {
	Service      ServicePort
	MaxBody      int64                       // request body cap for mutating endpoints
	DefaultLimit int                         // listing page size when ?limit= is absent
	Readiness    func(context.Context) error // optional readiness probe
	Metrics      http.Handler                // optional snapshot endpoint mounted at /metricz
	About        AboutInfo
}

// defaultMaxBody caps mutating request bodies when the caller leaves
// Handler.MaxBody unset. Payment metadata payloads are small; 1 MiB is
// already generous.
const defaultMaxBody int64 = 1 << 20

// New returns a configured Handler.
// svc: application service port implementation.
// maxBody: maximum allowed request body size (0 => defaultMaxBody).
// readiness: optional probe function for /readyz (nil => always ready).
func New(svc ServicePort, maxBody int64, readiness func(context.Context) error) *Handler {
	if maxBody <= 0 {
		maxBody = defaultMaxBody
	}
	return &Handler{Service: svc, MaxBody: maxBody, Readiness: readiness}
}

// Router constructs and returns an http.Handler with all routes mounted,
// correlation IDs injected, and security headers middleware applied.
func (h *Handler) Router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/records", h.handleCreateRecord)
	mux.HandleFunc("GET /api/v1/records", h.handleListRecords)
	mux.HandleFunc("GET /api/v1/records/{id}", h.handleGetRecord)
	mux.HandleFunc("PUT /api/v1/records/{id}", h.handleUpdateRecord)
	mux.HandleFunc("DELETE /api/v1/records/{id}", h.handleDeleteRecord)
	mux.HandleFunc("GET /api/v1/episodes/{podcastGuid}/{rssItemGuid}", h.handleFindByEpisode)
	mux.HandleFunc("GET /healthz", h.handleHealth)
	mux.HandleFunc("GET /readyz", h.handleReady)
	mux.HandleFunc("GET /about", h.handleAbout)
	if h.Metrics != nil {
		mux.Handle("GET /metricz", h.Metrics)
	}
	return CorrelationIDMiddleware(h.secureHeaders(mux))
}

// secureHeaders middleware adds standard security & cache control headers.
// The API is JSON-only, so the CSP denies everything.
func (h *Handler) secureHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "no-referrer")
		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'; base-uri 'none'")
		next.ServeHTTP(w, r)
	})
}
