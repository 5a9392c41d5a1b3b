package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/podmeta/podmeta/internal/app"
	"github.com/podmeta/podmeta/internal/domain"
)

// writeError writes a JSON error body with given status code.
func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(struct {
		Error string `json:"error"`
	}{Error: msg})
	if cid, ok := GetCorrelationID(ctx); ok {
		slog.Debug("wrote error response", "cid", cid, "status", code, "msg", msg)
	}
}

// mapServiceError maps domain/store/service errors to HTTP responses.
func (h *Handler) mapServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	cid, _ := GetCorrelationID(ctx)
	switch {
	case errors.Is(err, domain.ErrInvalidID):
		slog.Warn("service error", "cid", cid, "code", "invalid_id")
		h.writeError(ctx, w, http.StatusBadRequest, "invalid id")
	case errors.Is(err, domain.ErrInvalidType):
		slog.Warn("service error", "cid", cid, "code", "invalid_type")
		h.writeError(ctx, w, http.StatusBadRequest, "invalid payment type")
	case errors.Is(err, domain.ErrInvalidMetadata):
		slog.Warn("service error", "cid", cid, "code", "invalid_metadata")
		h.writeError(ctx, w, http.StatusBadRequest, "metadata must be a JSON object")
	case errors.Is(err, app.ErrInvalidPagination):
		slog.Warn("service error", "cid", cid, "code", "invalid_pagination")
		h.writeError(ctx, w, http.StatusBadRequest, "invalid pagination")
	case errors.Is(err, domain.ErrInvalidToken):
		// Malformed and mismatched tokens are reported identically so the
		// response does not reveal whether a well-formed guess was close.
		slog.Info("service error", "cid", cid, "code", "invalid_token")
		h.writeError(ctx, w, http.StatusUnauthorized, "invalid update token")
	case errors.Is(err, app.ErrNotFound):
		slog.Info("service error", "cid", cid, "code", "not_found")
		h.writeError(ctx, w, http.StatusNotFound, "not found")
	default:
		// Internal / unexpected: do not log raw error string to avoid leaking
		// ids or tokens.
		slog.Error("unhandled service error", "cid", cid, "code", "unhandled", "err_type", "unknown")
		h.writeError(ctx, w, http.StatusInternalServerError, "internal")
	}
}
