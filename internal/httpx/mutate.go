package httpx

import (
	"errors"
	"net/http"

	"github.com/podmeta/podmeta/internal/app"
)

// handleUpdateRecord implements PUT /api/v1/records/{id}?token=.
// A successful update rotates the token; the response carries the new one.
func (h *Handler) handleUpdateRecord(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, err := h.decodePayload(w, r)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.writeError(ctx, w, http.StatusRequestEntityTooLarge, "body too large")
			return
		}
		h.writeError(ctx, w, http.StatusBadRequest, "malformed JSON body")
		return
	}
	meta, err := parseMetadata(p.Metadata)
	if err != nil {
		h.mapServiceError(ctx, w, err)
		return
	}
	// GUIDs are fixed at creation; sending them on update is a client bug
	if p.PodcastGUID != "" || p.RSSItemGUID != "" {
		h.writeError(ctx, w, http.StatusBadRequest, "podcastGuid and rssItemGuid cannot be changed")
		return
	}
	rec, err := h.Service.UpdateRecord(ctx, r.PathValue("id"), r.URL.Query().Get("token"), app.UpdateInput{
		Type:      p.Type,
		Metadata:  meta,
		Signature: p.Signature,
	})
	if err != nil {
		h.mapServiceError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, credentialResponse{
		ID:          rec.ID.String(),
		UpdateToken: rec.UpdateToken.String(),
	})
}

// handleDeleteRecord implements DELETE /api/v1/records/{id}?token=.
func (h *Handler) handleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.Service.DeleteRecord(ctx, r.PathValue("id"), r.URL.Query().Get("token")); err != nil {
		h.mapServiceError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
