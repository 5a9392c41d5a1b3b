package httpx

import (
	"errors"
	"net/http"

	"github.com/podmeta/podmeta/internal/app"
)

// handleCreateRecord implements POST /api/v1/records.
func (h *Handler) handleCreateRecord(w http.ResponseWriter, r *http.Request) {
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
	rec, err := h.Service.CreateRecord(ctx, app.CreateInput{
		Type:        p.Type,
		Metadata:    meta,
		Signature:   p.Signature,
		PodcastGUID: p.PodcastGUID,
		RSSItemGUID: p.RSSItemGUID,
	})
	if err != nil {
		h.mapServiceError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusCreated, credentialResponse{
		ID:          rec.ID.String(),
		UpdateToken: rec.UpdateToken.String(),
	})
}
