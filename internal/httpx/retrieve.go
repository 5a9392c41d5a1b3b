package httpx

import "net/http"

// handleGetRecord implements GET /api/v1/records/{id}.
func (h *Handler) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rec, err := h.Service.GetRecord(ctx, r.PathValue("id"))
	if err != nil {
		h.mapServiceError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, readShape(rec))
}
