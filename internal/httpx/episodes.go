package httpx

import "net/http"

// handleFindByEpisode implements GET /api/v1/episodes/{podcastGuid}/{rssItemGuid}.
// An episode with no indexed records is a 404, not an empty array, matching
// the by-id lookup semantics.
func (h *Handler) handleFindByEpisode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	recs, err := h.Service.FindByEpisode(ctx, r.PathValue("podcastGuid"), r.PathValue("rssItemGuid"))
	if err != nil {
		h.mapServiceError(ctx, w, err)
		return
	}
	if len(recs) == 0 {
		h.writeError(ctx, w, http.StatusNotFound, "not found")
		return
	}
	out := make([]recordResource, 0, len(recs))
	for _, rec := range recs {
		out = append(out, readShape(rec))
	}
	writeJSON(w, http.StatusOK, out)
}
