package httpx

import "net/http"

// handleAbout serves the static service description as JSON.
func (h *Handler) handleAbout(w http.ResponseWriter, _ *http.Request) {
	about := h.About
	if about.Service == "" {
		about.Service = "podmeta"
	}
	writeJSON(w, http.StatusOK, about)
}
