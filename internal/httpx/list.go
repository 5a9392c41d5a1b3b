package httpx

import (
	"net/http"
	"strconv"
)

type paginationMeta struct {
	Limit   int   `json:"limit"`
	Offset  int   `json:"offset"`
	Total   int64 `json:"total"`
	HasMore bool  `json:"hasMore"`
}

type listResponse struct {
	Data       []recordResource `json:"data"`
	Pagination paginationMeta   `json:"pagination"`
}

// handleListRecords implements GET /api/v1/records?limit=&offset=.
func (h *Handler) handleListRecords(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	limit := h.DefaultLimit
	if limit <= 0 {
		limit = 100
	}
	offset := 0
	q := r.URL.Query()
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			h.writeError(ctx, w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	if s := q.Get("offset"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			h.writeError(ctx, w, http.StatusBadRequest, "invalid offset")
			return
		}
		offset = n
	}
	page, err := h.Service.ListRecords(ctx, limit, offset)
	if err != nil {
		h.mapServiceError(ctx, w, err)
		return
	}
	data := make([]recordResource, 0, len(page.Records))
	for _, rec := range page.Records {
		data = append(data, readShape(rec))
	}
	writeJSON(w, http.StatusOK, listResponse{
		Data: data,
		Pagination: paginationMeta{
			Limit:   page.Limit,
			Offset:  page.Offset,
			Total:   page.Total,
			HasMore: page.HasMore(),
		},
	})
}
