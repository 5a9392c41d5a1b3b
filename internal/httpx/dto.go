package httpx

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/podmeta/podmeta/internal/domain"
)

// recordPayload is the JSON body accepted by create and update. Metadata is
// kept raw so the object-shape check can distinguish `{}`, `null`, arrays,
// and scalars before anything reaches the domain layer.
type recordPayload struct {
	Type        string          `json:"type"`
	Metadata    json.RawMessage `json:"metadata"`
	Signature   string          `json:"signature"`
	PodcastGUID string          `json:"podcastGuid"`
	RSSItemGUID string          `json:"rssItemGuid"`
}

// recordResource is the read shape of a record. The update token is private
// state and never appears here.
type recordResource struct {
	ID          string          `json:"id"`
	Type        string          `json:"type"`
	Metadata    domain.Metadata `json:"metadata"`
	Signature   string          `json:"signature,omitempty"`
	PodcastGUID string          `json:"podcastGuid,omitempty"`
	RSSItemGUID string          `json:"rssItemGuid,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

func readShape(rec domain.Record) recordResource {
	return recordResource{
		ID:          rec.ID.String(),
		Type:        rec.Type.String(),
		Metadata:    rec.Metadata,
		Signature:   rec.Signature,
		PodcastGUID: rec.PodcastGUID,
		RSSItemGUID: rec.RSSItemGUID,
		CreatedAt:   rec.CreatedAt,
		UpdatedAt:   rec.UpdatedAt,
	}
}

// credentialResponse is returned by create and update: the id plus the
// currently live update token. This is the only place the token ever leaves
// the service.
type credentialResponse struct {
	ID          string `json:"id"`
	UpdateToken string `json:"updateToken"`
}

// decodePayload reads and decodes a size-capped JSON body.
func (h *Handler) decodePayload(w http.ResponseWriter, r *http.Request) (recordPayload, error) {
	var p recordPayload
	body := http.MaxBytesReader(w, r.Body, h.MaxBody)
	defer body.Close()
	dec := json.NewDecoder(body)
	if err := dec.Decode(&p); err != nil {
		return recordPayload{}, err
	}
	// trailing garbage after the object is rejected
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return recordPayload{}, errors.New("unexpected trailing data")
	}
	return p, nil
}

// parseMetadata enforces the JSON-object shape. Absent, null, array, and
// scalar metadata all map to domain.ErrInvalidMetadata.
func parseMetadata(raw json.RawMessage) (domain.Metadata, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, domain.ErrInvalidMetadata
	}
	var m domain.Metadata
	if err := json.Unmarshal(trimmed, &m); err != nil {
		return nil, domain.ErrInvalidMetadata
	}
	if m == nil {
		m = domain.Metadata{}
	}
	return m, nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
