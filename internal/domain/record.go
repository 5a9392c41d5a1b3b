package domain

import "time"

// Metadata is the open-ended payment metadata payload: string keys mapping to
// arbitrary JSON-compatible values. No schema is imposed beyond "is an
// object"; that shape check happens at the transport boundary before a
// Record is ever constructed.
type Metadata map[string]any

// Record is the unit of storage: one payment-metadata entry keyed by ID.
// UpdateToken is private state and must never leave the service except in
// the create/update responses.
type Record struct {
	ID          RecordID
	Type        PaymentType
	Metadata    Metadata
	Signature   string // opaque, stored verbatim, never interpreted
	PodcastGUID string
	RSSItemGUID string
	UpdateToken UpdateToken
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Indexed reports whether the record participates in the episode index.
// Indexing activates only when both GUIDs are present.
func (r Record) Indexed() bool {
	return r.PodcastGUID != "" && r.RSSItemGUID != ""
}
