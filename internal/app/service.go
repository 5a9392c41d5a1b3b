// Package app contains the application orchestration layer for podmeta. It
// wires domain validation with persistence ports without performing any I/O
// itself.
package app

import (
	"context"
	"errors"

	"github.com/podmeta/podmeta/internal/domain"
)

// ErrNotFound indicates no record exists for the requested id.
var ErrNotFound = errors.New("record not found")

// ErrIDCollision indicates an insert hit an already-used id. With 128-bit
// random ids this is practically unreachable and treated as a fatal
// consistency error rather than a retryable condition.
var ErrIDCollision = errors.New("record id collision")

// ErrInvalidPagination indicates limit/offset outside the allowed range.
var ErrInvalidPagination = errors.New("pagination out of range")

// CreateInput carries the client-supplied fields for a new record.
type CreateInput struct {
	Type        string
	Metadata    domain.Metadata
	Signature   string
	PodcastGUID string
	RSSItemGUID string
}

// UpdateInput carries the replacement content for an existing record. The
// episode GUID pair is deliberately absent: index membership is fixed at
// creation and an update cannot move a record between buckets.
type UpdateInput struct {
	Type      string
	Metadata  domain.Metadata
	Signature string
}

// Page describes one listing page plus the totals needed for the hasMore flag.
type Page struct {
	Records []domain.Record
	Limit   int
	Offset  int
	Total   int64
}

// HasMore reports whether records exist beyond this page.
func (p Page) HasMore() bool { return int64(p.Offset+p.Limit) < p.Total }

// Service orchestrates record creation, retrieval, mutation, and listing
// using the injected store and clock. Events is optional; a nil sink
// disables lifecycle notifications.
type Service struct {
	Store        RecordStore
	Clock        Clock
	Events       EventSink
	MaxListLimit int
}

// CreateRecord validates inputs, mints the id/token pair, and persists the
// record. The returned record carries the freshly minted update token; the
// transport layer decides which fields leave the service.
func (s *Service) CreateRecord(ctx context.Context, in CreateInput) (domain.Record, error) {
	pt, err := domain.ParsePaymentType(in.Type)
	if err != nil {
		return domain.Record{}, err
	}
	if in.Metadata == nil {
		return domain.Record{}, domain.ErrInvalidMetadata
	}
	id, err := domain.NewRecordID()
	if err != nil { // extremely unlikely, but propagate
		return domain.Record{}, err
	}
	token, err := domain.NewUpdateToken()
	if err != nil {
		return domain.Record{}, err
	}
	now := s.Clock.Now()
	rec := domain.Record{
		ID:          id,
		Type:        pt,
		Metadata:    in.Metadata,
		Signature:   in.Signature,
		PodcastGUID: in.PodcastGUID,
		RSSItemGUID: in.RSSItemGUID,
		UpdateToken: token,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.Store.Insert(ctx, rec); err != nil {
		return domain.Record{}, err
	}
	if s.Events != nil {
		s.Events.RecordCreated(ctx, rec.ID)
	}
	return rec, nil
}

// GetRecord validates the id and fetches the record.
func (s *Service) GetRecord(ctx context.Context, idStr string) (domain.Record, error) {
	id, err := domain.ParseRecordID(idStr)
	if err != nil {
		return domain.Record{}, err
	}
	return s.Store.Get(ctx, id)
}

// UpdateRecord replaces the record's content after the token check and
// rotates the update token. The stored episode pair and creation time are
// carried over unchanged. The check-then-act window between token
// verification and the write is an accepted race for this bearer-token
// threat model.
func (s *Service) UpdateRecord(ctx context.Context, idStr, tokenStr string, in UpdateInput) (domain.Record, error) {
	id, err := domain.ParseRecordID(idStr)
	if err != nil {
		return domain.Record{}, err
	}
	token, err := domain.ParseUpdateToken(tokenStr)
	if err != nil {
		return domain.Record{}, err
	}
	pt, err := domain.ParsePaymentType(in.Type)
	if err != nil {
		return domain.Record{}, err
	}
	if in.Metadata == nil {
		return domain.Record{}, domain.ErrInvalidMetadata
	}
	prior, err := s.Store.Get(ctx, id)
	if err != nil {
		return domain.Record{}, err
	}
	if !prior.UpdateToken.Matches(token) {
		return domain.Record{}, domain.ErrInvalidToken
	}
	fresh, err := domain.NewUpdateToken()
	if err != nil {
		return domain.Record{}, err
	}
	next := domain.Record{
		ID:          prior.ID,
		Type:        pt,
		Metadata:    in.Metadata,
		Signature:   in.Signature,
		PodcastGUID: prior.PodcastGUID,
		RSSItemGUID: prior.RSSItemGUID,
		UpdateToken: fresh,
		CreatedAt:   prior.CreatedAt,
		UpdatedAt:   s.Clock.Now(),
	}
	if err := s.Store.Replace(ctx, next); err != nil {
		return domain.Record{}, err
	}
	if s.Events != nil {
		s.Events.RecordUpdated(ctx, next.ID)
	}
	return next, nil
}

// DeleteRecord removes the record after the token check.
func (s *Service) DeleteRecord(ctx context.Context, idStr, tokenStr string) error {
	id, err := domain.ParseRecordID(idStr)
	if err != nil {
		return err
	}
	token, err := domain.ParseUpdateToken(tokenStr)
	if err != nil {
		return err
	}
	prior, err := s.Store.Get(ctx, id)
	if err != nil {
		return err
	}
	if !prior.UpdateToken.Matches(token) {
		return domain.ErrInvalidToken
	}
	if err := s.Store.Delete(ctx, id); err != nil {
		return err
	}
	if s.Events != nil {
		s.Events.RecordDeleted(ctx, id)
	}
	return nil
}

// ValidateUpdateToken reports whether a record exists and its live token
// equals the supplied one. Comparison is constant-time.
func (s *Service) ValidateUpdateToken(ctx context.Context, idStr, tokenStr string) (bool, error) {
	id, err := domain.ParseRecordID(idStr)
	if err != nil {
		return false, err
	}
	token, err := domain.ParseUpdateToken(tokenStr)
	if err != nil {
		return false, err
	}
	rec, err := s.Store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return rec.UpdateToken.Matches(token), nil
}

// ListRecords returns one page of records plus the live total. Iteration
// order is only stable in a quiescent state; callers must tolerate drift
// between pages under concurrent mutation.
func (s *Service) ListRecords(ctx context.Context, limit, offset int) (Page, error) {
	max := s.MaxListLimit
	if max <= 0 {
		max = 1000
	}
	if limit < 1 || limit > max || offset < 0 {
		return Page{}, ErrInvalidPagination
	}
	recs, err := s.Store.List(ctx, limit, offset)
	if err != nil {
		return Page{}, err
	}
	total, err := s.Store.Count(ctx)
	if err != nil {
		return Page{}, err
	}
	return Page{Records: recs, Limit: limit, Offset: offset, Total: total}, nil
}

// FindByEpisode returns all records indexed under the GUID pair. An empty
// result is not an error here; the transport layer decides how to report it.
func (s *Service) FindByEpisode(ctx context.Context, podcastGUID, rssItemGUID string) ([]domain.Record, error) {
	return s.Store.FindByEpisode(ctx, podcastGUID, rssItemGUID)
}
