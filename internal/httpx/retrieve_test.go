package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/podmeta/podmeta/internal/app"
	"github.com/podmeta/podmeta/internal/domain"
)

func TestGetRecordSuccess(t *testing.T) {
	rec := testRecord(t)
	svc := &mockService{
		getFn: func(_ context.Context, id string) (domain.Record, error) {
			if id != rec.ID.String() {
				t.Fatalf("id = %q", id)
			}
			return rec, nil
		},
	}
	h := New(svc, 0, nil)
	rr := httptest.NewRecorder()
	h.Router().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/records/"+rec.ID.String(), nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	var resp recordResource
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.ID != rec.ID.String() || resp.Type != "bitcoin-lightning" {
		t.Fatalf("response = %+v", resp)
	}
}

// The read shape must never leak the update token, not even as an empty
// field name a client could learn to probe.
func TestGetRecordNeverExposesToken(t *testing.T) {
	rec := testRecord(t)
	svc := &mockService{
		getFn: func(context.Context, string) (domain.Record, error) { return rec, nil },
	}
	h := New(svc, 0, nil)
	rr := httptest.NewRecorder()
	h.Router().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/records/"+rec.ID.String(), nil))

	body := rr.Body.String()
	if strings.Contains(body, rec.UpdateToken.String()) {
		t.Fatalf("token value leaked in body")
	}
	if strings.Contains(strings.ToLower(body), "updatetoken") {
		t.Fatalf("token field leaked in body: %s", body)
	}
}

func TestGetRecordErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "invalid_id", err: domain.ErrInvalidID, want: http.StatusBadRequest},
		{name: "not_found", err: app.ErrNotFound, want: http.StatusNotFound},
		{name: "backend", err: context.DeadlineExceeded, want: http.StatusInternalServerError},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := &mockService{
				getFn: func(context.Context, string) (domain.Record, error) {
					return domain.Record{}, tc.err
				},
			}
			h := New(svc, 0, nil)
			rr := httptest.NewRecorder()
			h.Router().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/records/whatever", nil))
			if rr.Code != tc.want {
				t.Fatalf("status = %d, want %d", rr.Code, tc.want)
			}
		})
	}
}
