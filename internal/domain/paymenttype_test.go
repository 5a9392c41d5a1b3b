package domain

import "testing"

func TestParsePaymentType(t *testing.T) {
	tests := []struct {
		in    string
		valid bool
	}{
		{"bitcoin-lightning", true},
		{"bitcoin-keysend", true},
		{"monero", true},
		{"", false},
		{"bitcoin", false},
		{"BITCOIN-LIGHTNING", false},
		{"dogecoin", false},
		{"monero ", false},
	}
	for _, tc := range tests {
		pt, err := ParsePaymentType(tc.in)
		if tc.valid {
			if err != nil {
				t.Fatalf("expected %q valid, got %v", tc.in, err)
			}
			if pt.String() != tc.in {
				t.Fatalf("round-trip mismatch: %s", pt)
			}
			continue
		}
		if err != ErrInvalidType {
			t.Fatalf("expected ErrInvalidType for %q, got %v", tc.in, err)
		}
	}
}

func TestRecordIndexed(t *testing.T) {
	tests := []struct {
		name    string
		podcast string
		item    string
		want    bool
	}{
		{name: "both_set", podcast: "p1", item: "e1", want: true},
		{name: "podcast_only", podcast: "p1", want: false},
		{name: "item_only", item: "e1", want: false},
		{name: "neither", want: false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := Record{PodcastGUID: tc.podcast, RSSItemGUID: tc.item}
			if r.Indexed() != tc.want {
				t.Fatalf("Indexed()=%v want %v", r.Indexed(), tc.want)
			}
		})
	}
}
