package api

import (
	"testing"
	"time"

	"coachspine/internal/store"
)

func TestToUploadResult_LastWriterWins(t *testing.T) {
	res := store.UpsertResult{NewRecords: 3, Updated: 2}
	out := toUploadResult(5, res)
	if out.NewRecords != 3 || out.UpdatedRecords != 2 {
		t.Fatalf("unexpected counts: %+v", out)
	}
	if out.SkippedDuplicates != 0 {
		t.Fatalf("expected zero skipped for a last-writer-wins table, got %d", out.SkippedDuplicates)
	}
}

func TestToUploadResult_AppendOnlyDuplicates(t *testing.T) {
	res := store.UpsertResult{NewRecords: 4}
	out := toUploadResult(10, res)
	if out.SkippedDuplicates != 6 {
		t.Fatalf("expected 6 duplicates skipped, got %d", out.SkippedDuplicates)
	}
}

func TestToUploadResult_DateRange(t *testing.T) {
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)
	res := store.UpsertResult{NewRecords: 31, MinDate: &from, MaxDate: &to}
	out := toUploadResult(31, res)
	if out.DateRange == nil || out.DateRange.From != "2026-01-01" || out.DateRange.To != "2026-01-31" {
		t.Fatalf("unexpected date range: %+v", out.DateRange)
	}
}

func TestIsXMLBody(t *testing.T) {
	cases := []struct {
		name string
		body string
		want bool
	}{
		{"xml declaration", `<?xml version="1.0"?><HealthData/>`, true},
		{"leading whitespace xml", "\n\t <HealthData/>", true},
		{"json envelope", `{"metrics":[]}`, false},
		{"empty body", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := isXMLBody([]byte(tc.body)); got != tc.want {
				t.Fatalf("isXMLBody(%q) = %v, want %v", tc.body, got, tc.want)
			}
		})
	}
}
