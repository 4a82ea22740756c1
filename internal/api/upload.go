package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"coachspine/internal/apperr"
	"coachspine/internal/ingest"
	"coachspine/internal/store"

	"github.com/google/uuid"
)

const maxUploadBytes = 64 << 20 // 64MiB, generous for a multi-year export

type uploadResult struct {
	NewRecords        int        `json:"new_records"`
	UpdatedRecords    int        `json:"updated_records"`
	SkippedDuplicates int        `json:"skipped_duplicates"`
	DateRange         *dateRange `json:"date_range,omitempty"`
}

type dateRange struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// handleNutritionUpload implements POST /nutrition/upload: a
// multipart "file" field dispatched to the spreadsheet-nutrition parser
// and the nutrition upsert path.
func (s *Server) handleNutritionUpload(w http.ResponseWriter, r *http.Request) {
	userID, err := s.resolveUserID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, apperr.WrapParse(err, "parsing multipart upload"))
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, apperr.WrapParse(err, "reading uploaded file field"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		writeError(w, apperr.WrapParse(err, "reading uploaded file"))
		return
	}

	records, err := ingest.ParseNutritionSpreadsheet(data)
	if err != nil {
		writeError(w, err)
		return
	}

	res, err := s.ctx.Upserts.Nutrition(r.Context(), userID, records)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toUploadResult(len(records), res))
}

// handleAppleHealthUpload implements both POST /apple-health/upload and
// POST /upload/apple-health-json. Three shapes land here: the
// compact on-device JSON envelope (sniffed by a top-level "metrics"
// key), the phone's native `export.xml` (sniffed by a leading '<'), and
// the larger JSON phone export — the latter two both route through a
// streaming raw-metric parser and the former straight to
// the HealthMetricDaily upsert path (mode ii).
func (s *Server) handleAppleHealthUpload(w http.ResponseWriter, r *http.Request) {
	userID, err := s.resolveUserID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxUploadBytes))
	if err != nil {
		writeError(w, apperr.WrapParse(err, "reading health upload body"))
		return
	}

	if isXMLBody(body) {
		s.uploadHealthRawExportXML(w, r, userID, body)
		return
	}

	var sniff struct {
		Metrics json.RawMessage `json:"metrics"`
	}
	if err := json.Unmarshal(body, &sniff); err == nil && sniff.Metrics != nil {
		s.uploadHealthEnvelope(w, r, userID, body)
		return
	}
	s.uploadHealthRawExport(w, r, userID, body)
}

// isXMLBody sniffs for the phone's native export format: the first
// non-whitespace byte of a well-formed XML document is always '<',
// which a JSON envelope or JSON export body never starts with.
func isXMLBody(body []byte) bool {
	trimmed := bytes.TrimLeft(body, " \t\r\n")
	return len(trimmed) > 0 && trimmed[0] == '<'
}

func (s *Server) uploadHealthEnvelope(w http.ResponseWriter, r *http.Request, userID uuid.UUID, body []byte) {
	env, err := ingest.ParseHealthEnvelope(bytes.NewReader(body))
	if err != nil {
		writeError(w, err)
		return
	}

	res, err := s.ctx.Upserts.HealthDailyFromEnvelope(r.Context(), userID, env)
	if err != nil {
		writeError(w, err)
		return
	}

	// metrics sharing a date merge into one daily row, so the submitted
	// count is the number of distinct dates
	dates := map[string]struct{}{}
	for _, m := range env.Metrics {
		dates[m.Date] = struct{}{}
	}
	writeJSON(w, http.StatusOK, toUploadResult(len(dates), res))
}

func (s *Server) uploadHealthRawExport(w http.ResponseWriter, r *http.Request, userID uuid.UUID, body []byte) {
	var records []ingest.HealthRawRecord
	err := ingest.StreamHealthExport(bytes.NewReader(body), func(rec ingest.HealthRawRecord) error {
		records = append(records, rec)
		return nil
	})
	if err != nil {
		writeError(w, err)
		return
	}

	res, err := s.ctx.Upserts.HealthRaw(r.Context(), userID, records)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toUploadResult(len(records), res))
}

// uploadHealthRawExportXML handles the phone's native `export.xml` via
// the streaming XML decoder.
func (s *Server) uploadHealthRawExportXML(w http.ResponseWriter, r *http.Request, userID uuid.UUID, body []byte) {
	var records []ingest.HealthRawRecord
	err := ingest.StreamHealthExportXML(bytes.NewReader(body), func(rec ingest.HealthRawRecord) error {
		records = append(records, rec)
		return nil
	})
	if err != nil {
		writeError(w, err)
		return
	}

	res, err := s.ctx.Upserts.HealthRaw(r.Context(), userID, records)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toUploadResult(len(records), res))
}

// toUploadResult derives skipped_duplicates from the submitted count
// minus whatever the upsert actually touched: for append-only tables
// (HealthMetricRaw) a DO NOTHING conflict never increments NewRecords or
// Updated, so the remainder is exactly the duplicate count; for
// last-writer-wins tables (NutritionDay,
// HealthMetricDaily) every submitted record lands in one bucket or the
// other and the remainder is always zero.
func toUploadResult(submitted int, res store.UpsertResult) uploadResult {
	out := uploadResult{NewRecords: res.NewRecords, UpdatedRecords: res.Updated}
	touched := res.NewRecords + res.Updated
	if submitted > touched {
		out.SkippedDuplicates = submitted - touched
	}
	if res.MinDate != nil && res.MaxDate != nil {
		out.DateRange = &dateRange{From: res.MinDate.Format("2006-01-02"), To: res.MaxDate.Format("2006-01-02")}
	}
	return out
}
