package ingest

import (
	"encoding/json"
	"encoding/xml"
	"io"
	"strconv"
	"strings"
	"time"

	"coachspine/internal/apperr"
)

// HealthEnvelopeMetric is one entry of the compact JSON envelope an
// on-device automation posts directly.
type HealthEnvelopeMetric struct {
	Type  string  `json:"type"`
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
	Date  string  `json:"date"`
}

// HealthEnvelope is the compact payload shape for POST /apple-health/upload
// and /upload/apple-health-json when the caller already aggregated to
// daily granularity.
type HealthEnvelope struct {
	Metrics  []HealthEnvelopeMetric `json:"metrics"`
	UserID   string                 `json:"user_id"`
	SyncDate string                 `json:"sync_date"`
}

// ParseHealthEnvelope decodes the compact JSON envelope. Unlike the raw
// export parser, this path is intentionally eager: the envelope is
// expected to be small (one sync's worth of daily values), not a
// multi-year archive.
func ParseHealthEnvelope(r io.Reader) (*HealthEnvelope, error) {
	var env HealthEnvelope
	if err := json.NewDecoder(r).Decode(&env); err != nil {
		return nil, apperr.WrapParse(err, "decoding health envelope")
	}
	if len(env.Metrics) == 0 {
		return nil, apperr.Parse("health envelope has no metrics")
	}
	return &env, nil
}

// HealthRawRecord is one point destined for HealthMetricRaw.
type HealthRawRecord struct {
	Timestamp  time.Time
	MetricType string
	Source     string
	Value      float64
	Unit       string
}

type rawExportMetric struct {
	Name  string `json:"name"`
	Units string `json:"units"`
	Data  []struct {
		Date   time.Time `json:"date"`
		Qty    float64   `json:"qty"`
		Source string    `json:"source"`
	} `json:"data"`
}

// StreamHealthExport parses a large phone health-export JSON document
// without ever holding the whole document in memory: it walks the
// top-level object token by token and, on encountering the "metrics"
// array, decodes one metric group — and within it one data point — at a
// time, invoking yield per point. yield returning an error aborts the
// scan and the error is returned to the caller.
// This is the SAX-style mode for the JSON health export (the compact
// on-device envelope goes through ParseHealthEnvelope instead); StreamHealthExportXML below
// handles the phone's native `export.xml` with the same yield contract,
// so both converge on HealthRawRecord before reaching the caller.
func StreamHealthExport(r io.Reader, yield func(HealthRawRecord) error) error {
	dec := json.NewDecoder(r)

	if err := expectDelim(dec, '{'); err != nil {
		return apperr.WrapParse(err, "health export: expected top-level object")
	}

	for dec.More() {
		key, err := dec.Token()
		if err != nil {
			return apperr.WrapParse(err, "health export: reading key")
		}
		keyStr, _ := key.(string)

		if keyStr != "data" {
			if err := skipValue(dec); err != nil {
				return apperr.WrapParse(err, "health export: skipping field %q", keyStr)
			}
			continue
		}

		if err := streamDataObject(dec, yield); err != nil {
			return err
		}
	}

	return nil
}

func streamDataObject(dec *json.Decoder, yield func(HealthRawRecord) error) error {
	if err := expectDelim(dec, '{'); err != nil {
		return apperr.WrapParse(err, "health export: expected data object")
	}

	for dec.More() {
		key, err := dec.Token()
		if err != nil {
			return apperr.WrapParse(err, "health export: reading data key")
		}
		keyStr, _ := key.(string)

		if keyStr != "metrics" {
			if err := skipValue(dec); err != nil {
				return apperr.WrapParse(err, "health export: skipping data field %q", keyStr)
			}
			continue
		}

		if err := streamMetricsArray(dec, yield); err != nil {
			return err
		}
	}

	// consume the remainder of the data object without materializing it
	return skipUntilDelim(dec, '}')
}

func streamMetricsArray(dec *json.Decoder, yield func(HealthRawRecord) error) error {
	if err := expectDelim(dec, '['); err != nil {
		return apperr.WrapParse(err, "health export: expected metrics array")
	}

	for dec.More() {
		var metric rawExportMetric
		if err := dec.Decode(&metric); err != nil {
			return apperr.WrapParse(err, "health export: decoding metric group")
		}
		for _, point := range metric.Data {
			rec := HealthRawRecord{
				Timestamp:  point.Date,
				MetricType: metric.Name,
				Source:     point.Source,
				Value:      point.Qty,
				Unit:       metric.Units,
			}
			if err := yield(rec); err != nil {
				return err
			}
		}
	}

	_, err := dec.Token() // consume closing ']'
	return err
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	d, ok := tok.(json.Delim)
	if !ok || d != want {
		return apperr.Parse("expected delimiter %q, got %v", want, tok)
	}
	return nil
}

// skipValue discards the next JSON value, recursing into nested
// objects/arrays without allocating for them.
func skipValue(dec *json.Decoder) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	d, ok := tok.(json.Delim)
	if !ok {
		return nil // scalar already consumed
	}
	var closer json.Delim
	switch d {
	case '{':
		closer = '}'
	case '[':
		closer = ']'
	default:
		return nil
	}
	return skipUntilDelim(dec, closer)
}

func skipUntilDelim(dec *json.Decoder, closer json.Delim) error {
	depth := 1
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		if d, ok := tok.(json.Delim); ok {
			switch d {
			case '{', '[':
				depth++
			case '}', ']':
				depth--
			}
		}
	}
	return nil
}

// healthExportRecord mirrors one <Record/> element of the phone's native
// `export.xml`. Apple's own dates look like "2024-01-15 07:00:00 -0800".
type healthExportRecord struct {
	Type       string `xml:"type,attr"`
	SourceName string `xml:"sourceName,attr"`
	Unit       string `xml:"unit,attr"`
	StartDate  string `xml:"startDate,attr"`
	Value      string `xml:"value,attr"`
}

const healthExportDateLayout = "2006-01-02 15:04:05 -0700"

// StreamHealthExportXML parses the phone's native `export.xml` without
// loading the whole document into memory: it walks tokens looking for
// `<Record>` start elements and decodes each one individually (a Record
// is a single self-contained element, so decoding it costs nothing more
// than that one element), converging on the same HealthRawRecord shape
// StreamHealthExport produces from the JSON export.
// A record whose value isn't numeric (several HealthKit category types,
// e.g. sleep stage enums, report as text) is skipped rather than failing
// the whole scan — the numeric metric types this system cares about
// (step count, weight, active energy, resting heart rate) all carry a
// parseable value.
func StreamHealthExportXML(r io.Reader, yield func(HealthRawRecord) error) error {
	dec := xml.NewDecoder(r)

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return apperr.WrapParse(err, "health export: reading xml token")
		}

		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "Record" {
			continue
		}

		var rec healthExportRecord
		if err := dec.DecodeElement(&rec, &se); err != nil {
			return apperr.WrapParse(err, "health export: decoding record element")
		}

		value, err := strconv.ParseFloat(rec.Value, 64)
		if err != nil {
			continue
		}
		ts, err := time.Parse(healthExportDateLayout, rec.StartDate)
		if err != nil {
			return apperr.WrapParse(err, "health export: record startDate %q", rec.StartDate)
		}

		out := HealthRawRecord{
			Timestamp:  ts,
			MetricType: normalizeHealthKitType(rec.Type),
			Source:     rec.SourceName,
			Value:      value,
			Unit:       rec.Unit,
		}
		if err := yield(out); err != nil {
			return err
		}
	}
}

// normalizeHealthKitType turns a HealthKit identifier like
// "HKQuantityTypeIdentifierStepCount" into the snake_case metric type
// the rest of the pipeline already uses ("step_count"), matching the
// JSON export path's `name` field convention.
func normalizeHealthKitType(hkType string) string {
	name := strings.TrimPrefix(hkType, "HKQuantityTypeIdentifier")
	name = strings.TrimPrefix(name, "HKCategoryTypeIdentifier")

	var b strings.Builder
	for i, r := range name {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r - 'A' + 'a')
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}
