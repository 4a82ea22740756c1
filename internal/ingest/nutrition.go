package ingest

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"math"
	"strings"
	"time"

	"coachspine/internal/apperr"

	"github.com/xuri/excelize/v2"
)

// NutritionRecord is one normalized per-day row produced by the
// spreadsheet-nutrition parser: a primary scalar projection plus Raw, every
// column of the source export untouched, so reprocessing never needs to
// re-fetch the original file.
type NutritionRecord struct {
	Date     time.Time
	Calories *float64
	ProteinG *float64
	CarbsG   *float64
	FatsG    *float64
	FiberG   *float64
	Raw      map[string]any
}

var macroColumns = map[string]string{
	"calories":  "calories",
	"kcal":      "calories",
	"protein":   "protein_g",
	"protein_g": "protein_g",
	"carbs":     "carbs_g",
	"carbs_g":   "carbs_g",
	"fat":       "fats_g",
	"fats":      "fats_g",
	"fats_g":    "fats_g",
	"fiber":     "fiber_g",
	"fiber_g":   "fiber_g",
}

// dailyTotalColumns recognizes a second shape some exports carry
// alongside meal rows: a pre-aggregated daily total repeated on every
// meal row of the day (or carried on a single summary row). A day's
// true value is always the summed meal rows; this column only exists
// to be cross-checked against that sum, never to replace it.
var dailyTotalColumns = map[string]string{
	"total_calories":  "calories",
	"daily_calories":  "calories",
	"total_protein":   "protein_g",
	"total_protein_g": "protein_g",
	"daily_protein":   "protein_g",
	"total_carbs":     "carbs_g",
	"total_carbs_g":   "carbs_g",
	"daily_carbs":     "carbs_g",
	"total_fat":       "fats_g",
	"total_fats":      "fats_g",
	"total_fats_g":    "fats_g",
	"daily_fat":       "fats_g",
	"total_fiber":     "fiber_g",
	"total_fiber_g":   "fiber_g",
	"daily_fiber":     "fiber_g",
}

// macroDisagreementTolerance bounds how far a daily-total column may
// drift from the summed meal rows before the parser treats it as a
// real disagreement rather than rounding noise.
const macroDisagreementTolerance = 5.0

var dateColumnCandidates = []string{"date", "day", "log_date"}

// ParseNutritionSpreadsheet detects the export's format (xlsx workbook vs
// delimited text) from its first bytes, aggregates meal-level rows to
// per-day rows by summing macros, and preserves every source column in
// each day's Raw as a list of the contributing meal rows. When an export
// also carries a pre-aggregated daily-total column, it's cross-checked
// against the summed value: the sum is always authoritative, but a
// disagreement beyond tolerance fails the parse loudly instead of
// silently picking one signal. It fails with a ParseError when no date
// column can be resolved.
func ParseNutritionSpreadsheet(data []byte) ([]NutritionRecord, error) {
	if isXLSX(data) {
		return parseNutritionWorkbook(data)
	}
	return parseNutritionDelimited(data)
}

func isXLSX(data []byte) bool {
	// the zip local-file-header magic number; xlsx files are zip archives
	return len(data) >= 4 && data[0] == 0x50 && data[1] == 0x4B
}

func parseNutritionWorkbook(data []byte) ([]NutritionRecord, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, apperr.WrapParse(err, "opening nutrition workbook")
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, apperr.Parse("nutrition workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, apperr.WrapParse(err, "reading nutrition workbook rows")
	}
	if len(rows) < 2 {
		return nil, apperr.Parse("nutrition workbook has no data rows")
	}

	return aggregateRows(rows[0], rows[1:])
}

func parseNutritionDelimited(data []byte) ([]NutritionRecord, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1

	allRows, err := reader.ReadAll()
	if err != nil {
		return nil, apperr.WrapParse(err, "reading delimited nutrition export")
	}
	if len(allRows) < 2 {
		return nil, apperr.Parse("nutrition export has no data rows")
	}

	return aggregateRows(allRows[0], allRows[1:])
}

// aggregateRows sums meal-level rows into one record per calendar date.
// Raw preserves every column of every contributing row as a list, so
// analysis can be reprocessed without re-fetching the source file.
func aggregateRows(header []string, rows [][]string) ([]NutritionRecord, error) {
	dateCol := -1
	for i, h := range header {
		if isDateColumn(h) {
			dateCol = i
			break
		}
	}
	if dateCol == -1 {
		return nil, apperr.Parse("nutrition export: cannot resolve a date column")
	}

	byDate := map[string]*NutritionRecord{}
	dailyTotals := map[string]map[string]float64{}
	order := []string{}

	for _, row := range rows {
		if dateCol >= len(row) {
			continue
		}
		dateStr := strings.TrimSpace(row[dateCol])
		date, err := parseFlexibleDate(dateStr)
		if err != nil {
			continue
		}
		key := date.Format("2006-01-02")

		rec, ok := byDate[key]
		if !ok {
			rec = &NutritionRecord{Date: date, Raw: map[string]any{}}
			byDate[key] = rec
			order = append(order, key)
		}

		rawRow := map[string]string{}
		for i, h := range header {
			if i < len(row) {
				rawRow[h] = row[i]
			}
		}
		rows, _ := rec.Raw["rows"].([]map[string]string)
		rec.Raw["rows"] = append(rows, rawRow)

		for i, h := range header {
			if i >= len(row) {
				continue
			}
			colName := strings.ToLower(strings.TrimSpace(h))
			v := ParseFloat(row[i])
			if v == nil {
				continue
			}
			if field, ok := macroColumns[colName]; ok {
				addMacro(rec, field, *v)
				continue
			}
			if field, ok := dailyTotalColumns[colName]; ok {
				totals, ok := dailyTotals[key]
				if !ok {
					totals = map[string]float64{}
					dailyTotals[key] = totals
				}
				totals[field] = *v
			}
		}
	}

	out := make([]NutritionRecord, 0, len(order))
	for _, key := range order {
		rec := *byDate[key]
		if err := checkDailyTotalAgreement(rec, dailyTotals[key]); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// checkDailyTotalAgreement compares a day's summed macros against any
// pre-aggregated daily-total columns the export also carried for that
// day. The summed value always wins, but a disagreement past
// macroDisagreementTolerance is a sign the two signals describe
// different things, so it fails loudly rather than picking one silently.
func checkDailyTotalAgreement(rec NutritionRecord, totals map[string]float64) error {
	summed := map[string]*float64{
		"calories": rec.Calories, "protein_g": rec.ProteinG,
		"carbs_g": rec.CarbsG, "fats_g": rec.FatsG, "fiber_g": rec.FiberG,
	}
	for field, total := range totals {
		sum := summed[field]
		if sum == nil {
			continue
		}
		if math.Abs(*sum-total) > macroDisagreementTolerance {
			return apperr.Parse("%s", fmt.Sprintf(
				"nutrition export: %s on %s disagrees between summed meal rows (%.1f) and the daily-total column (%.1f)",
				field, rec.Date.Format("2006-01-02"), *sum, total,
			))
		}
	}
	return nil
}

func addMacro(rec *NutritionRecord, field string, v float64) {
	switch field {
	case "calories":
		rec.Calories = addPtr(rec.Calories, v)
	case "protein_g":
		rec.ProteinG = addPtr(rec.ProteinG, v)
	case "carbs_g":
		rec.CarbsG = addPtr(rec.CarbsG, v)
	case "fats_g":
		rec.FatsG = addPtr(rec.FatsG, v)
	case "fiber_g":
		rec.FiberG = addPtr(rec.FiberG, v)
	}
}

func addPtr(existing *float64, v float64) *float64 {
	if existing == nil {
		sum := v
		return &sum
	}
	sum := *existing + v
	return &sum
}

func isDateColumn(h string) bool {
	h = strings.ToLower(strings.TrimSpace(h))
	for _, candidate := range dateColumnCandidates {
		if h == candidate {
			return true
		}
	}
	return false
}

var dateLayouts = []string{"2006-01-02", "01/02/2006", "2006/01/02", "02-01-2006"}

func parseFlexibleDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date format: %q", s)
}
