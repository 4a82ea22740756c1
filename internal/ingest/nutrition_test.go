package ingest

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseNutritionSpreadsheetDelimited(t *testing.T) {
	csv := "date,calories,protein_g,carbs_g,fats_g\n" +
		"2024-07-01,500,40,60,15\n" +
		"2024-07-01,400,30,40,10\n" +
		"2024-07-02,900,70,100,25\n"

	recs, err := ParseNutritionSpreadsheet([]byte(csv))
	require.NoError(t, err)
	require.Len(t, recs, 2)

	require.Equal(t, "2024-07-01", recs[0].Date.Format("2006-01-02"))
	require.Equal(t, 900.0, *recs[0].Calories)
	require.Equal(t, 70.0, *recs[0].ProteinG)

	require.Equal(t, "2024-07-02", recs[1].Date.Format("2006-01-02"))
	require.Equal(t, 900.0, *recs[1].Calories)
}

func TestParseNutritionSpreadsheetMissingDateColumn(t *testing.T) {
	csv := "calories,protein_g\n500,40\n"
	_, err := ParseNutritionSpreadsheet([]byte(csv))
	require.Error(t, err)
}

func TestParseNutritionSpreadsheetDailyTotalAgreement(t *testing.T) {
	csv := "date,calories,protein_g,total_calories\n" +
		"2024-07-01,500,40,902\n" +
		"2024-07-01,400,30,902\n"

	recs, err := ParseNutritionSpreadsheet([]byte(csv))
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Equal(t, 900.0, *recs[0].Calories, "summed value wins even when it agrees with the daily-total column")
}

func TestParseNutritionSpreadsheetDailyTotalDisagreementFailsLoudly(t *testing.T) {
	csv := "date,calories,protein_g,total_calories\n" +
		"2024-07-01,500,40,1200\n" +
		"2024-07-01,400,30,1200\n"

	_, err := ParseNutritionSpreadsheet([]byte(csv))
	require.Error(t, err, "summed (900) vs daily-total column (1200) disagree well past tolerance")
}

func TestParseNutritionSpreadsheetDailyTotalWithinTolerance(t *testing.T) {
	csv := "date,calories,protein_g,total_calories\n" +
		"2024-07-01,500,40,903\n" +
		"2024-07-01,400,30,903\n"

	recs, err := ParseNutritionSpreadsheet([]byte(csv))
	require.NoError(t, err)
	require.Equal(t, 900.0, *recs[0].Calories)
}
