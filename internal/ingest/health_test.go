package ingest

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStreamHealthExport_JSON(t *testing.T) {
	doc := `{
		"data": {
			"metrics": [
				{
					"name": "step_count",
					"units": "count",
					"data": [
						{"date": "2024-01-15T07:00:00Z", "qty": 8500, "source": "iPhone"}
					]
				}
			]
		}
	}`

	var records []HealthRawRecord
	err := StreamHealthExport(strings.NewReader(doc), func(r HealthRawRecord) error {
		records = append(records, r)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "step_count", records[0].MetricType)
	require.Equal(t, 8500.0, records[0].Value)
	require.Equal(t, "iPhone", records[0].Source)
}

func TestStreamHealthExportXML(t *testing.T) {
	doc := `<?xml version="1.0" encoding="UTF-8"?>
<HealthData locale="en_US">
	<ExportDate value="2024-01-15 10:00:00 -0800"/>
	<Record type="HKQuantityTypeIdentifierStepCount" sourceName="iPhone" sourceVersion="17.2" unit="count" creationDate="2024-01-15 08:00:00 -0800" startDate="2024-01-15 07:00:00 -0800" endDate="2024-01-15 08:00:00 -0800" value="8500"/>
	<Record type="HKQuantityTypeIdentifierBodyMass" sourceName="Withings" unit="kg" creationDate="2024-01-15 06:00:00 -0800" startDate="2024-01-15 06:00:00 -0800" endDate="2024-01-15 06:00:00 -0800" value="82.5"/>
	<Record type="HKCategoryTypeIdentifierSleepAnalysis" sourceName="iPhone" unit="" startDate="2024-01-15 00:00:00 -0800" endDate="2024-01-15 07:00:00 -0800" value="InBed"/>
</HealthData>`

	var records []HealthRawRecord
	err := StreamHealthExportXML(strings.NewReader(doc), func(r HealthRawRecord) error {
		records = append(records, r)
		return nil
	})
	require.NoError(t, err)

	// The non-numeric category record (sleep stage enum) is skipped.
	require.Len(t, records, 2)

	require.Equal(t, "step_count", records[0].MetricType)
	require.Equal(t, 8500.0, records[0].Value)
	require.Equal(t, "count", records[0].Unit)
	require.Equal(t, "iPhone", records[0].Source)

	wantTime, err := time.Parse(healthExportDateLayout, "2024-01-15 07:00:00 -0800")
	require.NoError(t, err)
	require.True(t, records[0].Timestamp.Equal(wantTime))

	require.Equal(t, "body_mass", records[1].MetricType)
	require.Equal(t, 82.5, records[1].Value)
	require.Equal(t, "Withings", records[1].Source)
}

func TestStreamHealthExportXML_MalformedDateFails(t *testing.T) {
	doc := `<HealthData><Record type="HKQuantityTypeIdentifierStepCount" sourceName="iPhone" unit="count" startDate="not-a-date" value="1"/></HealthData>`
	err := StreamHealthExportXML(strings.NewReader(doc), func(r HealthRawRecord) error {
		return nil
	})
	require.Error(t, err)
}

func TestNormalizeHealthKitType(t *testing.T) {
	cases := map[string]string{
		"HKQuantityTypeIdentifierStepCount":          "step_count",
		"HKQuantityTypeIdentifierBodyMass":           "body_mass",
		"HKCategoryTypeIdentifierSleepAnalysis":      "sleep_analysis",
		"HKQuantityTypeIdentifierActiveEnergyBurned": "active_energy_burned",
	}
	for in, want := range cases {
		require.Equal(t, want, normalizeHealthKitType(in))
	}
}
