package ingest

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseWeight(t *testing.T) {
	require.Equal(t, 89.4, *ParseWeight("89.4 kg"))
	require.Equal(t, 89.4, *ParseWeight("89,4kg"))
	require.Nil(t, ParseWeight("--"))
	require.Nil(t, ParseWeight(""))
}

func TestParsePercentage(t *testing.T) {
	require.Equal(t, 27.1, *ParsePercentage("27.1 %"))
	require.Equal(t, 27.1, *ParsePercentage("27,1%"))
	require.Nil(t, ParsePercentage("--"))
}

func TestParseHeartRate(t *testing.T) {
	require.Equal(t, 63, *ParseHeartRate("63 bpm"))
	require.Equal(t, 63, *ParseHeartRate("63ppm"))
	require.Equal(t, 63, *ParseHeartRate("63"))
	require.Nil(t, ParseHeartRate("--"))
}

func TestParseSleepDuration(t *testing.T) {
	require.Equal(t, 7.05, *ParseSleepDuration("7h 3min"))
	require.Equal(t, 8.0, *ParseSleepDuration("8h"))
	require.Equal(t, 0.75, *ParseSleepDuration("45min"))
	require.Nil(t, ParseSleepDuration("--"))
}

func TestParseIntAndFloat(t *testing.T) {
	require.Equal(t, 8500, *ParseInt("8500"))
	require.Nil(t, ParseInt("--"))
	require.Equal(t, 82.5, *ParseFloat("82,5"))
	require.Nil(t, ParseFloat(""))
}

func TestNaNToNil(t *testing.T) {
	require.True(t, NaNToNil(nan()))
	require.False(t, NaNToNil(1.0))
}

func nan() float64 {
	var zero float64
	return zero / zero
}
