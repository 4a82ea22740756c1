package dashboard

import "testing"

func TestClamp(t *testing.T) {
	if clamp(1.5, 0, 1) != 1 {
		t.Fatalf("expected clamp to cap at max")
	}
	if clamp(-0.5, 0, 1) != 0 {
		t.Fatalf("expected clamp to floor at min")
	}
	if clamp(0.5, 0, 1) != 0.5 {
		t.Fatalf("expected mid-range value unchanged")
	}
}

func TestRoundTo2(t *testing.T) {
	if roundTo2(0.12345) != 0.12 {
		t.Fatalf("expected rounding to 2 places, got %v", roundTo2(0.12345))
	}
	if roundTo2(0.128) != 0.13 {
		t.Fatalf("expected round-half-up, got %v", roundTo2(0.128))
	}
}
