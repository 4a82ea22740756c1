package api

import "testing"

func TestParseSessionID_Nil(t *testing.T) {
	id, err := parseSessionID(nil)
	if err != nil || id != nil {
		t.Fatalf("expected nil, nil for an absent session id, got %v, %v", id, err)
	}
}

func TestParseSessionID_Empty(t *testing.T) {
	empty := ""
	id, err := parseSessionID(&empty)
	if err != nil || id != nil {
		t.Fatalf("expected nil, nil for an empty session id, got %v, %v", id, err)
	}
}

func TestParseSessionID_Invalid(t *testing.T) {
	bad := "not-a-uuid"
	if _, err := parseSessionID(&bad); err == nil {
		t.Fatal("expected an error for a malformed session id")
	}
}

func TestParseSessionID_Valid(t *testing.T) {
	raw := "3fa85f64-5717-4562-b3fc-2c963f66afa6"
	id, err := parseSessionID(&raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id == nil || id.String() != raw {
		t.Fatalf("expected parsed id to match input, got %v", id)
	}
}
