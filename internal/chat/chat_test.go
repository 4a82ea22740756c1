package chat

import (
	"testing"

	"github.com/google/uuid"
)

func TestAdvisoryKey_Stable(t *testing.T) {
	id := uuid.New()
	if advisoryKey(id) != advisoryKey(id) {
		t.Fatalf("expected advisoryKey to be deterministic for the same session id")
	}
}

func TestAdvisoryKey_DiffersAcrossSessions(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	if advisoryKey(a) == advisoryKey(b) {
		t.Fatalf("expected distinct sessions to (almost always) hash to distinct keys")
	}
}
