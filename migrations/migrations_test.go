package migrations

import (
	"strings"
	"testing"
)

func TestAll_Ordered(t *testing.T) {
	ms, err := All()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ms) != 2 {
		t.Fatalf("expected 2 migrations, got %d", len(ms))
	}
	if ms[0].Version != "001_cafes" || ms[1].Version != "002_photos" {
		t.Errorf("unexpected order: %s, %s", ms[0].Version, ms[1].Version)
	}
	for _, m := range ms {
		if strings.TrimSpace(m.Up) == "" || strings.TrimSpace(m.Down) == "" {
			t.Errorf("%s: empty up or down script", m.Version)
		}
	}
}
