package projection

import (
	"strings"
	"testing"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{"under limit", "short", 10, "short"},
		{"exact limit", "1234567890", 10, "1234567890"},
		{"over limit", "12345678901234", 10, "1234567890..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := truncate(tt.in, tt.max); got != tt.want {
				t.Errorf("truncate() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBlueprintClaimMarkerFixture(t *testing.T) {
	existing := "# Blueprint\n\n<!-- claim:1 -->\n### [invariant] now\n\nFirst claim.\n"
	if !strings.Contains(existing, "<!-- claim:1 -->") {
		t.Fatal("fixture setup broken")
	}
	// RenderBlueprint's dedup check is a plain substring match against the
	// claim's HTML-comment marker ("<!-- claim:%d -->"); this checks only that
	// the fixture carries that marker for claim ID 1. RenderBlueprint itself
	// is not called here.
	marker := "<!-- claim:1 -->"
	if !strings.Contains(existing, marker) {
		t.Errorf("expected existing document to already contain marker %q", marker)
	}
}
