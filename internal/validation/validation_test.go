package validation

import "testing"

func TestHasSectionIgnoresCodeFences(t *testing.T) {
	tests := []struct {
		name    string
		content string
		section string
		want    bool
	}{
		{
			name:    "heading present",
			content: "# Intent\n\n## Goal\n\nShip the thing.\n",
			section: "Goal",
			want:    true,
		},
		{
			name:    "heading missing",
			content: "# Intent\n\n## Success Criteria\n\nDone when tests pass.\n",
			section: "Goal",
			want:    false,
		},
		{
			name:    "fenced code block heading is not a real section",
			content: "# Intent\n\n```\n## Goal\n```\n",
			section: "Goal",
			want:    false,
		},
		{
			name:    "case-insensitive match",
			content: "## goal\n\nShip it.\n",
			section: "Goal",
			want:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := hasSection(tt.content, tt.section); got != tt.want {
				t.Errorf("hasSection() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHasPlaceholder(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    bool
	}{
		{"clean content", "## Goal\n\nShip the thing.\n", false},
		{"TODO marker", "## Goal\n\nTODO: fill this in.\n", true},
		{"TBD marker", "## Goal\n\nOwner: TBD\n", true},
		{"lowercase fixme", "## Goal\n\nfixme later\n", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, got := hasPlaceholder(tt.content); got != tt.want {
				t.Errorf("hasPlaceholder() = %v, want %v", got, tt.want)
			}
		})
	}
}
