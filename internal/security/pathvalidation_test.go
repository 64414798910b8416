package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateArtifactName(t *testing.T) {
	tests := []struct {
		name      string
		artifact  string
		wantError bool
	}{
		{name: "plain", artifact: "starts_array.png"},
		{name: "nested", artifact: "strata/grade06_angle08_starts_heatmap.png"},
		{name: "empty", artifact: "", wantError: true},
		{name: "absolute", artifact: "/etc/passwd", wantError: true},
		{name: "traversal", artifact: "../outside.png", wantError: true},
		{name: "inner traversal", artifact: "strata/../../x.png", wantError: true},
		{name: "space", artifact: "hold summary.json", wantError: true},
		{name: "emoji", artifact: "🌙.png", wantError: true},
		{name: "hidden", artifact: ".manifest.json", wantError: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateArtifactName(tt.artifact)
			if tt.wantError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"":                     "unknown",
		"starts_array.png":     "starts_array.png",
		"Moon 🌙 crimp":         "Moon_crimp",
		"../../etc/passwd":     "etc_passwd",
		"___":                  "unknown",
		"grade 6a+ @ 40°":      "grade_6a_40",
		"already-safe.v2.json": "already-safe.v2.json",
	}
	for in, want := range tests {
		assert.Equal(t, want, SanitizeFilename(in), "input %q", in)
	}
}
