package version

import (
	"testing"

	"github.com/fatih/color"
)

func withBuildInfo(t *testing.T, v, commit, date string) {
	t.Helper()
	origVersion, origCommit, origDate := Version, GitCommit, BuildDate
	origNoColor := color.NoColor
	Version, GitCommit, BuildDate = v, commit, date
	color.NoColor = true
	t.Cleanup(func() {
		Version, GitCommit, BuildDate = origVersion, origCommit, origDate
		color.NoColor = origNoColor
	})
}

func TestVersion_DefaultValues(t *testing.T) {
	if Version == "" {
		t.Error("Version should have a default value")
	}
}

func TestString(t *testing.T) {
	tests := []struct {
		name    string
		version string
		commit  string
		date    string
		want    string
	}{
		{"bare", "1.2.3", "", "", "outmux 1.2.3"},
		{"commit", "1.2.3", "abc123", "", "outmux 1.2.3 (commit abc123)"},
		{"long commit", "1.2.3", "1234567890abcdef1234567890abcdef12345678", "", "outmux 1.2.3 (commit 1234567890ab)"},
		{"full", "0.3.0-rc.1", "abc123", "2026-01-15T10:30:00Z", "outmux 0.3.0-rc.1 (commit abc123, built 2026-01-15T10:30:00Z)"},
		{"date only", "0.3.0", "", "20260115", "outmux 0.3.0 (built 20260115)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withBuildInfo(t, tt.version, tt.commit, tt.date)
			if got := String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func BenchmarkString(b *testing.B) {
	color.NoColor = true
	for i := 0; i < b.N; i++ {
		_ = String()
	}
}
