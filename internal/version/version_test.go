package version

import (
	"testing"

	"github.com/fatih/color"
)

func TestBannerKeepsVersionText(t *testing.T) {
	saved := color.NoColor
	color.NoColor = true
	defer func() { color.NoColor = saved }()

	origVersion := Version
	defer func() { Version = origVersion }()

	tests := []string{
		"0.1.0-dev",
		"1.2.3",
		"1.0.0-beta.1",
		"2",
	}
	for _, v := range tests {
		Version = v
		if got := Banner(); got != v {
			t.Errorf("Banner() = %q, want %q", got, v)
		}
	}
}

func TestCurrent_CanBeOverridden(t *testing.T) {
	origVersion, origCommit, origDate := Version, GitCommit, BuildDate
	defer func() { Version, GitCommit, BuildDate = origVersion, origCommit, origDate }()

	// Simulate build-time ldflags.
	Version = "1.2.3"
	GitCommit = "abc123def456"
	BuildDate = "2024-01-15T10:30:00Z"

	want := Info{Version: "1.2.3", GitCommit: "abc123def456", BuildDate: "2024-01-15T10:30:00Z"}
	if got := Current(); got != want {
		t.Errorf("Current() = %+v, want %+v", got, want)
	}
}
