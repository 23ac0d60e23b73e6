package version

import (
	"strings"
	"testing"
)

func TestFull(t *testing.T) {
	oldVersion, oldCommit := Version, Commit
	t.Cleanup(func() { Version, Commit = oldVersion, oldCommit })

	Version, Commit = "v0.3.0", "81f5be9"
	if got, want := Full(), "v0.3.0 (commit: 81f5be9)"; got != want {
		t.Errorf("Full() = %q, want %q", got, want)
	}
}

func TestInitFallback(t *testing.T) {
	// Test binaries carry no ldflags stamp, so init must have filled both.
	if Version == "" || Commit == "" {
		t.Fatalf("Version = %q, Commit = %q, want both set", Version, Commit)
	}
	if !strings.HasPrefix(Version, "dev-") && !strings.HasPrefix(Version, "v") {
		t.Errorf("Version = %q, want dev-<stamp> or a release tag", Version)
	}
}
