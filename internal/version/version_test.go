package version

import (
	"strings"
	"testing"
)

func TestString(t *testing.T) {
	t.Run("custom values", func(t *testing.T) {
		origVersion, origCommit := Version, Commit
		defer func() {
			Version, Commit = origVersion, origCommit
		}()

		Version = "1.2.3"
		Commit = "abc1234"

		if got, want := String(), "1.2.3 (abc1234)"; got != want {
			t.Errorf("String() = %q, want %q", got, want)
		}
	})

	t.Run("format validation", func(t *testing.T) {
		result := String()
		if !strings.Contains(result, "(") || !strings.Contains(result, ")") {
			t.Errorf("String() = %q, should contain parentheses", result)
		}
	})
}

func TestUserAgent(t *testing.T) {
	origVersion := Version
	defer func() { Version = origVersion }()

	Version = "0.4.0"
	if got, want := UserAgent(), "persistent-ws/0.4.0"; got != want {
		t.Errorf("UserAgent() = %q, want %q", got, want)
	}
}

func TestDefaultValues(t *testing.T) {
	// These might be overwritten by ldflags in production builds
	if Version == "" {
		t.Error("Version should not be empty")
	}
	if Commit == "" {
		t.Error("Commit should not be empty")
	}
}
