package buildinfo

import "testing"

func stamp(t *testing.T, version, commit, date string) {
	t.Helper()
	v, c, d := Version, Commit, Date
	t.Cleanup(func() { Version, Commit, Date = v, c, d })
	Version, Commit, Date = version, commit, date
}

func TestShortPrefersVersion(t *testing.T) {
	stamp(t, "v1.2.0", "abc123", "unknown")
	if got := Short(); got != "v1.2.0" {
		t.Fatalf("Short = %q", got)
	}
	stamp(t, "dev", "abc123", "unknown")
	if got := Short(); got != "abc123" {
		t.Fatalf("Short = %q", got)
	}
	stamp(t, "dev", "unknown", "unknown")
	if got := Short(); got != "dev" {
		t.Fatalf("Short = %q", got)
	}
}

func TestString(t *testing.T) {
	stamp(t, "v1.2.0", "abc123", "2026-10-01")
	if got, want := String(), "v1.2.0 (abc123, 2026-10-01)"; got != want {
		t.Fatalf("String = %q, want %q", got, want)
	}
	stamp(t, "dev", "unknown", "2026-10-01")
	if got, want := String(), "dev"; got != want {
		t.Fatalf("String = %q, want %q", got, want)
	}
}
