package buildinfo

import "testing"

func TestShort(t *testing.T) {
	defer func(v, c string) { Version, Commit = v, c }(Version, Commit)

	Version, Commit = "dev", "unknown"
	if got := Short(); got != "dev" {
		t.Fatalf("Short() = %q, want %q", got, "dev")
	}
	Commit = "a1b2c3d"
	if got := Short(); got != "a1b2c3d" {
		t.Fatalf("Short() = %q, want commit", got)
	}
	Version = "v0.3.0"
	if got := Short(); got != "v0.3.0" {
		t.Fatalf("Short() = %q, want version", got)
	}
}

func TestLine(t *testing.T) {
	defer func(v, c, d string) { Version, Commit, Date = v, c, d }(Version, Commit, Date)

	Version, Commit, Date = "v0.3.0", "a1b2c3d", "2024-05-01"
	want := "pinewatch v0.3.0 (a1b2c3d, 2024-05-01)"
	if got := Line(); got != want {
		t.Fatalf("Line() = %q, want %q", got, want)
	}
}
