package version

import (
	"strings"
	"testing"
)

func TestVersionStringNonEmpty(t *testing.T) {
	if s := String(); s == "" {
		t.Fatalf("version string is empty")
	}
}

func TestVersionStringIncludesCommit(t *testing.T) {
	prev := Commit
	Commit = "deadbeef"
	defer func() { Commit = prev }()
	if s := String(); !strings.Contains(s, "deadbeef") || !strings.Contains(s, Version) {
		t.Fatalf("unexpected version string: %q", s)
	}
}
