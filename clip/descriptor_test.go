package clip

import (
	"strings"
	"testing"
)

func TestBuildConcatDescriptor(t *testing.T) {
	segments := []string{
		"/mnt/recordings/room1/seg-000.ts",
		"/mnt/recordings/room1/seg-001.ts",
		"/mnt/recordings/room1/seg-002.ts",
	}
	got := BuildConcatDescriptor(segments)
	lines := strings.Split(got, "\n")
	if len(lines) != len(segments) {
		t.Fatalf("descriptor has %d lines, want %d", len(lines), len(segments))
	}
	for i, seg := range segments {
		want := "file '" + seg + "'"
		if lines[i] != want {
			t.Errorf("line %d = %q, want %q", i, lines[i], want)
		}
	}
}

func TestBuildConcatDescriptorPreservesOrder(t *testing.T) {
	// Order is the caller's contract; nothing may be sorted or deduplicated.
	segments := []string{"/b.ts", "/a.ts", "/b.ts"}
	got := BuildConcatDescriptor(segments)
	want := "file '/b.ts'\nfile '/a.ts'\nfile '/b.ts'"
	if got != want {
		t.Fatalf("descriptor = %q, want %q", got, want)
	}
}

func TestBuildConcatDescriptorSingleSegment(t *testing.T) {
	got := BuildConcatDescriptor([]string{"/only.ts"})
	if got != "file '/only.ts'" {
		t.Fatalf("descriptor = %q", got)
	}
	if strings.HasSuffix(got, "\n") {
		t.Fatal("descriptor must not end with a blank line")
	}
}
