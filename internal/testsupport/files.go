package testsupport

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// SRT renders n numbered cues one second apart. Cue i (1-based) carries the
// text "line i".
func SRT(n int) string {
	var b strings.Builder
	for i := 1; i <= n; i++ {
		start := i - 1
		fmt.Fprintf(&b, "%d\n00:00:%02d,000 --> 00:00:%02d,500\nline %d\n\n", i, start%60, start%60, i)
	}
	return b.String()
}

// WriteFile writes content to dir/name, creating dir as needed, and returns
// the full path.
func WriteFile(t testing.TB, dir, name, content string) string {
	t.Helper()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// ReadFile returns the contents of path or fails the test.
func ReadFile(t testing.TB, path string) string {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}
