package fileutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCopyFileVerified(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.mp4")
	dst := filepath.Join(dir, "dst.mp4")

	content := []byte("verified content")
	if err := os.WriteFile(src, content, 0o600); err != nil {
		t.Fatal(err)
	}
	if err := CopyFileVerified(src, dst); err != nil {
		t.Fatalf("CopyFileVerified: %v", err)
	}
	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(content) {
		t.Fatalf("content mismatch: got %q, want %q", got, content)
	}
	info, err := os.Stat(dst)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o644 {
		t.Fatalf("mode = %v, want 0644", info.Mode().Perm())
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 2 {
		t.Fatalf("expected no leftover temp files, got %d entries", len(entries))
	}
}

func TestCopyFileVerifiedMissingSource(t *testing.T) {
	dir := t.TempDir()
	if err := CopyFileVerified(filepath.Join(dir, "nope"), filepath.Join(dir, "dst")); err == nil {
		t.Fatal("expected error for missing source")
	}
	if _, err := os.Stat(filepath.Join(dir, "dst")); !os.IsNotExist(err) {
		t.Fatal("dst should not exist after failed copy")
	}
}

func TestCopyFileVerifiedRejectsDirectory(t *testing.T) {
	dir := t.TempDir()
	if err := CopyFileVerified(dir, filepath.Join(dir, "dst")); err == nil {
		t.Fatal("expected error for directory source")
	}
}

func TestImportFileAvoidsOverwrite(t *testing.T) {
	srcDir := t.TempDir()
	mediaDir := filepath.Join(t.TempDir(), "media")
	src := filepath.Join(srcDir, "clip.mp4")
	if err := os.WriteFile(src, []byte("one"), 0o644); err != nil {
		t.Fatal(err)
	}

	first, err := ImportFile(src, mediaDir)
	if err != nil {
		t.Fatalf("ImportFile: %v", err)
	}
	second, err := ImportFile(src, mediaDir)
	if err != nil {
		t.Fatalf("ImportFile second: %v", err)
	}
	if first != filepath.Join(mediaDir, "clip.mp4") {
		t.Fatalf("first = %q", first)
	}
	if second != filepath.Join(mediaDir, "clip-1.mp4") {
		t.Fatalf("second = %q", second)
	}
}

func TestIsWithin(t *testing.T) {
	cases := []struct {
		root, path string
		want       bool
	}{
		{"/media", "/media/a.mp4", true},
		{"/media", "/media/sub/a.mp4", true},
		{"/media", "/media", false},
		{"/media", "/mediaextra/a.mp4", false},
		{"/media", "/media/../etc/passwd", false},
		{"", "/media/a.mp4", false},
	}
	for _, tc := range cases {
		if got := IsWithin(tc.root, tc.path); got != tc.want {
			t.Fatalf("IsWithin(%q, %q) = %v, want %v", tc.root, tc.path, got, tc.want)
		}
	}
}
