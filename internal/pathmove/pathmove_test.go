package pathmove

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestMoveNoCollision(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	orig := filepath.Join(src, "orig.mp4")
	writeFile(t, orig, "data")

	name, err := Move(orig, dst, "movie.mp4")
	if err != nil {
		t.Fatalf("Move: %v", err)
	}
	if name != "movie.mp4" {
		t.Errorf("got name %q, want movie.mp4", name)
	}
	if _, err := os.Stat(filepath.Join(dst, "movie.mp4")); err != nil {
		t.Errorf("destination missing: %v", err)
	}
	if _, err := os.Stat(orig); !os.IsNotExist(err) {
		t.Errorf("source should no longer exist")
	}
}

func TestMoveCollisionSuffixesIncrementally(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()

	writeFile(t, filepath.Join(dst, "movie.mp4"), "existing")
	writeFile(t, filepath.Join(dst, "movie-001.mp4"), "existing")

	orig := filepath.Join(src, "new.mp4")
	writeFile(t, orig, "new data")

	name, err := Move(orig, dst, "movie.mp4")
	if err != nil {
		t.Fatalf("Move: %v", err)
	}
	if name != "movie-002.mp4" {
		t.Errorf("got name %q, want movie-002.mp4", name)
	}
}

func TestCopyDirNoCollision(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	writeFile(t, filepath.Join(src, "a.txt"), "a")
	os.MkdirAll(filepath.Join(src, "sub"), 0o755)
	writeFile(t, filepath.Join(src, "sub", "b.txt"), "b")

	name, err := CopyDir(src, dst, "proj")
	if err != nil {
		t.Fatalf("CopyDir: %v", err)
	}
	if name != "proj" {
		t.Errorf("got name %q, want proj", name)
	}
	if _, err := os.Stat(filepath.Join(dst, "proj", "sub", "b.txt")); err != nil {
		t.Errorf("copied file missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(src, "a.txt")); err != nil {
		t.Errorf("source should still exist after copy: %v", err)
	}
}

func TestCopyDirCollisionSuffixes(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	writeFile(t, filepath.Join(src, "a.txt"), "a")
	os.MkdirAll(filepath.Join(dst, "proj"), 0o755)

	name, err := CopyDir(src, dst, "proj")
	if err != nil {
		t.Fatalf("CopyDir: %v", err)
	}
	if name != "proj-001" {
		t.Errorf("got name %q, want proj-001", name)
	}
}
