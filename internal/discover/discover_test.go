package discover

import (
	"os"
	"path/filepath"
	"testing"
)

func TestIsCandidate(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"tile.las", true},
		{"tile.LAS", true},
		{"tile.laz", true},
		{"tile.las.zst", true},
		{"tile.las.gz", false},
		{"tile.txt", false},
		{"las", false},
		{"notes.md", false},
	}
	for _, tt := range tests {
		if got := IsCandidate(tt.name); got != tt.want {
			t.Errorf("IsCandidate(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestExpand(t *testing.T) {
	dir := t.TempDir()

	touch := func(rel string) string {
		path := filepath.Join(dir, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
		return path
	}

	b := touch("b.las")
	a := touch("nested/a.las")
	z := touch("nested/deep/c.las.zst")
	touch("nested/readme.txt")

	got, err := Expand([]string{dir})
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("found %d files, want 3: %+v", len(got), got)
	}

	found := map[string]bool{}
	for _, f := range got {
		found[f.Path] = true
	}
	for _, p := range []string{a, b, z} {
		if !found[p] {
			t.Errorf("missing %s", p)
		}
	}

	// Sorted by path for stable batch ordering.
	for i := 1; i < len(got); i++ {
		if got[i-1].Path >= got[i].Path {
			t.Errorf("results not sorted: %q before %q", got[i-1].Path, got[i].Path)
		}
	}
	for _, f := range got {
		if f.Size != 1 {
			t.Errorf("size of %s = %d, want 1", f.Path, f.Size)
		}
	}
}

func TestExpand_FilePassthrough(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.bin")
	if err := os.WriteFile(path, []byte("xx"), 0o644); err != nil {
		t.Fatal(err)
	}

	// Named explicitly, a file is accepted regardless of extension.
	got, err := Expand([]string{path})
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(got) != 1 || got[0].Path != path || got[0].Size != 2 {
		t.Errorf("got %+v", got)
	}
}

func TestExpand_MissingArg(t *testing.T) {
	if _, err := Expand([]string{filepath.Join(t.TempDir(), "nope.las")}); err == nil {
		t.Error("expected error for missing argument")
	}
}
