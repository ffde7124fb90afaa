package upload

import (
	"os"
	"path/filepath"
	"testing"
)

func TestStateDBRoundTrip(t *testing.T) {
	state, err := OpenStateDB(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer state.Close()

	uploaded, err := state.IsUploaded("exports/jan.csv", 100, 1700000000)
	if err != nil {
		t.Fatal(err)
	}
	if uploaded {
		t.Error("fresh db reports file as uploaded")
	}

	if err := state.MarkUploaded("exports/jan.csv", 100, 1700000000, "abc123"); err != nil {
		t.Fatal(err)
	}

	uploaded, err = state.IsUploaded("exports/jan.csv", 100, 1700000000)
	if err != nil {
		t.Fatal(err)
	}
	if !uploaded {
		t.Error("marked file not reported as uploaded")
	}

	// Changed mtime misses the fast path
	uploaded, err = state.IsUploaded("exports/jan.csv", 100, 1700009999)
	if err != nil {
		t.Fatal(err)
	}
	if uploaded {
		t.Error("file with new mtime reported as uploaded")
	}

	// but the content hash still matches
	same, err := state.HasHash("exports/jan.csv", "abc123")
	if err != nil {
		t.Fatal(err)
	}
	if !same {
		t.Error("HasHash = false for recorded hash")
	}

	same, err = state.HasHash("exports/jan.csv", "def456")
	if err != nil {
		t.Fatal(err)
	}
	if same {
		t.Error("HasHash = true for different hash")
	}
}

func TestMarkUploadedReplaces(t *testing.T) {
	state, err := OpenStateDB(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer state.Close()

	if err := state.MarkUploaded("a.csv", 10, 1, "h1"); err != nil {
		t.Fatal(err)
	}
	if err := state.MarkUploaded("a.csv", 20, 2, "h2"); err != nil {
		t.Fatal(err)
	}

	uploaded, err := state.IsUploaded("a.csv", 10, 1)
	if err != nil {
		t.Fatal(err)
	}
	if uploaded {
		t.Error("old record survived replacement")
	}

	uploaded, err = state.IsUploaded("a.csv", 20, 2)
	if err != nil {
		t.Fatal(err)
	}
	if !uploaded {
		t.Error("replacement record not found")
	}
}

func TestHashFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.csv")
	if err := os.WriteFile(path, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := HashFile(path)
	if err != nil {
		t.Fatal(err)
	}
	// sha256("hello")
	want := "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"
	if got != want {
		t.Errorf("HashFile = %s, want %s", got, want)
	}
}
