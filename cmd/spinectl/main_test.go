package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/tjpilant/idse-spine/internal/storage"
	"github.com/tjpilant/idse-spine/internal/storage/sqlite"
)

// setupTestStore opens a fresh on-disk database under a temp directory and
// points the package-level dbPath at it, mirroring the teacher's
// setupTestDB (cmd/bd/config_test.go).
func setupTestStore(t *testing.T) (*sqlite.Store, func()) {
	t.Helper()
	tmpDir, err := os.MkdirTemp("", "spinectl-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}

	dbPath = filepath.Join(tmpDir, "test.db")
	store, err := sqlite.Open(context.Background(), storage.Config{Path: dbPath})
	if err != nil {
		os.RemoveAll(tmpDir)
		t.Fatalf("failed to open test database: %v", err)
	}

	return store, func() {
		store.Close()
		os.RemoveAll(tmpDir)
	}
}

func TestProjectCreateAndShow(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	project, err := store.SaveProject(ctx, "demo", "go")
	if err != nil {
		t.Fatalf("SaveProject failed: %v", err)
	}
	if project.Name != "demo" || project.Stack != "go" {
		t.Errorf("unexpected project: %+v", project)
	}

	got, err := store.GetProject(ctx, "demo")
	if err != nil {
		t.Fatalf("GetProject failed: %v", err)
	}
	if got.ID != project.ID {
		t.Errorf("GetProject returned a different row: %+v vs %+v", got, project)
	}
}

func TestReadFileRegularPath(t *testing.T) {
	tmp, err := os.CreateTemp("", "spinectl-readfile-*")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.WriteString("hello\n"); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	tmp.Close()

	content, err := readFile(tmp.Name())
	if err != nil {
		t.Fatalf("readFile failed: %v", err)
	}
	if content != "hello\n" {
		t.Errorf("readFile() = %q, want %q", content, "hello\n")
	}
}

func TestParseID(t *testing.T) {
	cases := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"1", 1, false},
		{"42", 42, false},
		{"not-a-number", 0, true},
		{"", 0, true},
	}
	for _, tc := range cases {
		got, err := parseID(tc.in)
		if (err != nil) != tc.wantErr {
			t.Errorf("parseID(%q) error = %v, wantErr %v", tc.in, err, tc.wantErr)
			continue
		}
		if !tc.wantErr && got != tc.want {
			t.Errorf("parseID(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}
