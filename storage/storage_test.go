package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/robinruff/r3/internal/r3err"
	"github.com/robinruff/r3/job"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestInitCreatesLayout(t *testing.T) {
	root := filepath.Join(t.TempDir(), "repo")

	if _, err := Init(root); err != nil {
		t.Fatal(err)
	}

	for _, want := range []string{"r3.yaml", jobsDir, gitDir} {
		if _, err := os.Stat(filepath.Join(root, want)); err != nil {
			t.Fatalf("expected %s to exist: %v", want, err)
		}
	}
}

func TestInitRejectsExistingPath(t *testing.T) {
	root := filepath.Join(t.TempDir(), "repo")
	if _, err := Init(root); err != nil {
		t.Fatal(err)
	}

	if _, err := Init(root); !r3err.Is(err, r3err.PathExists) {
		t.Fatalf("expected PathExists, got %v", err)
	}
}

func TestAddCreatesOutputDirAndProtectsTree(t *testing.T) {
	root := filepath.Join(t.TempDir(), "repo")
	if _, err := Init(root); err != nil {
		t.Fatal(err)
	}
	s := Open(root)

	jobRoot := filepath.Join(t.TempDir(), "job")
	writeFile(t, filepath.Join(jobRoot, "a.txt"), "hello")
	writeFile(t, filepath.Join(jobRoot, "r3.yaml"), "dependencies: []\nignore: []\n")
	if err := os.MkdirAll(filepath.Join(jobRoot, "output"), 0o755); err != nil {
		t.Fatal(err)
	}

	j, err := job.Open(context.Background(), jobRoot, "")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := j.Hash(true); err != nil {
		t.Fatal(err)
	}

	committed, err := s.Add(context.Background(), j)
	if err != nil {
		t.Fatal(err)
	}

	dest := s.JobDir(committed.ID())
	if info, err := os.Stat(filepath.Join(dest, "output")); err != nil || !info.IsDir() {
		t.Fatalf("expected output/ directory in committed job, err=%v", err)
	}

	info, err := os.Stat(filepath.Join(dest, "a.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm()&0o222 != 0 {
		t.Fatalf("expected committed file to be write-protected, got mode %v", info.Mode())
	}
}

func TestAddWritesManifestAndMetadata(t *testing.T) {
	root := filepath.Join(t.TempDir(), "repo")
	if _, err := Init(root); err != nil {
		t.Fatal(err)
	}
	s := Open(root)

	jobRoot := filepath.Join(t.TempDir(), "job")
	writeFile(t, filepath.Join(jobRoot, "a.txt"), "hello")
	if err := os.MkdirAll(filepath.Join(jobRoot, "output"), 0o755); err != nil {
		t.Fatal(err)
	}

	j, err := job.Open(context.Background(), jobRoot, "")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := j.Hash(true); err != nil {
		t.Fatal(err)
	}

	committed, err := s.Add(context.Background(), j)
	if err != nil {
		t.Fatal(err)
	}

	dest := s.JobDir(committed.ID())
	if _, err := os.Stat(filepath.Join(dest, "r3.yaml")); err != nil {
		t.Fatalf("expected r3.yaml to be written by Add itself: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dest, "metadata.yaml")); err != nil {
		t.Fatalf("expected metadata.yaml to be written by Add itself: %v", err)
	}
}

func TestRemoveUnprotectsBeforeDeleting(t *testing.T) {
	root := filepath.Join(t.TempDir(), "repo")
	if _, err := Init(root); err != nil {
		t.Fatal(err)
	}
	s := Open(root)

	jobRoot := filepath.Join(t.TempDir(), "job")
	writeFile(t, filepath.Join(jobRoot, "a.txt"), "hello")
	if err := os.MkdirAll(filepath.Join(jobRoot, "output"), 0o755); err != nil {
		t.Fatal(err)
	}

	j, err := job.Open(context.Background(), jobRoot, "")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := j.Hash(true); err != nil {
		t.Fatal(err)
	}
	committed, err := s.Add(context.Background(), j)
	if err != nil {
		t.Fatal(err)
	}

	if err := s.Remove(context.Background(), committed.ID()); err != nil {
		t.Fatal(err)
	}
	if s.Contains(committed.ID()) {
		t.Fatal("expected job to be removed")
	}
}

func TestRemoveMissingJobErrors(t *testing.T) {
	root := filepath.Join(t.TempDir(), "repo")
	if _, err := Init(root); err != nil {
		t.Fatal(err)
	}
	s := Open(root)

	if err := s.Remove(context.Background(), "00000000-0000-4000-8000-000000000000"); !r3err.Is(err, r3err.NotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestCheckoutJobCopiesFilesAndSymlinksOutput(t *testing.T) {
	root := filepath.Join(t.TempDir(), "repo")
	if _, err := Init(root); err != nil {
		t.Fatal(err)
	}
	s := Open(root)

	jobRoot := filepath.Join(t.TempDir(), "job")
	writeFile(t, filepath.Join(jobRoot, "a.txt"), "hello")
	if err := os.MkdirAll(filepath.Join(jobRoot, "output"), 0o755); err != nil {
		t.Fatal(err)
	}

	j, err := job.Open(context.Background(), jobRoot, "")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := j.Hash(true); err != nil {
		t.Fatal(err)
	}
	committed, err := s.Add(context.Background(), j)
	if err != nil {
		t.Fatal(err)
	}

	reopened, err := s.OpenJob(context.Background(), committed.ID())
	if err != nil {
		t.Fatal(err)
	}

	dest := filepath.Join(t.TempDir(), "checkout")
	if err := s.CheckoutJob(context.Background(), reopened, dest); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(dest, "a.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "hello" {
		t.Fatalf("got %q", data)
	}

	info, err := os.Lstat(filepath.Join(dest, "output"))
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode()&os.ModeSymlink == 0 {
		t.Fatal("expected output/ to be a symlink at checkout")
	}
}
