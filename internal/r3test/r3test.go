// Package r3test provides small fixture builders for the repository tests,
// the way the teacher's testutil package provides CreateRandomTarFile and
// friends for registry tests. It imports repository (and through it storage
// and index), so the in-package storage and index tests do not use it.
package r3test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/robinruff/r3/dependency"
	"github.com/robinruff/r3/internal/yamlutil"
	"github.com/robinruff/r3/repository"
)

// NewTempRepository initialises a fresh repository under t.TempDir() and
// returns it opened, failing the test on any error.
func NewTempRepository(t *testing.T) (*repository.Repository, string) {
	t.Helper()

	root := filepath.Join(t.TempDir(), "repo")
	if _, err := repository.Init(root); err != nil {
		t.Fatalf("repository.Init(%s): %v", root, err)
	}

	repo, err := repository.Open(root)
	if err != nil {
		t.Fatalf("repository.Open(%s): %v", root, err)
	}
	return repo, root
}

// Manifest is the on-disk shape of a job's r3.yaml, mirroring job.config's
// yaml tags so WriteJob can build one without importing the job package's
// unexported type.
type Manifest struct {
	Dependencies []dependency.RawConfig `yaml:"dependencies"`
	Ignore       []string               `yaml:"ignore,omitempty"`
}

// WriteJob materialises an uncommitted job directory under dir/name: the
// given files (relative path -> content), an r3.yaml built from manifest,
// and an empty output/ directory. It returns the job's root path.
func WriteJob(t *testing.T, dir, name string, files map[string]string, manifest Manifest) string {
	t.Helper()

	root := filepath.Join(dir, name)
	if err := os.MkdirAll(root, 0o755); err != nil {
		t.Fatalf("creating job root %s: %v", root, err)
	}

	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("creating %s: %v", filepath.Dir(path), err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("writing %s: %v", path, err)
		}
	}

	if err := os.MkdirAll(filepath.Join(root, "output"), 0o755); err != nil {
		t.Fatalf("creating output/: %v", err)
	}

	if manifest.Dependencies == nil {
		manifest.Dependencies = []dependency.RawConfig{}
	}
	if err := yamlutil.WriteFile(filepath.Join(root, "r3.yaml"), &manifest); err != nil {
		t.Fatalf("writing r3.yaml: %v", err)
	}

	return root
}
