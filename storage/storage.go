// Package storage implements the content-addressed job store (spec.md 5,
// C5): committing a working directory into jobs/<uuid>/, checking out a
// committed job or a resolved dependency, and removing a committed job.
//
// Grounded on the teacher's registry/storage driver pattern (a narrow set
// of filesystem primitives backing a higher-level façade) but simplified
// to a single local filesystem backend, since spec.md 9 scopes remote
// storage drivers out.
package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/robinruff/r3/dependency"
	"github.com/robinruff/r3/internal/r3err"
	"github.com/robinruff/r3/internal/rcontext"
	"github.com/robinruff/r3/internal/uuid"
	"github.com/robinruff/r3/internal/yamlutil"
	"github.com/robinruff/r3/job"
	"github.com/robinruff/r3/scm"
	"github.com/robinruff/r3/version"
)

const (
	jobsDir      = "jobs"
	gitDir       = "git"
	manifestName = "r3.yaml"
	metadataName = "metadata.yaml"
	outputDir    = "output"
)

// manifestFile is the on-disk shape of a committed job's r3.yaml.
type manifestFile struct {
	Dependencies []dependency.RawConfig `yaml:"dependencies"`
	Ignore       []string               `yaml:"ignore,omitempty"`
	Hashes       map[string]string      `yaml:"hashes"`
}

// repositoryManifest is the on-disk shape of a repository's top-level
// r3.yaml (spec.md 6.1): its presence is what makes a directory a valid
// repository (spec.md 3.1).
type repositoryManifest struct {
	Version string `yaml:"version"`
}

// Storage is the content-addressed job store rooted at a repository's
// jobs/ directory.
type Storage struct {
	root string // repository root, jobs live at root/jobs
}

// Init creates path, path/git and path/jobs, and writes path/r3.yaml with
// the current format version (spec.md 4.5). path must not already exist.
func Init(path string) (*Storage, error) {
	if _, err := os.Stat(path); err == nil {
		return nil, r3err.Newf(r3err.PathExists, "path already exists: %s", path)
	}

	if err := os.MkdirAll(filepath.Join(path, jobsDir), 0o755); err != nil {
		return nil, r3err.Wrapf(r3err.IOError, err, "creating %s", path)
	}
	if err := os.MkdirAll(filepath.Join(path, gitDir), 0o755); err != nil {
		return nil, r3err.Wrapf(r3err.IOError, err, "creating %s", filepath.Join(path, gitDir))
	}

	manifest := repositoryManifest{Version: version.FormatVersion}
	if err := yamlutil.WriteFile(filepath.Join(path, manifestName), &manifest); err != nil {
		return nil, err
	}

	return &Storage{root: path}, nil
}

// Open opens an existing job store rooted at root, without creating
// anything. The caller (repository.Open) is responsible for verifying
// root is actually an r3 repository.
func Open(root string) *Storage {
	return &Storage{root: root}
}

// JobDir returns the absolute path of the committed job directory for id.
func (s *Storage) JobDir(id string) string {
	return filepath.Join(s.root, jobsDir, id)
}

// Contains reports whether a job with the given id is committed.
func (s *Storage) Contains(id string) bool {
	_, err := os.Stat(s.JobDir(id))
	return err == nil
}

// JobIDs lists every committed job id under jobs/, filtering out any
// directory entry that is not a well-formed UUID (spec.md 3.1).
func (s *Storage) JobIDs() ([]string, error) {
	dir := filepath.Join(s.root, jobsDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, r3err.Wrapf(r3err.IOError, err, "reading %s", dir)
	}

	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() && uuid.IsWellFormed(e.Name()) {
			ids = append(ids, e.Name())
		}
	}
	return ids, nil
}

// OpenJob loads the committed job with the given id.
func (s *Storage) OpenJob(ctx context.Context, id string) (*job.Job, error) {
	if !s.Contains(id) {
		return nil, r3err.Newf(r3err.NotFound, "no such job: %s", id)
	}
	return job.Open(ctx, s.JobDir(id), id)
}

// Add commits j: allocates a fresh UUIDv4, copies its files into
// jobs/<uuid>/, writes r3.yaml and metadata.yaml, and strips write
// permission from the whole tree (spec.md 4.5, 5 "Write protection").
// j's dependencies must already be resolved; Add does not resolve queries.
func (s *Storage) Add(ctx context.Context, j *job.Job) (*job.Job, error) {
	id := uuid.NewString()
	dest := s.JobDir(id)

	if err := os.MkdirAll(dest, 0o755); err != nil {
		return nil, r3err.Wrapf(r3err.IOError, err, "creating %s", dest)
	}

	for relPath, src := range j.Files() {
		if relPath == manifestName || relPath == metadataName {
			continue
		}
		rcontext.GetLogger(ctx).Debugf("copying %s", relPath)
		if err := copyFile(src, filepath.Join(dest, relPath)); err != nil {
			os.RemoveAll(dest)
			return nil, err
		}
	}

	if err := os.MkdirAll(filepath.Join(dest, outputDir), 0o755); err != nil {
		os.RemoveAll(dest)
		return nil, r3err.Wrapf(r3err.IOError, err, "creating %s", outputDir)
	}

	deps, ignore, hashes := j.Config()
	manifest := manifestFile{Dependencies: deps, Ignore: ignore, Hashes: hashes}
	if err := yamlutil.WriteFile(filepath.Join(dest, manifestName), &manifest); err != nil {
		os.RemoveAll(dest)
		return nil, err
	}
	if err := yamlutil.WriteFile(filepath.Join(dest, metadataName), j.MetadataRaw()); err != nil {
		os.RemoveAll(dest)
		return nil, err
	}

	if err := protect(dest); err != nil {
		return nil, err
	}

	committed, err := job.Open(ctx, dest, id)
	if err != nil {
		return nil, err
	}
	rcontext.GetLogger(ctx).Infof("committed job %s", id)
	return committed, nil
}

// Remove deletes the committed job with the given id, restoring write
// permission first so the tree can actually be unlinked.
func (s *Storage) Remove(ctx context.Context, id string) error {
	dir := s.JobDir(id)
	if !s.Contains(id) {
		return r3err.Newf(r3err.NotFound, "no such job: %s", id)
	}
	if err := unprotect(dir); err != nil {
		return err
	}
	if err := os.RemoveAll(dir); err != nil {
		return r3err.Wrapf(r3err.IOError, err, "removing %s", dir)
	}
	rcontext.GetLogger(ctx).Infof("removed job %s", id)
	return nil
}

// Checkout materialises a resolved Dependency (or a bare committed job, via
// dependency.NewJobDep(id, ".", "")) at destRoot/d.Destination(). Job
// content is symlinked (spec.md 5 "Checkout": "dependencies... and a job's
// own output/ directory are symlinked; everything else is copied"); git
// dependencies are materialised by the scm package since a git mirror
// cannot be symlinked into piecemeal.
func (s *Storage) Checkout(ctx context.Context, d dependency.Dependency, destRoot string) error {
	dest := filepath.Join(destRoot, filepath.FromSlash(d.Destination()))

	switch v := d.(type) {
	case *dependency.JobDep:
		return s.checkoutJobDep(ctx, v, dest)
	case *dependency.GitDep:
		return s.checkoutGitDep(ctx, v, dest)
	default:
		return r3err.Newf(r3err.IOError, "cannot check out unresolved dependency %T", d)
	}
}

func (s *Storage) checkoutJobDep(ctx context.Context, d *dependency.JobDep, dest string) error {
	if !s.Contains(d.Job) {
		return r3err.Newf(r3err.MissingDependency, "dependency job %s is not committed", d.Job)
	}

	src := s.JobDir(d.Job)
	if d.Src != "" && d.Src != "." {
		src = filepath.Join(src, filepath.FromSlash(d.Src))
	}

	if _, err := os.Stat(src); err != nil {
		return r3err.Wrapf(r3err.MissingDependency, err, "dependency source %s", src)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return r3err.Wrapf(r3err.IOError, err, "creating %s", filepath.Dir(dest))
	}

	rcontext.GetLogger(ctx).Debugf("symlinking %s -> %s", dest, src)
	if err := os.Symlink(src, dest); err != nil {
		return r3err.Wrapf(r3err.IOError, err, "symlinking %s", dest)
	}
	return nil
}

func (s *Storage) checkoutGitDep(ctx context.Context, d *dependency.GitDep, dest string) error {
	repoPath, err := d.RepositoryPath()
	if err != nil {
		return err
	}
	mirrorDir := filepath.Join(s.root, repoPath)

	rcontext.GetLogger(ctx).Debugf("checking out %s@%s into %s", repoPath, d.Commit, dest)
	if err := scm.CheckoutSubpath(mirrorDir, d.Commit, d.Src, dest); err != nil {
		return err
	}
	return nil
}

// CheckoutJob materialises a whole committed job at dest: its own files
// are copied, its declared output/ directory and every dependency are
// symlinked (spec.md 5).
func (s *Storage) CheckoutJob(ctx context.Context, j *job.Job, dest string) error {
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return r3err.Wrapf(r3err.IOError, err, "creating %s", dest)
	}

	for relPath, src := range j.Files() {
		if relPath == manifestName || relPath == metadataName {
			continue
		}
		rcontext.GetLogger(ctx).Debugf("copying %s", relPath)
		if err := copyFile(src, filepath.Join(dest, relPath)); err != nil {
			return err
		}
	}

	for _, d := range j.Dependencies() {
		if err := s.Checkout(ctx, d, dest); err != nil {
			return err
		}
	}

	outputSrc := filepath.Join(j.Root(), outputDir)
	if info, err := os.Stat(outputSrc); err == nil && info.IsDir() {
		if err := os.Symlink(outputSrc, filepath.Join(dest, outputDir)); err != nil {
			return r3err.Wrapf(r3err.IOError, err, "symlinking %s", outputDir)
		}
	}

	return nil
}

func copyFile(src, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return r3err.Wrapf(r3err.IOError, err, "creating %s", filepath.Dir(dest))
	}

	in, err := os.Open(src)
	if err != nil {
		return r3err.Wrapf(r3err.IOError, err, "opening %s", src)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return r3err.Wrapf(r3err.IOError, err, "stat %s", src)
	}

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return r3err.Wrapf(r3err.IOError, err, "creating %s", dest)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return r3err.Wrapf(r3err.IOError, err, "copying %s to %s", src, dest)
	}
	return nil
}

// protect strips write permission from every file and directory under
// dir, so a committed job's content is immutable on disk (spec.md 5).
func protect(dir string) error {
	return chmodTree(dir, func(mode os.FileMode) os.FileMode {
		return mode &^ 0o222
	})
}

// unprotect restores owner write permission, so Storage.Remove can unlink
// the tree.
func unprotect(dir string) error {
	return chmodTree(dir, func(mode os.FileMode) os.FileMode {
		return mode | 0o200
	})
}

func chmodTree(dir string, transform func(os.FileMode) os.FileMode) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.Mode()&os.ModeSymlink != 0 {
			return nil
		}
		return os.Chmod(path, transform(info.Mode()))
	})
}
