// Package repository is the r3 façade (spec.md 4, C7): it composes
// storage and index into the commit/checkout/remove/find/resolve
// operations the CLI exposes, the way the teacher's distribution.Namespace
// composes a storage driver and a registry to provide Repository/Manifests/
// Tags.
package repository

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/robinruff/r3/dependency"
	"github.com/robinruff/r3/index"
	"github.com/robinruff/r3/internal/r3err"
	"github.com/robinruff/r3/internal/rcontext"
	"github.com/robinruff/r3/job"
	"github.com/robinruff/r3/scm"
	"github.com/robinruff/r3/storage"
)

// Repository is a committed job store plus its denormalised index, rooted
// at a single directory on disk.
type Repository struct {
	root    string
	storage *storage.Storage
	index   *index.Index
}

// Init creates a new, empty repository at path (spec.md 4.7: "create
// parent directory if needed; run storage.init"). path itself must not
// already exist; storage.Init enforces that (PathExists).
func Init(path string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, r3err.Wrapf(r3err.IOError, err, "creating %s", filepath.Dir(path))
	}

	st, err := storage.Init(path)
	if err != nil {
		return nil, err
	}
	idx, err := index.Init(path)
	if err != nil {
		return nil, err
	}

	return &Repository{root: path, storage: st, index: idx}, nil
}

// Open opens an existing repository rooted at path: a directory
// containing r3.yaml (spec.md 3.1).
func Open(path string) (*Repository, error) {
	if _, err := os.Stat(filepath.Join(path, "r3.yaml")); err != nil {
		return nil, r3err.Wrapf(r3err.NotARepository, err, "not an r3 repository: %s", path)
	}

	idx, err := index.Open(path)
	if err != nil {
		return nil, err
	}

	return &Repository{root: path, storage: storage.Open(path), index: idx}, nil
}

// Root returns the repository's root directory.
func (r *Repository) Root() string { return r.root }

// Commit resolves every query dependency of the working-directory job
// rooted at jobRoot against this repository, verifies every resolved
// dependency actually exists, recomputes the job hash, and stores the
// result as a new committed job (spec.md 4.5).
func (r *Repository) Commit(ctx context.Context, jobRoot string) (*job.Job, error) {
	j, err := job.Open(ctx, jobRoot, "")
	if err != nil {
		return nil, err
	}

	resolved, err := r.resolveAll(j.Dependencies())
	if err != nil {
		return nil, err
	}
	j.SetDependencies(resolved)

	if err := r.verifyDependencies(resolved); err != nil {
		return nil, err
	}

	if overwritten := j.SetCommittedAt(time.Now().UTC()); overwritten {
		rcontext.GetLogger(ctx).Warn("overwriting existing committed_at metadata")
	}

	if _, err := j.Hash(true); err != nil {
		return nil, err
	}

	committed, err := r.storage.Add(ctx, j)
	if err != nil {
		return nil, err
	}

	if err := r.index.Add(ctx, committed); err != nil {
		return nil, err
	}

	return committed, nil
}

// verifyDependencies checks that every resolved JobDep/GitDep dependency
// actually exists, per spec.md 4.5 step 2 ("Verify each resolved
// dependency exists").
func (r *Repository) verifyDependencies(deps []dependency.Dependency) error {
	for _, d := range deps {
		switch v := d.(type) {
		case *dependency.JobDep:
			if !r.storage.Contains(v.Job) {
				return r3err.Newf(r3err.MissingDependency, "dependency job %s is not committed", v.Job)
			}
		case *dependency.GitDep:
			repoPath, err := v.RepositoryPath()
			if err != nil {
				return err
			}
			exists, err := pathExistsInMirror(filepath.Join(r.root, repoPath), v.Commit, v.Src)
			if err != nil {
				return err
			}
			if !exists {
				return r3err.Newf(r3err.MissingDependency, "git dependency %s@%s/%s not found", v.Repository, v.Commit, v.Src)
			}
		}
	}
	return nil
}

// resolveAll replaces every QueryDep/QueryAllDep in deps with the JobDep(s)
// it resolves to, leaving already-resolved dependencies untouched (spec.md
// 4.7 "Query resolution rules").
func (r *Repository) resolveAll(deps []dependency.Dependency) ([]dependency.Dependency, error) {
	resolved := make([]dependency.Dependency, 0, len(deps))

	for _, d := range deps {
		switch v := d.(type) {
		case *dependency.QueryDep:
			tags, err := dependency.ParseQuery(v.Query)
			if err != nil {
				return nil, err
			}
			ids, err := r.index.Find(tags, true)
			if err != nil {
				return nil, err
			}
			if len(ids) == 0 {
				return nil, r3err.Newf(r3err.Unresolvable, "no job matches query: %s", v.Query)
			}
			jd := dependency.NewJobDep(ids[0], v.Dest, v.Src)
			jd.Query = v.Query
			resolved = append(resolved, jd)

		case *dependency.QueryAllDep:
			tags, err := dependency.ParseQuery(v.QueryAll)
			if err != nil {
				return nil, err
			}
			ids, err := r.index.Find(tags, false)
			if err != nil {
				return nil, err
			}
			if len(ids) == 0 {
				return nil, r3err.Newf(r3err.Unresolvable, "no job matches query: %s", v.QueryAll)
			}
			// Later generation behaviour (spec.md 9): every match gets its
			// own JobDep with the destination suffixed by /<job_id>, even
			// when there is exactly one match.
			for _, id := range ids {
				jd := dependency.NewJobDep(id, filepath.ToSlash(filepath.Join(v.Dest, id)), "")
				jd.QueryAll = v.QueryAll
				resolved = append(resolved, jd)
			}

		default:
			resolved = append(resolved, d)
		}
	}

	return resolved, nil
}

// Checkout materialises the whole committed job id at dest (spec.md 4.6).
// It always checks out the job root; a single file or subtree of a job is
// checked out through CheckoutDependency with a JobDep instead.
func (r *Repository) Checkout(ctx context.Context, id, dest string) error {
	j, err := r.storage.OpenJob(ctx, id)
	if err != nil {
		return err
	}
	return r.storage.CheckoutJob(ctx, j, dest)
}

// CheckoutDependency resolves d (a no-op for an already-resolved JobDep or
// GitDep) and checks out the result at dest: a single item for JobDep,
// GitDep or QueryDep, or one per match for QueryAllDep (spec.md 4.7,
// "checkout(item, path): resolve; if result is a list, checkout each;
// else checkout the single item").
func (r *Repository) CheckoutDependency(ctx context.Context, d dependency.Dependency, dest string) error {
	resolved, err := r.resolveAll([]dependency.Dependency{d})
	if err != nil {
		return err
	}
	for _, rd := range resolved {
		if err := r.storage.Checkout(ctx, rd, dest); err != nil {
			return err
		}
	}
	return nil
}

// Remove deletes the committed job id, refusing if any other committed job
// depends on it (spec.md 4.6, HasDependents).
func (r *Repository) Remove(ctx context.Context, id string) error {
	if !r.storage.Contains(id) {
		return r3err.Newf(r3err.NotFound, "no such job: %s", id)
	}

	dependents := r.index.FindDependents(id)
	if len(dependents) > 0 {
		return &r3err.Error{
			Kind:         r3err.HasDependents,
			Message:      "job has dependents",
			DependentIDs: dependents,
		}
	}

	if err := r.storage.Remove(ctx, id); err != nil {
		return err
	}
	return r.index.Remove(ctx, id)
}

// Find returns the ids of every committed job whose tags match, oldest
// first (or just the latest, if latest is true).
func (r *Repository) Find(tags []string, latest bool) ([]string, error) {
	return r.index.Find(tags, latest)
}

// Contains reports whether id names a committed job.
func (r *Repository) Contains(id string) bool {
	return r.storage.Contains(id)
}

// OpenJob loads the committed job with the given id.
func (r *Repository) OpenJob(ctx context.Context, id string) (*job.Job, error) {
	return r.storage.OpenJob(ctx, id)
}

// RebuildIndex recomputes index.yaml from the jobs actually committed on
// disk, discarding whatever index state existed before (spec.md 6.5).
func (r *Repository) RebuildIndex(ctx context.Context) error {
	ids, err := r.storage.JobIDs()
	if err != nil {
		return err
	}

	jobs := make([]*job.Job, 0, len(ids))
	for _, id := range ids {
		j, err := r.storage.OpenJob(ctx, id)
		if err != nil {
			return err
		}
		jobs = append(jobs, j)
	}

	return r.index.Rebuild(ctx, jobs)
}

func pathExistsInMirror(mirrorDir, commit, subpath string) (bool, error) {
	return scm.PathExists(mirrorDir, commit, subpath)
}

// DevCheckout checks out the already-resolved dependencies of the
// uncommitted job rooted at jobRoot directly into the job's own directory,
// without committing it (spec.md 12, "dev checkout"). Unlike Commit, it
// never resolves a QueryDep/QueryAllDep against the index: the original's
// dev checkout iterates job.dependencies as declared and requires each one
// to already name a concrete job/commit, so an unresolved query dependency
// fails with MissingDependency rather than being resolved on the spot. It
// also errors if any dependency destination already exists.
func (r *Repository) DevCheckout(ctx context.Context, jobRoot string) error {
	j, err := job.Open(ctx, jobRoot, "")
	if err != nil {
		return err
	}

	for _, d := range j.Dependencies() {
		if !d.IsResolved() {
			return r3err.Newf(r3err.MissingDependency, "dependency at %s is not resolved", d.Destination())
		}

		if err := r.verifyDependencies([]dependency.Dependency{d}); err != nil {
			return err
		}

		dest := filepath.Join(jobRoot, filepath.FromSlash(d.Destination()))
		if _, err := os.Stat(dest); err == nil {
			return r3err.Newf(r3err.PathExists, "dependency destination already exists: %s", dest)
		}
		if err := r.storage.Checkout(ctx, d, jobRoot); err != nil {
			return err
		}
	}

	return nil
}
