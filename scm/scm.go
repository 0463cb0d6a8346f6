// Package scm is the adapter onto locally mirrored source-control
// repositories that spec.md 2/4.2 (C2) names as an external collaborator:
// path_exists, checkout_subpath (and, by extension, fetching a commit into
// a mirror, which this package's callers already assume has happened by
// the time a GitDep is resolved).
//
// Grounded on github.com/go-git/go-git/v5 (carried in the example pack by
// kubernetes-test-infra's go.mod), a pure-Go git implementation that needs
// no cgo/libgit2 the way the pack's other git-heavy project
// (navytux/git-backup, via github.com/libgit2/git2go) does.
package scm

import (
	"io"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/robinruff/r3/internal/r3err"
)

// PathExists reports whether repoDir is a (possibly bare) git repository,
// commit resolves within it, and subpath exists in that commit's tree.
// subpath == "." degrades to a plain commit-exists check (spec.md 4.2).
func PathExists(repoDir, commit, subpath string) (bool, error) {
	repo, err := git.PlainOpen(repoDir)
	if err != nil {
		return false, nil
	}

	hash, err := repo.ResolveRevision(plumbing.Revision(commit))
	if err != nil {
		return false, nil
	}

	commitObj, err := repo.CommitObject(*hash)
	if err != nil {
		return false, nil
	}

	if subpath == "" || subpath == "." {
		return true, nil
	}

	tree, err := commitObj.Tree()
	if err != nil {
		return false, nil
	}

	if _, err := tree.FindEntry(subpath); err != nil {
		return false, nil
	}

	return true, nil
}

// CheckoutSubpath materialises subpath at commit in repoDir into dest,
// creating dest's parent directories as needed. It never mutates repoDir's
// working tree, reading blobs directly out of the object store instead of
// invoking a worktree checkout (spec.md 4.2: "must not mutate the working
// tree of the mirrored repository").
func CheckoutSubpath(repoDir, commit, subpath, dest string) error {
	repo, err := git.PlainOpen(repoDir)
	if err != nil {
		return r3err.Wrapf(r3err.NotFound, err, "opening mirrored repository %s", repoDir)
	}

	hash, err := repo.ResolveRevision(plumbing.Revision(commit))
	if err != nil {
		return r3err.Wrapf(r3err.NotFound, err, "resolving commit %s in %s", commit, repoDir)
	}

	commitObj, err := repo.CommitObject(*hash)
	if err != nil {
		return r3err.Wrapf(r3err.NotFound, err, "reading commit %s in %s", commit, repoDir)
	}

	tree, err := commitObj.Tree()
	if err != nil {
		return r3err.Wrapf(r3err.IOError, err, "reading tree of commit %s", commit)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return r3err.Wrapf(r3err.IOError, err, "creating %s", filepath.Dir(dest))
	}

	if subpath == "" || subpath == "." {
		return writeTree(repo, tree, dest)
	}

	entry, err := tree.FindEntry(subpath)
	if err != nil {
		return r3err.Wrapf(r3err.NotFound, err, "finding %s in commit %s", subpath, commit)
	}

	if entry.Mode == filemode.Dir {
		subtree, err := tree.Tree(subpath)
		if err != nil {
			return r3err.Wrapf(r3err.IOError, err, "reading subtree %s", subpath)
		}
		return writeTree(repo, subtree, dest)
	}

	return writeBlob(repo, entry.Hash, dest)
}

// writeTree recursively writes every file in tree to dest, preserving
// relative paths.
func writeTree(repo *git.Repository, tree *object.Tree, dest string) error {
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return r3err.Wrapf(r3err.IOError, err, "creating %s", dest)
	}

	walker := object.NewTreeWalker(tree, true, nil)
	defer walker.Close()

	for {
		name, entry, err := walker.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return r3err.Wrapf(r3err.IOError, err, "walking tree")
		}
		if entry.Mode == filemode.Dir {
			continue
		}

		target := filepath.Join(dest, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return r3err.Wrapf(r3err.IOError, err, "creating %s", filepath.Dir(target))
		}
		if err := writeBlob(repo, entry.Hash, target); err != nil {
			return err
		}
	}

	return nil
}

func writeBlob(repo *git.Repository, hash plumbing.Hash, target string) error {
	blob, err := repo.BlobObject(hash)
	if err != nil {
		return r3err.Wrapf(r3err.IOError, err, "reading blob %s", target)
	}
	return writeBlobObject(blob, target)
}

func writeBlobObject(blob *object.Blob, target string) error {
	r, err := blob.Reader()
	if err != nil {
		return r3err.Wrapf(r3err.IOError, err, "opening blob reader for %s", target)
	}
	defer r.Close()

	f, err := os.Create(target)
	if err != nil {
		return r3err.Wrapf(r3err.IOError, err, "creating %s", target)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		return r3err.Wrapf(r3err.IOError, err, "writing %s", target)
	}

	return nil
}
