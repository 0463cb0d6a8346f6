// Package fswalk deterministically enumerates a directory tree under a
// restricted ignore-pattern language (spec.md 4.1, C1).
//
// This is hand-rolled against the standard library rather than reused from
// a gitignore-style matcher (e.g. github.com/denormal/go-gitignore, used
// elsewhere in the example pack): spec.md defines a much narrower pattern
// language than gitignore — every pattern must start with "/" and names a
// direct child relative to the *current* recursion root, rebased one path
// element per descent — and pulling in a general ignore-file engine would
// both mismatch the spec's semantics and need to be defeated rather than
// used.
package fswalk

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/robinruff/r3/internal/r3err"
)

// FindFiles returns every regular file under root, relative to root, in
// deterministic order (the relative paths sorted lexicographically as
// whole strings), skipping anything matched by ignorePatterns.
//
// Every pattern must start with "/"; FindFiles rejects the call otherwise
// (spec.md: "Patterns that do not start with / are rejected (Unsupported)").
func FindFiles(root string, ignorePatterns []string) ([]string, error) {
	for _, pattern := range ignorePatterns {
		if len(pattern) == 0 || pattern[0] != '/' {
			return nil, r3err.Newf(r3err.UnsupportedIgnorePattern,
				"ignore pattern must start with '/': %q", pattern)
		}
	}

	var files []string
	if err := findFiles(root, "", ignorePatterns, &files); err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}

// findFiles recurses into root/relPrefix, appending paths relative to the
// original root into files.
func findFiles(root, relPrefix string, ignorePatterns []string, files *[]string) error {
	dir := filepath.Join(root, relPrefix)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return r3err.Wrapf(r3err.IOError, err, "reading directory %s", dir)
	}

	for _, entry := range entries {
		name := entry.Name()
		if isIgnored(name, ignorePatterns) {
			continue
		}

		relPath := filepath.Join(relPrefix, name)

		if entry.IsDir() {
			childPatterns := rebase(name, ignorePatterns)
			if err := findFiles(root, relPath, childPatterns, files); err != nil {
				return err
			}
			continue
		}

		if entry.Type().IsRegular() {
			*files = append(*files, relPath)
		}
	}

	return nil
}

// isIgnored reports whether name (a single path element) is ignored at the
// current recursion level: some pattern equals "/<name>" exactly.
func isIgnored(name string, patterns []string) bool {
	target := "/" + name
	for _, pattern := range patterns {
		if pattern == target {
			return true
		}
	}
	return false
}

// rebase strips the "/<name>" prefix from every pattern that has it, for
// the recursive call into the directory named name; patterns without that
// prefix do not apply below this directory and are dropped.
func rebase(name string, patterns []string) []string {
	prefix := "/" + name
	rebased := make([]string, 0, len(patterns))

	for _, pattern := range patterns {
		if pattern == prefix {
			// An ignore pattern naming this directory itself was already
			// applied by isIgnored; it never reaches here.
			continue
		}
		if len(pattern) > len(prefix) && pattern[:len(prefix)] == prefix && pattern[len(prefix)] == '/' {
			rebased = append(rebased, pattern[len(prefix):])
		}
	}

	return rebased
}
