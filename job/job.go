// Package job implements the in-memory Job representation (spec.md 3.3,
// 4.4, C4): a working directory (or committed job directory) plus its
// manifest, metadata, file set and dependency list, all loaded by Open.
package job

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/robinruff/r3/dependency"
	"github.com/robinruff/r3/fswalk"
	"github.com/robinruff/r3/hashutil"
	"github.com/robinruff/r3/internal/r3err"
	"github.com/robinruff/r3/internal/rcontext"
	"github.com/robinruff/r3/internal/yamlutil"
)

const (
	manifestName = "r3.yaml"
	metadataName = "metadata.yaml"
	outputDir    = "output"

	dateFormat = "2006-01-02 15:04:05"
)

// config is the decoded shape of a job's r3.yaml manifest.
type config struct {
	Dependencies []dependency.RawConfig `yaml:"dependencies"`
	Ignore       []string               `yaml:"ignore"`
	Hashes       map[string]string      `yaml:"hashes,omitempty"`
}

// metadata is the decoded shape of a job's metadata.yaml. Spec.md 6.4 says
// "other free-form key/value entries [are] preserved verbatim", so it is
// kept as a generic map alongside the two fields every r3 tool reads.
type metadata map[string]any

// Job is a unit of reproducible work: a root directory plus its manifest,
// metadata, file set and dependencies (spec.md 3.3). A Job is eager-loaded
// at construction (spec.md 9 explicitly allows this instead of the
// source's lazy loading: "the external contract cares only that reads are
// consistent with disk at construction time").
type Job struct {
	root string
	id   string // "" until committed

	cfg      config
	metadata metadata
	files    map[string]string // destination (relative, slash form) -> absolute source path
	deps     []dependency.Dependency

	hash string
}

// Open loads a Job rooted at root. root may be an uncommitted working
// directory or a committed job directory; id should be set to the job's
// directory name (a UUID) for the latter, "" otherwise.
func Open(ctx context.Context, root, id string) (*Job, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, r3err.Wrapf(r3err.IOError, err, "resolving %s", root)
	}

	rcontext.GetLogger(ctx).Debugf("loading job at %s", absRoot)

	j := &Job{root: absRoot, id: id}

	if err := j.loadConfig(); err != nil {
		return nil, err
	}
	if err := j.loadMetadata(); err != nil {
		return nil, err
	}
	if err := j.loadDependencies(); err != nil {
		return nil, err
	}
	if err := j.loadFiles(); err != nil {
		return nil, err
	}

	return j, nil
}

func (j *Job) loadConfig() error {
	path := filepath.Join(j.root, manifestName)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		j.cfg = config{Dependencies: []dependency.RawConfig{}, Ignore: []string{}}
		return nil
	}

	var c config
	if err := yamlutil.ReadFile(path, &c); err != nil {
		return err
	}
	if c.Dependencies == nil {
		c.Dependencies = []dependency.RawConfig{}
	}
	if c.Ignore == nil {
		c.Ignore = []string{}
	}
	j.cfg = c
	return nil
}

func (j *Job) loadMetadata() error {
	path := filepath.Join(j.root, metadataName)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		j.metadata = metadata{}
		return nil
	}

	var m metadata
	if err := yamlutil.ReadFile(path, &m); err != nil {
		return err
	}
	if m == nil {
		m = metadata{}
	}
	j.metadata = m
	return nil
}

func (j *Job) loadDependencies() error {
	deps := make([]dependency.Dependency, 0, len(j.cfg.Dependencies))
	for _, raw := range j.cfg.Dependencies {
		d, err := dependency.FromConfig(raw)
		if err != nil {
			return err
		}
		deps = append(deps, d)
	}
	j.deps = deps
	return nil
}

func (j *Job) loadFiles() error {
	ignore := append([]string{}, j.cfg.Ignore...)
	ignore = append(ignore, "/"+outputDir)
	for _, d := range j.deps {
		ignore = append(ignore, "/"+d.Destination())
	}

	rel, err := fswalk.FindFiles(j.root, ignore)
	if err != nil {
		return err
	}

	files := make(map[string]string, len(rel))
	for _, r := range rel {
		files[filepath.ToSlash(r)] = filepath.Join(j.root, r)
	}
	j.files = files
	return nil
}

// Root returns the job's root directory.
func (j *Job) Root() string { return j.root }

// ID returns the job's id, or "" if it has not been committed.
func (j *Job) ID() string { return j.id }

// Committed reports whether this Job has an id.
func (j *Job) Committed() bool { return j.id != "" }

// Files returns the destination (relative, slash-separated) -> absolute
// source path mapping of files belonging to this job, excluding anything
// that falls under a dependency's destination.
func (j *Job) Files() map[string]string { return j.files }

// Dependencies returns this job's dependency list, in declaration order.
func (j *Job) Dependencies() []dependency.Dependency { return j.deps }

// SetDependencies replaces the job's dependency list and resyncs the
// serialised config.Dependencies, the way Repository.resolve rewrites a
// job's dependencies in place (spec.md 9).
func (j *Job) SetDependencies(deps []dependency.Dependency) {
	j.deps = deps
	raw := make([]dependency.RawConfig, len(deps))
	for i, d := range deps {
		raw[i] = dependency.ToConfig(d)
	}
	j.cfg.Dependencies = raw
}

// Metadata returns the job's metadata map. Mutating the returned map does
// not write through to metadata.yaml until the job is (re-)committed.
func (j *Job) Metadata() metadata { return j.metadata }

// Tags returns the job's tags metadata field, or nil if absent.
func (j *Job) Tags() []string {
	raw, ok := j.metadata["tags"]
	if !ok {
		return nil
	}
	items, ok := raw.([]any)
	if !ok {
		if strs, ok := raw.([]string); ok {
			return strs
		}
		return nil
	}
	tags := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			tags = append(tags, s)
		}
	}
	return tags
}

// SetCommittedAt sets metadata["committed_at"] to t, formatted the way
// spec.md 6.4 requires. It returns whether a value was already present
// (the caller warns and overwrites, per spec.md 4.7/7).
func (j *Job) SetCommittedAt(t time.Time) (overwritten bool) {
	_, overwritten = j.metadata["committed_at"]
	j.metadata["committed_at"] = t.Format(dateFormat)
	return overwritten
}

// Datetime returns the time this job was committed, parsed from
// metadata["committed_at"]. If absent, it falls back to the directory's
// modification time (spec.md 4.4: "deprecated; emit a warning"); the
// caller is responsible for emitting that warning since Job does not log.
func (j *Job) Datetime() (t time.Time, usedFallback bool, err error) {
	if raw, ok := j.metadata["committed_at"].(string); ok {
		t, err = time.Parse(dateFormat, raw)
		return t, false, err
	}

	info, statErr := os.Stat(j.root)
	if statErr != nil {
		return time.Time{}, true, r3err.Wrapf(r3err.IOError, statErr, "stat %s", j.root)
	}
	return info.ModTime().UTC(), true, nil
}

// Hash computes the job hash and the per-path hashes map, per spec.md 4.4.
// The job hash is cached; recompute forces recalculation (e.g. before
// commit, where spec.md 4.5 step 1 always recomputes).
func (j *Job) Hash(recompute bool) (string, error) {
	if j.hash != "" && !recompute {
		return j.hash, nil
	}

	entries := make(map[string]string)

	for destination, source := range j.files {
		if destination == manifestName || destination == metadataName {
			continue
		}
		h, err := hashutil.HashFile(source)
		if err != nil {
			return "", err
		}
		entries[destination] = h
	}

	for _, d := range j.deps {
		h, err := d.Hash()
		if err != nil {
			return "", err
		}
		entries[d.Destination()] = h
	}

	paths := make([]string, 0, len(entries))
	for p := range entries {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	index := ""
	for i, p := range paths {
		if i > 0 {
			index += "\n"
		}
		index += p + " " + entries[p]
	}

	rootHash := hashutil.HashString(index)
	entries["."] = rootHash

	j.cfg.Hashes = entries
	j.hash = rootHash

	return rootHash, nil
}

// Config exposes the raw manifest config for Storage to serialise at
// commit time.
func (j *Job) Config() (dependencies []dependency.RawConfig, ignore []string, hashes map[string]string) {
	return j.cfg.Dependencies, j.cfg.Ignore, j.cfg.Hashes
}

// Metadata exposed raw for Storage to serialise at commit time.
func (j *Job) MetadataRaw() metadata { return j.metadata }
