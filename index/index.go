// Package index implements the denormalised tag/dependency index (spec.md
// 6, C6): index.yaml, a sidecar that makes Find and FindDependents fast
// without scanning every committed job's manifest.
package index

import (
	"context"
	"os"
	"path/filepath"
	"sort"

	"github.com/robinruff/r3/dependency"
	"github.com/robinruff/r3/internal/rcontext"
	"github.com/robinruff/r3/internal/yamlutil"
	"github.com/robinruff/r3/job"
)

const fileName = "index.yaml"

// entry is one job's denormalised index.yaml record (spec.md 6.5): the
// document itself is a mapping job_id -> entry, so entry carries no id
// field of its own.
type entry struct {
	Tags         []string                `yaml:"tags"`
	Datetime     string                  `yaml:"datetime"`
	Dependencies []dependency.RawConfig  `yaml:"dependencies"`
}

// Index is the in-memory, file-backed tag/dependency index.
type Index struct {
	path    string
	entries map[string]entry // job id -> entry
}

// Init creates an empty index.yaml at root.
func Init(root string) (*Index, error) {
	idx := &Index{path: filepath.Join(root, fileName), entries: map[string]entry{}}
	if err := idx.save(); err != nil {
		return nil, err
	}
	return idx, nil
}

// Open loads the index.yaml at root. A missing file is treated as an
// empty index (spec.md 3.1: "index.yaml, if present, lists exactly the
// UUIDs present in jobs/"; §4.6: "lazily loaded on first read").
func Open(root string) (*Index, error) {
	idx := &Index{path: filepath.Join(root, fileName), entries: map[string]entry{}}

	var doc map[string]entry
	if err := yamlutil.ReadFile(idx.path, &doc); err != nil {
		if os.IsNotExist(err) {
			return idx, nil
		}
		return nil, err
	}
	if doc != nil {
		idx.entries = doc
	}
	return idx, nil
}

func (idx *Index) save() error {
	return yamlutil.WriteFile(idx.path, idx.entries)
}

func entryFor(j *job.Job) entry {
	committedAt, _ := j.Metadata()["committed_at"].(string)
	deps, _, _ := j.Config()

	tags := j.Tags()
	if tags == nil {
		tags = []string{}
	}
	if deps == nil {
		deps = []dependency.RawConfig{}
	}

	return entry{Tags: tags, Datetime: committedAt, Dependencies: deps}
}

// Add inserts (or overwrites) j's entry and persists the index.
func (idx *Index) Add(ctx context.Context, j *job.Job) error {
	idx.entries[j.ID()] = entryFor(j)
	if err := idx.save(); err != nil {
		return err
	}
	rcontext.GetLogger(ctx).Debugf("indexed job %s", j.ID())
	return nil
}

// Remove deletes id's entry and persists the index.
func (idx *Index) Remove(ctx context.Context, id string) error {
	delete(idx.entries, id)
	if err := idx.save(); err != nil {
		return err
	}
	rcontext.GetLogger(ctx).Debugf("unindexed job %s", id)
	return nil
}

// Find returns the ids of every job whose tags are a superset of tags,
// ascending by committed_at (tie-broken by job id ascending, spec.md 4.6).
// If latest is true, only the single newest match (the last element of
// that ascending order) is returned.
func (idx *Index) Find(tags []string, latest bool) ([]string, error) {
	type match struct {
		id string
		e  entry
	}

	var matches []match
	for id, e := range idx.entries {
		if hasAllTags(e.Tags, tags) {
			matches = append(matches, match{id: id, e: e})
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].e.Datetime != matches[j].e.Datetime {
			return matches[i].e.Datetime < matches[j].e.Datetime
		}
		return matches[i].id < matches[j].id
	})

	if latest {
		if len(matches) == 0 {
			return nil, nil
		}
		return []string{matches[len(matches)-1].id}, nil
	}

	ids := make([]string, len(matches))
	for i, m := range matches {
		ids[i] = m.id
	}
	return ids, nil
}

// FindDependents returns the ids of every committed job that declares a
// JobDep pointing at id, used by Repository.Remove's
// HasDependents guard (spec.md 4.6).
func (idx *Index) FindDependents(id string) []string {
	var dependents []string
	for jobID, e := range idx.entries {
		for _, d := range e.Dependencies {
			if d.Job == id {
				dependents = append(dependents, jobID)
				break
			}
		}
	}
	sort.Strings(dependents)
	return dependents
}

// Rebuild recomputes the whole index from the committed jobs in jobs,
// discarding any stale state (spec.md 4.6, "rebuild-index").
func (idx *Index) Rebuild(ctx context.Context, jobs []*job.Job) error {
	idx.entries = make(map[string]entry, len(jobs))
	for _, j := range jobs {
		idx.entries[j.ID()] = entryFor(j)
	}
	if err := idx.save(); err != nil {
		return err
	}
	rcontext.GetLogger(ctx).Infof("rebuilt index from %d committed jobs", len(jobs))
	return nil
}

func hasAllTags(have, want []string) bool {
	set := make(map[string]struct{}, len(have))
	for _, t := range have {
		set[t] = struct{}{}
	}
	for _, t := range want {
		if _, ok := set[t]; !ok {
			return false
		}
	}
	return true
}
