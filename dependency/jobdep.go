package dependency

import (
	"fmt"

	"github.com/robinruff/r3/hashutil"
)

// JobDep references a specific committed job's file or subtree
// (spec.md 3.4). It is always resolved.
type JobDep struct {
	Job  string
	Src  string
	Dest string

	// Query / QueryAll record how this JobDep was produced by the
	// resolver, so re-serialising a resolved job preserves the back
	// pointer (spec.md 4.3).
	Query    string
	QueryAll string
}

// NewJobDep constructs a resolved JobDep. source follows spec.md 3.4's
// JobDep default: "" (the whole job root), not ".".
func NewJobDep(job, destination, source string) *JobDep {
	return &JobDep{Job: job, Dest: cleanPath(destination), Src: source}
}

func (d *JobDep) Destination() string { return d.Dest }

func (d *JobDep) IsResolved() bool { return true }

func (d *JobDep) Hash() (string, error) {
	return hashutil.HashString(fmt.Sprintf("jobs/%s/%s", d.Job, d.Src)), nil
}

func (d *JobDep) ToConfig() map[string]string {
	m := map[string]string{
		"job":         d.Job,
		"source":      d.Src,
		"destination": d.Dest,
	}
	if d.Query != "" {
		m["query"] = d.Query
	}
	if d.QueryAll != "" {
		m["query_all"] = d.QueryAll
	}
	return m
}

func jobDepFromConfig(c config) *JobDep {
	return &JobDep{
		Job:      c.Job,
		Src:      c.Source,
		Dest:     cleanPath(c.Destination),
		Query:    c.Query,
		QueryAll: c.QueryAll,
	}
}
