// Package dependency implements the four typed dependency variants a job
// can declare (spec.md 3.4, C3): JobDep, GitDep, QueryDep and QueryAllDep.
//
// The teacher's source (a dynamic language) models these as an abstract
// base class with runtime isinstance checks; spec.md 9 explicitly says this
// is "an artefact of a dynamic language and should not be carried over."
// Instead this package follows the pattern the teacher itself uses for
// genuinely variant on-disk data — manifest/schema2, manifest/ocischema —
// a small sum type dispatched by inspecting the decoded fields, with a
// shared Dependency interface standing in for the teacher's per-manifest
// method table (Dependencies(), References(), ...).
package dependency

import (
	"path"

	"github.com/robinruff/r3/internal/r3err"
)

// Dependency is the common interface implemented by JobDep, GitDep,
// QueryDep and QueryAllDep.
type Dependency interface {
	// Destination is the path, relative to the consuming job's root, at
	// which this dependency appears after checkout.
	Destination() string

	// IsResolved reports whether this dependency already names a concrete
	// job/commit (JobDep, GitDep) or still needs resolving against the
	// index (QueryDep, QueryAllDep).
	IsResolved() bool

	// Hash returns the content hash contributed by this dependency to its
	// owning job's hashes map. It is an error (HashUnresolved) for an
	// unresolved dependency.
	Hash() (string, error)

	// ToConfig serialises the dependency to the flat mapping shape stored
	// in r3.yaml / index.yaml (spec.md 3.4 "Serialisation").
	ToConfig() map[string]string
}

// RawConfig is the decoded shape of one dependencies[] entry, matching
// spec.md 6.2's flat mapping exactly. Job manifests and the index both
// decode straight into []RawConfig; dependency.FromConfig then picks the
// variant apart.
type RawConfig struct {
	Job         string `yaml:"job,omitempty"`
	Repository  string `yaml:"repository,omitempty"`
	Commit      string `yaml:"commit,omitempty"`
	Query       string `yaml:"query,omitempty"`
	QueryAll    string `yaml:"query_all,omitempty"`
	Source      string `yaml:"source,omitempty"`
	Destination string `yaml:"destination"`
}

// config is the package-internal alias RawConfig is decoded into before
// variant construction; kept distinct from RawConfig so variant
// constructors read naturally as "c.Job", "c.Source" etc.
type config = RawConfig

// FromConfig decodes one dependencies[] entry into the Dependency variant
// its fields disambiguate: exactly one of job/repository/query/query_all
// must be present (spec.md 3.4).
func FromConfig(c RawConfig) (Dependency, error) {
	switch {
	case c.Job != "":
		return jobDepFromConfig(c), nil
	case c.Repository != "":
		return gitDepFromConfig(c), nil
	case c.Query != "":
		return queryDepFromConfig(c), nil
	case c.QueryAll != "":
		return queryAllDepFromConfig(c), nil
	default:
		return nil, r3err.Newf(r3err.IOError, "invalid dependency entry: %+v", c)
	}
}

// ToConfig converts a Dependency's ToConfig() map into a RawConfig for
// re-encoding, so that encoding a resolved job's dependency list round
// trips through YAML without a hand-written MarshalYAML per variant.
func ToConfig(d Dependency) RawConfig {
	m := d.ToConfig()
	return RawConfig{
		Job:         m["job"],
		Repository:  m["repository"],
		Commit:      m["commit"],
		Query:       m["query"],
		QueryAll:    m["query_all"],
		Source:      m["source"],
		Destination: m["destination"],
	}
}

// cleanPath normalises a destination/source path the way path.Clean does,
// while preserving "." for the job-root source default.
func cleanPath(p string) string {
	if p == "" {
		return "."
	}
	return path.Clean(p)
}
