package dependency

import (
	"fmt"
	"path"
	"regexp"

	"github.com/robinruff/r3/hashutil"
	"github.com/robinruff/r3/internal/r3err"
)

var (
	githubHTTPSPattern = regexp.MustCompile(`^https://github\.com/([^/]+)/([^/.]+)(?:\.git)?$`)
	githubSSHPattern   = regexp.MustCompile(`^git@github\.com:([^/]+)/([^/.]+)(?:\.git)?$`)
)

// GitDep references source at a specific commit in a locally mirrored git
// repository (spec.md 3.4, 6.3). It is always resolved.
type GitDep struct {
	Repository string
	Commit     string
	Src        string
	Dest       string
}

// NewGitDep constructs a resolved GitDep. source follows spec.md 3.4's
// default: "" when absent (preserved for backward compatibility).
func NewGitDep(repository, commit, destination, source string) *GitDep {
	return &GitDep{Repository: repository, Commit: commit, Dest: cleanPath(destination), Src: source}
}

func (d *GitDep) Destination() string { return d.Dest }

func (d *GitDep) IsResolved() bool { return true }

// RepositoryPath derives the mirror path under <repo-root>/git from the
// dependency's canonical URL (spec.md 6.3). Only GitHub URLs are
// recognised today.
func (d *GitDep) RepositoryPath() (string, error) {
	if m := githubHTTPSPattern.FindStringSubmatch(d.Repository); m != nil {
		return path.Join("git", "github.com", m[1], m[2]), nil
	}
	if m := githubSSHPattern.FindStringSubmatch(d.Repository); m != nil {
		return path.Join("git", "github.com", m[1], m[2]), nil
	}
	return "", r3err.Newf(r3err.UnrecognisedURL, "unrecognised git url: %s", d.Repository)
}

// Hash uses RepositoryPath, not the raw URL, so two spellings of the same
// GitHub repository hash identically (spec.md 9, preserved deliberately).
func (d *GitDep) Hash() (string, error) {
	repoPath, err := d.RepositoryPath()
	if err != nil {
		return "", err
	}
	return hashutil.HashString(fmt.Sprintf("%s@%s/%s", repoPath, d.Commit, d.Src)), nil
}

func (d *GitDep) ToConfig() map[string]string {
	return map[string]string{
		"repository":  d.Repository,
		"commit":      d.Commit,
		"source":      d.Src,
		"destination": d.Dest,
	}
}

func gitDepFromConfig(c config) *GitDep {
	return &GitDep{
		Repository: c.Repository,
		Commit:     c.Commit,
		Src:        c.Source,
		Dest:       cleanPath(c.Destination),
	}
}
