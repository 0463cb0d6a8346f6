package dependency

import (
	"testing"

	"github.com/robinruff/r3/internal/r3err"
)

func TestFromConfigDispatch(t *testing.T) {
	cases := []struct {
		name string
		cfg  RawConfig
		want any
	}{
		{"job", RawConfig{Job: "abc", Destination: "in"}, &JobDep{}},
		{"git", RawConfig{Repository: "https://github.com/o/r", Commit: "c", Destination: "in"}, &GitDep{}},
		{"query", RawConfig{Query: "#x", Destination: "in"}, &QueryDep{}},
		{"query_all", RawConfig{QueryAll: "#x", Destination: "in"}, &QueryAllDep{}},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			d, err := FromConfig(c.cfg)
			if err != nil {
				t.Fatal(err)
			}
			switch c.want.(type) {
			case *JobDep:
				if _, ok := d.(*JobDep); !ok {
					t.Fatalf("got %T, want *JobDep", d)
				}
			case *GitDep:
				if _, ok := d.(*GitDep); !ok {
					t.Fatalf("got %T, want *GitDep", d)
				}
			case *QueryDep:
				if _, ok := d.(*QueryDep); !ok {
					t.Fatalf("got %T, want *QueryDep", d)
				}
			case *QueryAllDep:
				if _, ok := d.(*QueryAllDep); !ok {
					t.Fatalf("got %T, want *QueryAllDep", d)
				}
			}
		})
	}
}

func TestFromConfigInvalid(t *testing.T) {
	_, err := FromConfig(RawConfig{Destination: "in"})
	if err == nil {
		t.Fatal("expected an error for a dependency entry naming no variant")
	}
}

func TestJobDepSourceDefaultsEmpty(t *testing.T) {
	d := jobDepFromConfig(RawConfig{Job: "abc", Destination: "in"})
	if d.Src != "" {
		t.Fatalf("JobDep source should default to \"\", got %q", d.Src)
	}
}

func TestQueryDepSourceDefaultsDot(t *testing.T) {
	d := queryDepFromConfig(RawConfig{Query: "#x", Destination: "in"})
	if d.Src != "." {
		t.Fatalf("QueryDep source should default to \".\", got %q", d.Src)
	}
}

func TestQueryAllDepHashUnresolved(t *testing.T) {
	d := NewQueryAllDep("#x", "in")
	if _, err := d.Hash(); !r3err.Is(err, r3err.HashUnresolved) {
		t.Fatalf("expected HashUnresolved, got %v", err)
	}
}

func TestGitDepHashUsesRepositoryPathNotURL(t *testing.T) {
	https := NewGitDep("https://github.com/owner/repo", "deadbeef", "in", "src")
	ssh := NewGitDep("git@github.com:owner/repo.git", "deadbeef", "in", "src")

	h1, err := https.Hash()
	if err != nil {
		t.Fatal(err)
	}
	h2, err := ssh.Hash()
	if err != nil {
		t.Fatal(err)
	}
	if h1 != h2 {
		t.Fatalf("expected both URL spellings to hash identically, got %s and %s", h1, h2)
	}
}

func TestGitDepUnrecognisedURL(t *testing.T) {
	d := NewGitDep("https://gitlab.com/owner/repo", "c", "in", "src")
	if _, err := d.RepositoryPath(); !r3err.Is(err, r3err.UnrecognisedURL) {
		t.Fatalf("expected UnrecognisedURL, got %v", err)
	}
}

func TestToConfigRoundTrip(t *testing.T) {
	d := NewJobDep("job-id", "in", "src/path")
	raw := ToConfig(d)

	d2, err := FromConfig(raw)
	if err != nil {
		t.Fatal(err)
	}

	jd, ok := d2.(*JobDep)
	if !ok {
		t.Fatalf("got %T, want *JobDep", d2)
	}
	if jd.Job != "job-id" || jd.Src != "src/path" || jd.Dest != "in" {
		t.Fatalf("round trip mismatch: %+v", jd)
	}
}
