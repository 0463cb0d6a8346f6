package repository_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/robinruff/r3/dependency"
	"github.com/robinruff/r3/internal/r3err"
	"github.com/robinruff/r3/internal/r3test"
	"github.com/robinruff/r3/repository"
)

type RepositorySuite struct {
	suite.Suite
	repo *repository.Repository
	root string
}

func (s *RepositorySuite) SetupTest() {
	s.repo, s.root = r3test.NewTempRepository(s.T())
}

func (s *RepositorySuite) TestInitLayout() {
	for _, want := range []string{"r3.yaml", "jobs", "git"} {
		_, err := os.Stat(filepath.Join(s.root, want))
		s.Require().NoErrorf(err, "expected %s to exist", want)
	}
}

func (s *RepositorySuite) TestCommitSimpleJobIsFindable() {
	jobRoot := r3test.WriteJob(s.T(), s.T().TempDir(), "job",
		map[string]string{"data.txt": "hello"}, r3test.Manifest{})

	os.WriteFile(filepath.Join(jobRoot, "metadata.yaml"), []byte("tags:\n  - base\n"), 0o644)

	j, err := s.repo.Commit(context.Background(), jobRoot)
	s.Require().NoError(err)
	s.Require().NotEmpty(j.ID())

	ids, err := s.repo.Find([]string{"base"}, false)
	s.Require().NoError(err)
	s.Require().Equal([]string{j.ID()}, ids)
}

func (s *RepositorySuite) TestCommitResolvesQueryDep() {
	baseRoot := r3test.WriteJob(s.T(), s.T().TempDir(), "base",
		map[string]string{"a.txt": "a"}, r3test.Manifest{})
	os.WriteFile(filepath.Join(baseRoot, "metadata.yaml"), []byte("tags:\n  - base\n"), 0o644)
	base, err := s.repo.Commit(context.Background(), baseRoot)
	s.Require().NoError(err)

	derivedRoot := r3test.WriteJob(s.T(), s.T().TempDir(), "derived",
		map[string]string{"b.txt": "b"},
		r3test.Manifest{Dependencies: []dependency.RawConfig{
			{Query: "#base", Destination: "dep"},
		}})
	derived, err := s.repo.Commit(context.Background(), derivedRoot)
	s.Require().NoError(err)

	reopened, err := s.repo.OpenJob(context.Background(), derived.ID())
	s.Require().NoError(err)
	deps := reopened.Dependencies()
	s.Require().Len(deps, 1)
	jd, ok := deps[0].(*dependency.JobDep)
	s.Require().True(ok)
	s.Require().Equal(base.ID(), jd.Job)
}

func (s *RepositorySuite) TestCommitQueryAllAlwaysSuffixesDestinationWithJobID() {
	for i := 0; i < 2; i++ {
		root := r3test.WriteJob(s.T(), s.T().TempDir(), "gen", map[string]string{"a.txt": "a"}, r3test.Manifest{})
		os.WriteFile(filepath.Join(root, "metadata.yaml"), []byte("tags:\n  - gen\n"), 0o644)
		_, err := s.repo.Commit(context.Background(), root)
		s.Require().NoError(err)
	}

	derivedRoot := r3test.WriteJob(s.T(), s.T().TempDir(), "derived",
		map[string]string{"b.txt": "b"},
		r3test.Manifest{Dependencies: []dependency.RawConfig{
			{QueryAll: "#gen", Destination: "deps"},
		}})
	derived, err := s.repo.Commit(context.Background(), derivedRoot)
	s.Require().NoError(err)

	reopened, err := s.repo.OpenJob(context.Background(), derived.ID())
	s.Require().NoError(err)
	deps := reopened.Dependencies()
	s.Require().Len(deps, 2)
	for _, d := range deps {
		jd, ok := d.(*dependency.JobDep)
		s.Require().True(ok)
		s.Require().Equal("deps/"+jd.Job, jd.Destination())
	}
}

func (s *RepositorySuite) TestCommitUnresolvableQueryFails() {
	jobRoot := r3test.WriteJob(s.T(), s.T().TempDir(), "job",
		map[string]string{"a.txt": "a"},
		r3test.Manifest{Dependencies: []dependency.RawConfig{
			{Query: "#missing", Destination: "dep"},
		}})

	_, err := s.repo.Commit(context.Background(), jobRoot)
	s.Require().Error(err)
	s.Require().True(r3err.Is(err, r3err.Unresolvable))
}

func (s *RepositorySuite) TestCheckoutCopiesAndSymlinks() {
	jobRoot := r3test.WriteJob(s.T(), s.T().TempDir(), "job",
		map[string]string{"a.txt": "a"}, r3test.Manifest{})
	j, err := s.repo.Commit(context.Background(), jobRoot)
	s.Require().NoError(err)

	dest := filepath.Join(s.T().TempDir(), "checkout")
	s.Require().NoError(s.repo.Checkout(context.Background(), j.ID(), dest))

	data, err := os.ReadFile(filepath.Join(dest, "a.txt"))
	s.Require().NoError(err)
	s.Require().Equal("a", string(data))

	info, err := os.Lstat(filepath.Join(dest, "output"))
	s.Require().NoError(err)
	s.Require().NotZero(info.Mode()&os.ModeSymlink, "expected output/ to be a symlink at checkout")
}

func (s *RepositorySuite) TestRemoveBlockedByDependentsThenSucceeds() {
	baseRoot := r3test.WriteJob(s.T(), s.T().TempDir(), "base",
		map[string]string{"a.txt": "a"}, r3test.Manifest{})
	os.WriteFile(filepath.Join(baseRoot, "metadata.yaml"), []byte("tags:\n  - base\n"), 0o644)
	base, err := s.repo.Commit(context.Background(), baseRoot)
	s.Require().NoError(err)

	derivedRoot := r3test.WriteJob(s.T(), s.T().TempDir(), "derived",
		map[string]string{"b.txt": "b"},
		r3test.Manifest{Dependencies: []dependency.RawConfig{
			{Query: "#base", Destination: "dep"},
		}})
	derived, err := s.repo.Commit(context.Background(), derivedRoot)
	s.Require().NoError(err)

	err = s.repo.Remove(context.Background(), base.ID())
	s.Require().Error(err)
	rerr, ok := r3err.As(err)
	s.Require().True(ok)
	s.Require().Equal(r3err.HasDependents, rerr.Kind)
	s.Require().Equal([]string{derived.ID()}, rerr.DependentIDs)

	s.Require().NoError(s.repo.Remove(context.Background(), derived.ID()))
	s.Require().NoError(s.repo.Remove(context.Background(), base.ID()))
	s.Require().False(s.repo.Contains(base.ID()))
}

func (s *RepositorySuite) TestRebuildIndexIsIdempotent() {
	jobRoot := r3test.WriteJob(s.T(), s.T().TempDir(), "job",
		map[string]string{"a.txt": "a"}, r3test.Manifest{})
	_, err := s.repo.Commit(context.Background(), jobRoot)
	s.Require().NoError(err)

	s.Require().NoError(s.repo.RebuildIndex(context.Background()))
	first, err := os.ReadFile(filepath.Join(s.root, "index.yaml"))
	s.Require().NoError(err)

	s.Require().NoError(s.repo.RebuildIndex(context.Background()))
	second, err := os.ReadFile(filepath.Join(s.root, "index.yaml"))
	s.Require().NoError(err)

	require.Equal(s.T(), string(first), string(second))
}

func TestRepositorySuite(t *testing.T) {
	suite.Run(t, new(RepositorySuite))
}
