// Package hashutil provides the content hashing primitives used to build
// a job's hashes map and job hash (spec.md 4.1, C1).
//
// It is a thin wrapper over github.com/opencontainers/go-digest, the way
// the teacher project's digest package wraps a canonical digest algorithm:
// hashutil trades go-digest's "<algorithm>:<hex>" string form for the bare
// hex r3 manifests store, since spec.md's hashes map has no algorithm
// prefix, but reuses go-digest's streaming verifier machinery to do it.
package hashutil

import (
	"io"
	"os"

	"github.com/opencontainers/go-digest"

	"github.com/robinruff/r3/internal/r3err"
)

// chunkSize is the minimum read buffer size used while streaming a file
// through the digest, per spec.md 4.1 ("in >= 64 KiB chunks").
const chunkSize = 64 * 1024

// HashFile returns the lowercase hex SHA-256 digest of the file at path.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", r3err.Wrapf(r3err.IOError, err, "hashing %s", path)
	}
	defer f.Close()

	return hashReader(f, path)
}

func hashReader(r io.Reader, what string) (string, error) {
	digester := digest.Canonical.Digester()
	buf := make([]byte, chunkSize)

	if _, err := io.CopyBuffer(digester.Hash(), r, buf); err != nil {
		return "", r3err.Wrapf(r3err.IOError, err, "hashing %s", what)
	}

	return digester.Digest().Encoded(), nil
}

// HashString returns the lowercase hex SHA-256 digest of the UTF-8
// encoding of s.
func HashString(s string) string {
	return digest.FromString(s).Encoded()
}
