// Package yamlutil provides the atomic read/write helpers shared by the
// storage and index packages. Every r3 manifest (r3.yaml, metadata.yaml,
// index.yaml) is a YAML document written through a temp-file-then-rename,
// per spec.md 5 ("Atomic index persistence... implementations MUST use a
// temp-file-plus-rename strategy").
package yamlutil

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"github.com/robinruff/r3/internal/r3err"
)

// ReadFile decodes the YAML document at path into v. If path does not
// exist, it leaves v untouched and returns os.ErrNotExist-wrapping error so
// callers can use os.IsNotExist.
func ReadFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	if err := yaml.Unmarshal(data, v); err != nil {
		return r3err.Wrapf(r3err.IOError, err, "parsing %s", path)
	}

	return nil
}

// WriteFile marshals v as YAML and writes it to path by writing a sibling
// temp file and renaming it into place, so readers never observe a
// partially written file.
func WriteFile(path string, v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return r3err.Wrapf(r3err.IOError, err, "encoding %s", path)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return r3err.Wrapf(r3err.IOError, err, "creating temp file in %s", dir)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return r3err.Wrapf(r3err.IOError, err, "writing %s", tmpPath)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return r3err.Wrapf(r3err.IOError, err, "closing %s", tmpPath)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return r3err.Wrap(r3err.IOError, errors.Wrapf(err, "renaming %s into place", path), "")
	}

	return nil
}
