// Package version holds the R3 format version and the version of the
// running binary.
package version

// mainpkg is the canonical import path under which this module is built.
var mainpkg = "github.com/robinruff/r3"

// appVersion is the version of the r3 binary. Replaced at link time for
// release builds; "+unknown" marks a go-get based install.
var appVersion = "v1.0.0-beta.5+unknown"

// revision is the VCS revision used to build the binary, set at link time.
var revision = ""

// FormatVersion is the version stamped into a repository's r3.yaml on
// Repository.Init, and the version every committed job manifest format
// follows. Unlike appVersion, this changes only when the on-disk layout
// changes.
const FormatVersion = "1.0.0-beta.5"

// Package returns the canonical import path this module was built under.
func Package() string {
	return mainpkg
}

// App returns the version of the running binary.
func App() string {
	return appVersion
}

// Revision returns the VCS revision the binary was built from, if known.
func Revision() string {
	return revision
}
