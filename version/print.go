package version

import (
	"fmt"
	"io"
	"os"
)

// FprintVersion writes the version string to w, in the form:
//
//	<cmd> <package> <version>
func FprintVersion(w io.Writer) {
	fmt.Fprintln(w, os.Args[0], Package(), App())
}

// PrintVersion writes the version information to stdout.
func PrintVersion() {
	FprintVersion(os.Stdout)
}
