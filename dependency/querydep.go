package dependency

import (
	"github.com/robinruff/r3/internal/r3err"
)

// QueryDep names another job indirectly by tag set; it resolves to the
// single latest matching job (spec.md 3.4). Always unresolved.
type QueryDep struct {
	Query string
	Src   string
	Dest  string
}

// NewQueryDep constructs an unresolved QueryDep. source defaults to "."
// when empty (spec.md 3.4).
func NewQueryDep(query, destination, source string) *QueryDep {
	if source == "" {
		source = "."
	}
	return &QueryDep{Query: query, Dest: cleanPath(destination), Src: source}
}

func (d *QueryDep) Destination() string { return d.Dest }

func (d *QueryDep) IsResolved() bool { return false }

func (d *QueryDep) Hash() (string, error) {
	return "", r3err.New(r3err.HashUnresolved, "cannot hash an unresolved query dependency")
}

func (d *QueryDep) ToConfig() map[string]string {
	return map[string]string{
		"query":       d.Query,
		"source":      d.Src,
		"destination": d.Dest,
	}
}

func queryDepFromConfig(c config) *QueryDep {
	source := c.Source
	if source == "" {
		source = "."
	}
	return &QueryDep{Query: c.Query, Src: source, Dest: cleanPath(c.Destination)}
}
