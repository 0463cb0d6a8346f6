package dependency

import (
	"github.com/robinruff/r3/internal/r3err"
)

// QueryAllDep names every job matching a tag set; it resolves to one
// JobDep per match (spec.md 3.4). Source is implicitly "." and is not
// serialised. Always unresolved.
type QueryAllDep struct {
	QueryAll string
	Dest     string
}

// NewQueryAllDep constructs an unresolved QueryAllDep.
func NewQueryAllDep(query, destination string) *QueryAllDep {
	return &QueryAllDep{QueryAll: query, Dest: cleanPath(destination)}
}

func (d *QueryAllDep) Destination() string { return d.Dest }

func (d *QueryAllDep) IsResolved() bool { return false }

func (d *QueryAllDep) Hash() (string, error) {
	return "", r3err.New(r3err.HashUnresolved, "cannot hash an unresolved query-all dependency")
}

func (d *QueryAllDep) ToConfig() map[string]string {
	return map[string]string{
		"query_all":   d.QueryAll,
		"destination": d.Dest,
	}
}

func queryAllDepFromConfig(c config) *QueryAllDep {
	return &QueryAllDep{QueryAll: c.QueryAll, Dest: cleanPath(c.Destination)}
}
