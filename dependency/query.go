package dependency

import (
	"strings"

	"github.com/robinruff/r3/internal/r3err"
)

// ParseQuery splits a query string (space-separated "#tag" tokens) into
// the bare tag set it names, validating that every token starts with '#'
// (spec.md 4.7, "Query resolution rules").
func ParseQuery(query string) ([]string, error) {
	tokens := strings.Split(strings.TrimSpace(query), " ")

	tags := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if !strings.HasPrefix(token, "#") {
			return nil, r3err.Newf(r3err.InvalidQuery, "invalid query: %q", query)
		}
		tags = append(tags, strings.TrimPrefix(token, "#"))
	}

	return tags, nil
}
