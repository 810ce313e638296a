// Package ordering parses the comma-separated "order_by" mini-language
// (§4.2, §6.2) into a paging.OrderingSpec, rejecting any field name that
// isn't on the caller's safelist.
package ordering

import (
	"sort"
	"strings"

	"github.com/nrfta/seekpage"
)

// Parse splits orderBy on commas, trims whitespace around each part, and
// parses an optional "-" prefix as descending. Every field name must be a
// key of allowed with a true value, otherwise Parse fails with an
// *paging.OrderingError naming the offending field and the sorted
// allow-list. Input order is preserved in the result, since it is
// significant for keyset pagination.
func Parse(orderBy string, allowed map[string]bool) (paging.OrderingSpec, error) {
	trimmed := strings.TrimSpace(orderBy)
	if trimmed == "" {
		return nil, &paging.OrderingError{Reason: "order_by must not be empty"}
	}

	parts := strings.Split(trimmed, ",")
	spec := make(paging.OrderingSpec, 0, len(parts))

	for _, part := range parts {
		field := strings.TrimSpace(part)
		if field == "" {
			return nil, &paging.OrderingError{Reason: "order_by contains an empty field name"}
		}

		dir := paging.Asc
		if strings.HasPrefix(field, "-") {
			dir = paging.Desc
			field = field[1:]
		}
		if field == "" {
			return nil, &paging.OrderingError{Reason: "order_by contains a bare '-' with no field name"}
		}

		if !allowed[field] {
			return nil, &paging.OrderingError{
				Field:   field,
				Allowed: sortedKeys(allowed),
				Reason:  "field is not on the safelist",
			}
		}

		spec = append(spec, paging.Sort{Field: field, Dir: dir})
	}

	return spec, nil
}

func sortedKeys(allowed map[string]bool) []string {
	keys := make([]string, 0, len(allowed))
	for k := range allowed {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
