// =============================================================================
// FILE: internal/cli/filter.go
// PURPOSE: Parses the download subcommand's filter-string syntax
//          ("k=v1,v2-v3;k2=...") into the name/value pairs handed to
//          internal/resource.ResourceSelect.Filter. The catalog API
//          itself understands comma-separated values and ranges, so the
//          comma/dash portion of each value is passed through unparsed;
//          this layer only splits on ';' (fields) and the first '=' (name
//          vs value).
// =============================================================================

package cli

import (
	"fmt"
	"strings"
)

// ErrInvalidFilter is returned by ParseFilterString for any segment that
// isn't a "name=value" pair.
var ErrInvalidFilter = fmt.Errorf("cli: filter must be in the form k=v1,v2-v3;k2=...")

// ParseFilterString parses a filter expression into an ordered list of
// (name, value) pairs, preserving the order the caller wrote them in so
// repeated application of ResourceSelect.Filter is deterministic.
func ParseFilterString(expr string) ([][2]string, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, nil
	}

	var pairs [][2]string
	for _, field := range strings.Split(expr, ";") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		name, value, ok := strings.Cut(field, "=")
		name = strings.TrimSpace(name)
		value = strings.TrimSpace(value)
		if !ok || name == "" || value == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidFilter, field)
		}
		pairs = append(pairs, [2]string{name, value})
	}
	return pairs, nil
}
