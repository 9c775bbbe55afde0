package loadbalancer

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrNoProviders ...
var ErrNoProviders = errors.New("no providers configured")

// AggregateError is returned when every provider of a pool failed to give a
// usable answer. It carries the individual failure causes keyed by provider
// name so that an outage can be diagnosed without re-running with extra
// logging.
type AggregateError struct {
	Network string
	Causes  map[string]error
}

func (e *AggregateError) Error() string {
	names := make([]string, 0, len(e.Causes))
	for name := range e.Causes {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s: %v", name, e.Causes[name]))
	}
	return fmt.Sprintf(
		"all providers failed for network %s [%s]",
		e.Network, strings.Join(parts, "; "),
	)
}
