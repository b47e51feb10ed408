// Package reconciler turns the stream of host configuration messages into
// backend fetches and renders. It validates each message, decides whether
// the change is worth a fetch, debounces slider-like input and drops work
// superseded by newer messages.
package reconciler

import (
	"time"

	"github.com/recera/graphchart/pkg/webapp"
)

// DefaultDebounce is the settle time for node-cap changes
const DefaultDebounce = 800 * time.Millisecond

// Decision says whether and when to fetch
type Decision struct {
	Fetch bool
	Delay time.Duration
}

// ShouldFetch compares the next configuration with the previous settled one.
// prev is nil before the first fetch.
func ShouldFetch(next webapp.EffectiveConfig, nextFilters webapp.FilterSet, prev *webapp.EffectiveConfig, prevFilters webapp.FilterSet) Decision {
	return decide(next, nextFilters, prev, prevFilters, DefaultDebounce)
}

func decide(next webapp.EffectiveConfig, nextFilters webapp.FilterSet, prev *webapp.EffectiveConfig, prevFilters webapp.FilterSet, debounce time.Duration) Decision {
	if prev == nil {
		return Decision{Fetch: true}
	}

	changed := prev.Changed(next)
	filtersChanged := !nextFilters.Equal(prevFilters)

	switch {
	case len(changed) == 0 && !filtersChanged:
		return Decision{}
	case !filtersChanged && len(changed) == 1 && changed[0] == webapp.KeyMaxNodes:
		return Decision{Fetch: true, Delay: debounce}
	default:
		return Decision{Fetch: true}
	}
}
