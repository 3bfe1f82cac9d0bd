package patterns

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	DefaultWindowDays     = 60
	DefaultMinOccurrences = 2
	DefaultMaxResults     = 50
)

// Options controls filtering and ranking. Zero values select defaults.
type Options struct {
	// WindowDays is informational for Compute; records are expected to be
	// pre-filtered to the window. Service uses it to build the fetch cutoff.
	WindowDays int
	// MinOccurrences keeps patterns seen at least this many times.
	MinOccurrences int
	// ExactOccurrences, when > 0, keeps only patterns seen exactly this many
	// times and MinOccurrences is ignored.
	ExactOccurrences int
	// RequireFutureMatch keeps only patterns whose numbers are all entered in
	// at least one upcoming race.
	RequireFutureMatch bool
	MaxResults         int
	// Track restricts aggregation to races at this track. Empty means all.
	Track string
	// Strict aborts on the first invalid race instead of skipping it.
	Strict bool
	// SortNumbers breaks occurrence ties by bet type and then numbers
	// instead of first-seen order.
	SortNumbers bool
}

// WithDefaults returns a copy with unset fields filled in.
func (o Options) WithDefaults() Options {
	if o.WindowDays == 0 {
		o.WindowDays = DefaultWindowDays
	}
	if o.MinOccurrences == 0 {
		o.MinOccurrences = DefaultMinOccurrences
	}
	if o.MaxResults == 0 {
		o.MaxResults = DefaultMaxResults
	}
	o.Track = strings.TrimSpace(o.Track)
	return o
}

// Validate checks option ranges after defaults have been applied.
func (o Options) Validate() error {
	switch {
	case o.WindowDays < 0:
		return fmt.Errorf("%w: window days %d", ErrInvalidOptions, o.WindowDays)
	case o.MinOccurrences < 1:
		return fmt.Errorf("%w: min occurrences %d", ErrInvalidOptions, o.MinOccurrences)
	case o.ExactOccurrences < 0:
		return fmt.Errorf("%w: exact occurrences %d", ErrInvalidOptions, o.ExactOccurrences)
	case o.MaxResults < 1:
		return fmt.Errorf("%w: max results %d", ErrInvalidOptions, o.MaxResults)
	}
	return nil
}

// CacheKey identifies the full parameter set for result caching.
func (o Options) CacheKey() string {
	var b strings.Builder
	b.WriteString("patrones")
	for _, v := range []int{o.WindowDays, o.MinOccurrences, o.ExactOccurrences, o.MaxResults} {
		b.WriteByte(':')
		b.WriteString(strconv.Itoa(v))
	}
	b.WriteString(":" + strconv.FormatBool(o.RequireFutureMatch))
	b.WriteString(":" + strconv.FormatBool(o.SortNumbers))
	b.WriteString(":" + strings.ToLower(o.Track))
	return b.String()
}

func (o Options) keep(occurrences int) bool {
	if o.ExactOccurrences > 0 {
		return occurrences == o.ExactOccurrences
	}
	return occurrences >= o.MinOccurrences
}
