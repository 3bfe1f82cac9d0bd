// Package patterns detects repeated boxed finishing combinations
// (Quinela, Trifecta, Superfecta) across recent race results.
package patterns

import (
	"errors"
	"fmt"
	"time"
)

// BetType is the wager family a combination belongs to.
type BetType int

const (
	Quinela BetType = iota + 2
	Trifecta
	Superfecta
)

// Size is the number of leading finishers the bet type covers.
func (b BetType) Size() int { return int(b) }

// Tag is the single-letter prefix used in combination keys.
func (b BetType) Tag() string {
	switch b {
	case Quinela:
		return "Q"
	case Trifecta:
		return "T"
	case Superfecta:
		return "S"
	}
	return "?"
}

// Label is the display name sent to clients.
func (b BetType) Label() string {
	switch b {
	case Quinela:
		return "Quinela (2 Números)"
	case Trifecta:
		return "Trifecta (3 Números)"
	case Superfecta:
		return "Superfecta (4 Números)"
	}
	return fmt.Sprintf("BetType(%d)", int(b))
}

var betTypes = []BetType{Quinela, Trifecta, Superfecta}

// MaxPosition is the deepest finishing position considered.
const MaxPosition = 4

// FinishRecord is one top-4 finisher of a race.
type FinishRecord struct {
	RaceID        int64
	Position      int
	ProgramNumber int
	MeetingDate   time.Time
	TrackName     string
	RaceNumber    int
}

// UpcomingField lists the program numbers entered in a scheduled race.
type UpcomingField struct {
	RaceID         int64
	ProgramNumbers []int
}

// Appearance is one race that produced a pattern's combination.
type Appearance struct {
	MeetingDate time.Time
	TrackName   string
	RaceNumber  int
	// Result is the finish order as run, not the sorted combination.
	Result []int
}

// Pattern aggregates every race sharing a combination key.
type Pattern struct {
	Key         string
	BetType     BetType
	Numbers     []int
	Occurrences int
	Appearances []Appearance
}

// RaceAnomaly records a race dropped because its positions were invalid.
type RaceAnomaly struct {
	RaceID int64
	Reason string
}

// Report is the outcome of one computation.
type Report struct {
	Patterns []Pattern
	// Races is the number of races that contributed to aggregation.
	Races   int
	Skipped []RaceAnomaly
}

// ErrInvalidOptions is returned for option values outside their domain.
var ErrInvalidOptions = errors.New("patterns: invalid options")

// InvariantError reports a race whose positions are duplicated or out of range.
type InvariantError struct {
	RaceID int64
	Reason string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("patterns: race %d: %s", e.RaceID, e.Reason)
}
