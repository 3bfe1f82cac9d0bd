package patterns

import (
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"
)

// race is the ordered top finishers of one race.
type race struct {
	id      int64
	records []FinishRecord
}

// Compute aggregates boxed combinations across records and returns the
// ranked, filtered patterns. It performs no I/O and keeps no state, so it is
// safe to call concurrently. fields is only consulted when
// opts.RequireFutureMatch is set.
func Compute(records []FinishRecord, fields []UpcomingField, opts Options) (Report, error) {
	opts = opts.WithDefaults()
	if err := opts.Validate(); err != nil {
		return Report{}, err
	}

	report := Report{Patterns: []Pattern{}}
	races := groupByRace(records, opts.Track)

	order := []string{}
	found := map[string]*Pattern{}

	for _, r := range races {
		if err := checkPositions(r); err != nil {
			if opts.Strict {
				return Report{}, err
			}
			report.Skipped = append(report.Skipped, RaceAnomaly{RaceID: err.RaceID, Reason: err.Reason})
			continue
		}
		if len(r.records) < Quinela.Size() {
			continue
		}
		report.Races++

		finish := make([]int, len(r.records))
		for i, rec := range r.records {
			finish[i] = rec.ProgramNumber
		}
		first := r.records[0]

		for _, bt := range betTypes {
			if len(finish) < bt.Size() {
				break
			}
			numbers := sortedPrefix(finish, bt.Size())
			key := CombinationKey(bt, numbers)

			p, ok := found[key]
			if !ok {
				order = append(order, key)
				p = &Pattern{Key: key, BetType: bt, Numbers: numbers, Appearances: []Appearance{}}
				found[key] = p
			}
			p.Occurrences++
			p.Appearances = append(p.Appearances, Appearance{
				MeetingDate: first.MeetingDate,
				TrackName:   first.TrackName,
				RaceNumber:  first.RaceNumber,
				Result:      slices.Clone(finish),
			})
		}
	}

	var future []map[int]struct{}
	if opts.RequireFutureMatch {
		future = fieldSets(fields)
	}

	for _, key := range order {
		p := found[key]
		if !opts.keep(p.Occurrences) {
			continue
		}
		if opts.RequireFutureMatch && !plausible(p.Numbers, future) {
			continue
		}
		report.Patterns = append(report.Patterns, *p)
	}

	rank(report.Patterns, opts.SortNumbers)
	if len(report.Patterns) > opts.MaxResults {
		report.Patterns = report.Patterns[:opts.MaxResults]
	}
	return report, nil
}

// CombinationKey builds the order-independent key for numbers, which must
// already be sorted ascending.
func CombinationKey(bt BetType, numbers []int) string {
	parts := make([]string, len(numbers))
	for i, n := range numbers {
		parts[i] = strconv.Itoa(n)
	}
	return bt.Tag() + ":" + strings.Join(parts, "-")
}

// KeyFor returns the combination key of the first bt.Size() finishers of
// finish, or "" when the race is too short.
func KeyFor(bt BetType, finish []int) string {
	if len(finish) < bt.Size() {
		return ""
	}
	return CombinationKey(bt, sortedPrefix(finish, bt.Size()))
}

func sortedPrefix(finish []int, n int) []int {
	out := slices.Clone(finish[:n])
	slices.Sort(out)
	return out
}

// groupByRace buckets records by race in first-seen order, each bucket sorted
// by position.
func groupByRace(records []FinishRecord, track string) []race {
	order := []int64{}
	byID := map[int64]*race{}

	for _, rec := range records {
		if track != "" && !strings.EqualFold(strings.TrimSpace(rec.TrackName), track) {
			continue
		}
		r, ok := byID[rec.RaceID]
		if !ok {
			order = append(order, rec.RaceID)
			r = &race{id: rec.RaceID}
			byID[rec.RaceID] = r
		}
		r.records = append(r.records, rec)
	}

	out := make([]race, 0, len(order))
	for _, id := range order {
		r := byID[id]
		sort.SliceStable(r.records, func(i, j int) bool {
			return r.records[i].Position < r.records[j].Position
		})
		out = append(out, *r)
	}
	return out
}

// checkPositions expects r.records sorted by position.
func checkPositions(r race) *InvariantError {
	for i, rec := range r.records {
		if rec.Position < 1 || rec.Position > MaxPosition {
			return &InvariantError{RaceID: r.id, Reason: fmt.Sprintf("position %d out of range", rec.Position)}
		}
		if i > 0 && r.records[i-1].Position == rec.Position {
			return &InvariantError{RaceID: r.id, Reason: fmt.Sprintf("duplicate position %d", rec.Position)}
		}
	}
	return nil
}

func fieldSets(fields []UpcomingField) []map[int]struct{} {
	out := make([]map[int]struct{}, 0, len(fields))
	for _, f := range fields {
		set := make(map[int]struct{}, len(f.ProgramNumbers))
		for _, n := range f.ProgramNumbers {
			set[n] = struct{}{}
		}
		out = append(out, set)
	}
	return out
}

// plausible reports whether some upcoming field contains every number.
// Extra runners in the field are allowed.
func plausible(numbers []int, fields []map[int]struct{}) bool {
	for _, set := range fields {
		all := true
		for _, n := range numbers {
			if _, ok := set[n]; !ok {
				all = false
				break
			}
		}
		if all {
			return true
		}
	}
	return false
}

func rank(ps []Pattern, byNumbers bool) {
	sort.SliceStable(ps, func(i, j int) bool {
		if ps[i].Occurrences != ps[j].Occurrences {
			return ps[i].Occurrences > ps[j].Occurrences
		}
		if !byNumbers {
			return false
		}
		if ps[i].BetType != ps[j].BetType {
			return ps[i].BetType < ps[j].BetType
		}
		return slices.Compare(ps[i].Numbers, ps[j].Numbers) < 0
	})
}
