package patterns

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var meeting = time.Date(2026, 9, 12, 0, 0, 0, 0, time.UTC)

// raceOf builds finish records for one race in the given finish order.
func raceOf(id int64, track string, number int, finish ...int) []FinishRecord {
	out := make([]FinishRecord, len(finish))
	for i, n := range finish {
		out[i] = FinishRecord{
			RaceID:        id,
			Position:      i + 1,
			ProgramNumber: n,
			MeetingDate:   meeting.AddDate(0, 0, int(id)),
			TrackName:     track,
			RaceNumber:    number,
		}
	}
	return out
}

func concat(races ...[]FinishRecord) []FinishRecord {
	var out []FinishRecord
	for _, r := range races {
		out = append(out, r...)
	}
	return out
}

func keys(ps []Pattern) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.Key
	}
	return out
}

func TestCompute_ConcreteScenario(t *testing.T) {
	records := concat(
		raceOf(1, "Club Hípico", 3, 3, 7, 9, 2),
		raceOf(2, "Hipódromo Chile", 5, 7, 3, 1, 5),
		raceOf(3, "Valparaíso Sporting", 8, 3, 7, 4, 8),
	)

	report, err := Compute(records, nil, Options{})
	require.NoError(t, err)
	require.Len(t, report.Patterns, 1)
	assert.Equal(t, 3, report.Races)

	q := report.Patterns[0]
	assert.Equal(t, "Q:3-7", q.Key)
	assert.Equal(t, Quinela, q.BetType)
	assert.Equal(t, []int{3, 7}, q.Numbers)
	assert.Equal(t, 3, q.Occurrences)
	require.Len(t, q.Appearances, 3)
	assert.Equal(t, []int{3, 7, 9, 2}, q.Appearances[0].Result)
	assert.Equal(t, []int{7, 3, 1, 5}, q.Appearances[1].Result)
	assert.Equal(t, []int{3, 7, 4, 8}, q.Appearances[2].Result)
	assert.Equal(t, "Hipódromo Chile", q.Appearances[1].TrackName)
	assert.Equal(t, 5, q.Appearances[1].RaceNumber)

	all, err := Compute(records, nil, Options{MinOccurrences: 1})
	require.NoError(t, err)
	assert.Contains(t, keys(all.Patterns), "T:2-3-7")
	assert.Contains(t, keys(all.Patterns), "T:1-3-7")
	assert.Contains(t, keys(all.Patterns), "T:3-4-7")
	assert.Contains(t, keys(all.Patterns), "S:2-3-7-9")
	assert.Len(t, all.Patterns, 7)
}

func TestCompute_Idempotent(t *testing.T) {
	records := concat(
		raceOf(1, "CHS", 1, 4, 1, 6),
		raceOf(2, "CHS", 2, 1, 4, 2),
		raceOf(3, "CHS", 3, 6, 1, 4),
	)
	a, err := Compute(records, nil, Options{MinOccurrences: 1})
	require.NoError(t, err)
	b, err := Compute(records, nil, Options{MinOccurrences: 1})
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestCompute_UnsortedInput(t *testing.T) {
	records := []FinishRecord{
		{RaceID: 9, Position: 2, ProgramNumber: 5},
		{RaceID: 8, Position: 1, ProgramNumber: 5},
		{RaceID: 9, Position: 1, ProgramNumber: 2},
		{RaceID: 8, Position: 2, ProgramNumber: 2},
	}
	report, err := Compute(records, nil, Options{})
	require.NoError(t, err)
	require.Len(t, report.Patterns, 1)
	assert.Equal(t, "Q:2-5", report.Patterns[0].Key)
	assert.Equal(t, []int{2, 5}, report.Patterns[0].Appearances[0].Result)
	assert.Equal(t, []int{5, 2}, report.Patterns[0].Appearances[1].Result)
}

func TestKeyFor_OrderIndependent(t *testing.T) {
	tests := []struct {
		bt   BetType
		a, b []int
	}{
		{Quinela, []int{3, 7}, []int{7, 3}},
		{Trifecta, []int{1, 12, 4}, []int{12, 4, 1}},
		{Superfecta, []int{9, 2, 5, 11}, []int{11, 5, 9, 2}},
	}
	for _, tt := range tests {
		assert.Equal(t, KeyFor(tt.bt, tt.a), KeyFor(tt.bt, tt.b))
	}
	assert.Equal(t, "T:1-4-12", KeyFor(Trifecta, []int{12, 4, 1}))
	assert.Equal(t, "", KeyFor(Superfecta, []int{1, 2, 3}))
}

func TestCompute_OccurrenceCounting(t *testing.T) {
	var races [][]FinishRecord
	for i := int64(1); i <= 5; i++ {
		if i%2 == 0 {
			races = append(races, raceOf(i, "CHC", int(i), 8, 2))
		} else {
			races = append(races, raceOf(i, "CHC", int(i), 2, 8))
		}
	}
	report, err := Compute(concat(races...), nil, Options{})
	require.NoError(t, err)
	require.Len(t, report.Patterns, 1)
	assert.Equal(t, "Q:2-8", report.Patterns[0].Key)
	assert.Equal(t, 5, report.Patterns[0].Occurrences)
	assert.Len(t, report.Patterns[0].Appearances, 5)
}

func TestCompute_IndependentBetTypes(t *testing.T) {
	records := concat(
		raceOf(1, "CHS", 1, 1, 2, 3, 4),
		raceOf(2, "CHS", 2, 3, 2, 1, 4),
	)
	report, err := Compute(records, nil, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"T:1-2-3", "S:1-2-3-4"}, keys(report.Patterns))
	for _, p := range report.Patterns {
		assert.Equal(t, 2, p.Occurrences)
	}

	all, err := Compute(records, nil, Options{MinOccurrences: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"T:1-2-3", "S:1-2-3-4", "Q:1-2", "Q:2-3"}, keys(all.Patterns))
}

func TestCompute_OccurrenceFilters(t *testing.T) {
	records := concat(
		raceOf(1, "CHS", 1, 1, 2),
		raceOf(2, "CHS", 2, 1, 2),
		raceOf(3, "CHS", 3, 1, 2),
		raceOf(4, "CHS", 4, 5, 6),
		raceOf(5, "CHS", 5, 5, 6),
		raceOf(6, "CHS", 6, 8, 9),
	)

	tests := []struct {
		name string
		opts Options
		want []string
	}{
		{"default at least two", Options{}, []string{"Q:1-2", "Q:5-6"}},
		{"at least three", Options{MinOccurrences: 3}, []string{"Q:1-2"}},
		{"everything", Options{MinOccurrences: 1}, []string{"Q:1-2", "Q:5-6", "Q:8-9"}},
		{"exactly two", Options{ExactOccurrences: 2}, []string{"Q:5-6"}},
		{"exact overrides min", Options{MinOccurrences: 3, ExactOccurrences: 1}, []string{"Q:8-9"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report, err := Compute(records, nil, tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.want, keys(report.Patterns))
		})
	}
}

func TestCompute_Truncation(t *testing.T) {
	// Q:1-2 x3, then five quinelas seen twice each, in first-seen order.
	races := [][]FinishRecord{}
	id := int64(0)
	add := func(finish ...int) {
		id++
		races = append(races, raceOf(id, "CHS", int(id), finish...))
	}
	add(1, 2)
	for _, pair := range [][2]int{{9, 3}, {4, 5}, {7, 6}, {1, 8}, {2, 10}} {
		add(pair[0], pair[1])
	}
	add(2, 1)
	for _, pair := range [][2]int{{9, 3}, {4, 5}, {7, 6}, {1, 8}, {2, 10}} {
		add(pair[1], pair[0])
	}
	add(1, 2)

	report, err := Compute(concat(races...), nil, Options{MaxResults: 3})
	require.NoError(t, err)
	assert.Equal(t, []string{"Q:1-2", "Q:3-9", "Q:4-5"}, keys(report.Patterns))

	sorted, err := Compute(concat(races...), nil, Options{MaxResults: 3, SortNumbers: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"Q:1-2", "Q:1-8", "Q:2-10"}, keys(sorted.Patterns))
}

func TestCompute_FutureMatch(t *testing.T) {
	records := concat(
		raceOf(1, "CHS", 1, 3, 7),
		raceOf(2, "CHS", 2, 7, 3),
		raceOf(3, "CHS", 3, 1, 4),
		raceOf(4, "CHS", 4, 4, 1),
	)

	tests := []struct {
		name   string
		fields []UpcomingField
		want   []string
	}{
		{"superset field keeps", []UpcomingField{{RaceID: 50, ProgramNumbers: []int{1, 2, 3, 5, 7, 10}}}, []string{"Q:3-7"}},
		{"split across fields drops", []UpcomingField{
			{RaceID: 50, ProgramNumbers: []int{3, 4}},
			{RaceID: 51, ProgramNumbers: []int{7, 1}},
		}, []string{}},
		{"no fields drops all", nil, []string{}},
		{"both kept", []UpcomingField{
			{RaceID: 50, ProgramNumbers: []int{3, 7}},
			{RaceID: 51, ProgramNumbers: []int{1, 4, 8}},
		}, []string{"Q:3-7", "Q:1-4"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report, err := Compute(records, tt.fields, Options{RequireFutureMatch: true})
			require.NoError(t, err)
			assert.Equal(t, tt.want, keys(report.Patterns))
		})
	}

	ignored, err := Compute(records, nil, Options{})
	require.NoError(t, err)
	assert.Len(t, ignored.Patterns, 2)
}

func TestCompute_DegenerateRaces(t *testing.T) {
	report, err := Compute(raceOf(1, "CHS", 1, 6), nil, Options{MinOccurrences: 1})
	require.NoError(t, err)
	assert.Empty(t, report.Patterns)
	assert.Zero(t, report.Races)

	empty, err := Compute(nil, nil, Options{})
	require.NoError(t, err)
	assert.NotNil(t, empty.Patterns)
	assert.Empty(t, empty.Patterns)
}

func TestCompute_TrackFilter(t *testing.T) {
	records := concat(
		raceOf(1, "Club Hípico", 1, 1, 2),
		raceOf(2, "Hipódromo Chile", 1, 1, 2),
		raceOf(3, "club hípico ", 2, 2, 1),
	)
	report, err := Compute(records, nil, Options{Track: "Club Hípico"})
	require.NoError(t, err)
	require.Len(t, report.Patterns, 1)
	assert.Equal(t, 2, report.Patterns[0].Occurrences)
	assert.Equal(t, 2, report.Races)
}

func TestCompute_InvalidPositions(t *testing.T) {
	dup := []FinishRecord{
		{RaceID: 7, Position: 1, ProgramNumber: 3},
		{RaceID: 7, Position: 1, ProgramNumber: 4},
		{RaceID: 7, Position: 2, ProgramNumber: 5},
	}
	outOfRange := []FinishRecord{
		{RaceID: 8, Position: 1, ProgramNumber: 3},
		{RaceID: 8, Position: 5, ProgramNumber: 4},
	}
	records := concat(dup, outOfRange, raceOf(1, "CHS", 1, 4, 5), raceOf(2, "CHS", 2, 5, 4))

	report, err := Compute(records, nil, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Q:4-5"}, keys(report.Patterns))
	require.Len(t, report.Skipped, 2)
	assert.Equal(t, int64(7), report.Skipped[0].RaceID)
	assert.Equal(t, int64(8), report.Skipped[1].RaceID)

	_, err = Compute(records, nil, Options{Strict: true})
	var inv *InvariantError
	require.True(t, errors.As(err, &inv))
	assert.Equal(t, int64(7), inv.RaceID)
}

func TestCompute_InvalidOptions(t *testing.T) {
	for _, opts := range []Options{
		{MinOccurrences: -1},
		{ExactOccurrences: -2},
		{MaxResults: -5},
		{WindowDays: -1},
	} {
		_, err := Compute(nil, nil, opts)
		assert.ErrorIs(t, err, ErrInvalidOptions)
	}
}

func TestBetTypeLabels(t *testing.T) {
	assert.Equal(t, "Quinela (2 Números)", Quinela.Label())
	assert.Equal(t, "Trifecta (3 Números)", Trifecta.Label())
	assert.Equal(t, "Superfecta (4 Números)", Superfecta.Label())
	assert.Equal(t, 4, Superfecta.Size())
}
