package store

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	bundb "github.com/pistainteligente/pista/db"
	"github.com/pistainteligente/pista/models"
	"github.com/pistainteligente/pista/patterns"
)

func ptr[T any](v T) *T { return &v }

type fixture struct {
	t        *testing.T
	ctx      context.Context
	db       *bun.DB
	meetings map[string]int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	db, err := bundb.OpenSQLite(":memory:", false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, bundb.CreateTables(ctx, db))
	return &fixture{t: t, ctx: ctx, db: db, meetings: map[string]int64{}}
}

func (f *fixture) insert(model any) {
	f.t.Helper()
	_, err := f.db.NewInsert().Model(model).Exec(f.ctx)
	require.NoError(f.t, err)
}

func (f *fixture) track(name string) int64 {
	tr := &models.Track{Name: name}
	f.insert(tr)
	return tr.ID
}

func (f *fixture) race(trackID int64, date string, number int) int64 {
	key := fmt.Sprintf("%d/%s", trackID, date)
	meetingID, ok := f.meetings[key]
	if !ok {
		m := &models.Meeting{TrackID: trackID, Date: date}
		f.insert(m)
		meetingID = m.ID
		f.meetings[key] = meetingID
	}
	r := &models.Race{MeetingID: meetingID, Number: number}
	f.insert(r)
	return r.ID
}

func (f *fixture) finish(raceID int64, numbers ...int) {
	for i, n := range numbers {
		f.insert(&models.Participation{RaceID: raceID, Position: ptr(i + 1), ProgramNumber: ptr(n)})
	}
}

func TestStore_FinishRecords(t *testing.T) {
	f := newFixture(t)
	chs := f.track("Club Hípico de Santiago")
	hc := f.track("Hipódromo Chile")

	old := f.race(chs, "2026-07-01", 1)
	f.finish(old, 1, 2, 3, 4)

	r1 := f.race(chs, "2026-09-20", 3)
	f.finish(r1, 3, 7, 9, 2, 5)
	f.insert(&models.Participation{RaceID: r1, Position: nil, ProgramNumber: ptr(11)})

	r2 := f.race(hc, "2026-10-01", 5)
	f.finish(r2, 7, 3)
	f.insert(&models.Participation{RaceID: r2, Position: ptr(3), ProgramNumber: nil})

	s := New(f.db)
	got, err := s.FinishRecords(f.ctx, time.Date(2026, 8, 16, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, got, 6)

	assert.Equal(t, patterns.FinishRecord{
		RaceID:        r1,
		Position:      1,
		ProgramNumber: 3,
		MeetingDate:   time.Date(2026, 9, 20, 0, 0, 0, 0, time.UTC),
		TrackName:     "Club Hípico de Santiago",
		RaceNumber:    3,
	}, got[0])
	assert.Equal(t, 4, got[3].Position)
	assert.Equal(t, r2, got[4].RaceID)
	assert.Equal(t, "Hipódromo Chile", got[5].TrackName)

	report, err := patterns.Compute(got, nil, patterns.Options{})
	require.NoError(t, err)
	require.Len(t, report.Patterns, 1)
	assert.Equal(t, "Q:3-7", report.Patterns[0].Key)
}

func TestStore_UpcomingFields(t *testing.T) {
	f := newFixture(t)
	chs := f.track("Club Hípico de Santiago")

	past := f.race(chs, "2026-10-10", 1)
	f.insert(&models.Prediction{RaceID: past, ProgramNumber: 1})

	next := f.race(chs, "2026-10-16", 2)
	for _, n := range []int{7, 3, 9} {
		f.insert(&models.Prediction{RaceID: next, ProgramNumber: n, Probability: ptr(0.25)})
	}
	later := f.race(chs, "2026-10-17", 1)
	f.insert(&models.Prediction{RaceID: later, ProgramNumber: 4})

	s := New(f.db)
	got, err := s.UpcomingFields(f.ctx, time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, patterns.UpcomingField{RaceID: next, ProgramNumbers: []int{3, 7, 9}}, got[0])
	assert.Equal(t, patterns.UpcomingField{RaceID: later, ProgramNumbers: []int{4}}, got[1])
}

func TestStore_Tracks(t *testing.T) {
	f := newFixture(t)
	f.track("Valparaíso Sporting")
	f.track("Club Hípico de Santiago")

	names, err := New(f.db).Tracks(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Club Hípico de Santiago", "Valparaíso Sporting"}, names)
}

func TestStore_FetchError(t *testing.T) {
	f := newFixture(t)
	s := New(f.db)
	require.NoError(t, f.db.Close())

	_, err := s.FinishRecords(f.ctx, time.Now())
	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "finish records", fe.Op)

	assert.Error(t, s.Ping(f.ctx))
}

func TestParseDate(t *testing.T) {
	d, err := parseDate("2026-09-20T00:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 9, 20, 0, 0, 0, 0, time.UTC), d)

	_, err = parseDate("20/09/2026")
	assert.Error(t, err)
}
