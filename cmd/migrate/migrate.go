package main

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/pistainteligente/pista/models"
)

const batchSize = 500

// stepCount reports one table. unmapped rows had no parent in the
// destination or no natural key to deduplicate on.
type stepCount struct {
	table    string
	read     int
	inserted int
	unmapped int
}

// migrator copies src into dst, translating ids through natural keys.
type migrator struct {
	src, dst *bun.DB

	tracks   map[int64]int64 // src hipodromo id -> dst id
	meetings map[int64]int64 // src jornada id -> dst id
	races    map[int64]int64 // src carrera id -> dst id
}

func newMigrator(src, dst *bun.DB) *migrator {
	return &migrator{
		src:      src,
		dst:      dst,
		tracks:   make(map[int64]int64),
		meetings: make(map[int64]int64),
		races:    make(map[int64]int64),
	}
}

// run executes each step in dependency order and stops at the first error.
// Counts for the steps that ran are returned either way.
func (m *migrator) run(ctx context.Context) ([]stepCount, error) {
	steps := []struct {
		name string
		fn   func(context.Context) (stepCount, error)
	}{
		{"hipodromos", m.migrateTracks},
		{"jornadas", m.migrateMeetings},
		{"carreras", m.migrateRaces},
		{"participaciones", m.migrateParticipations},
		{"predicciones", m.migratePredictions},
	}

	var counts []stepCount
	for _, s := range steps {
		c, err := s.fn(ctx)
		c.table = s.name
		counts = append(counts, c)
		if err != nil {
			return counts, fmt.Errorf("%s: %w", s.name, err)
		}
	}
	return counts, nil
}

// insertBatches inserts rows in chunks, leaving rows that hit the conflict
// target alone. It returns the number of rows actually written.
func insertBatches[T any](ctx context.Context, db *bun.DB, rows []T, conflict string) (int, error) {
	total := 0
	for start := 0; start < len(rows); start += batchSize {
		end := min(start+batchSize, len(rows))
		batch := rows[start:end]
		res, err := db.NewInsert().
			Model(&batch).
			On("CONFLICT (" + conflict + ") DO NOTHING").
			Returning("NULL").
			Exec(ctx)
		if err != nil {
			return total, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return total, err
		}
		total += int(n)
	}
	return total, nil
}

func (m *migrator) migrateTracks(ctx context.Context) (stepCount, error) {
	var c stepCount
	var src []models.Track
	if err := m.src.NewSelect().Model(&src).Order("h.id").Scan(ctx); err != nil {
		return c, err
	}
	c.read = len(src)

	rows := make([]models.Track, 0, len(src))
	for _, t := range src {
		rows = append(rows, models.Track{Name: t.Name})
	}
	n, err := insertBatches(ctx, m.dst, rows, "nombre")
	c.inserted = n
	if err != nil {
		return c, err
	}

	var dst []models.Track
	if err := m.dst.NewSelect().Model(&dst).Scan(ctx); err != nil {
		return c, err
	}
	byName := make(map[string]int64, len(dst))
	for _, t := range dst {
		byName[t.Name] = t.ID
	}
	for _, t := range src {
		id, ok := byName[t.Name]
		if !ok {
			c.unmapped++
			continue
		}
		m.tracks[t.ID] = id
	}
	return c, nil
}

// meetingRow reads fecha as text; sqlite drivers otherwise hand back a time.
type meetingRow struct {
	ID      int64  `bun:"id"`
	TrackID int64  `bun:"hipodromo_id"`
	Date    string `bun:"fecha"`
}

const meetingSQL = `SELECT j.id, j.hipodromo_id, CAST(j.fecha AS TEXT) AS fecha FROM jornadas AS j ORDER BY j.id`

func meetingKey(trackID int64, date string) string {
	if len(date) > 10 {
		date = date[:10]
	}
	return fmt.Sprintf("%d/%s", trackID, date)
}

func (m *migrator) migrateMeetings(ctx context.Context) (stepCount, error) {
	var c stepCount
	var src []meetingRow
	if err := m.src.NewRaw(meetingSQL).Scan(ctx, &src); err != nil {
		return c, err
	}
	c.read = len(src)

	rows := make([]models.Meeting, 0, len(src))
	for _, j := range src {
		trackID, ok := m.tracks[j.TrackID]
		if !ok {
			c.unmapped++
			continue
		}
		date := j.Date
		if len(date) > 10 {
			date = date[:10]
		}
		rows = append(rows, models.Meeting{TrackID: trackID, Date: date})
	}
	n, err := insertBatches(ctx, m.dst, rows, "hipodromo_id, fecha")
	c.inserted = n
	if err != nil {
		return c, err
	}

	var dst []meetingRow
	if err := m.dst.NewRaw(meetingSQL).Scan(ctx, &dst); err != nil {
		return c, err
	}
	byKey := make(map[string]int64, len(dst))
	for _, j := range dst {
		byKey[meetingKey(j.TrackID, j.Date)] = j.ID
	}
	for _, j := range src {
		trackID, ok := m.tracks[j.TrackID]
		if !ok {
			continue
		}
		if id, ok := byKey[meetingKey(trackID, j.Date)]; ok {
			m.meetings[j.ID] = id
		}
	}
	return c, nil
}

func raceKey(meetingID int64, number int) string {
	return fmt.Sprintf("%d/%d", meetingID, number)
}

func (m *migrator) migrateRaces(ctx context.Context) (stepCount, error) {
	var c stepCount
	var src []models.Race
	if err := m.src.NewSelect().Model(&src).Order("c.id").Scan(ctx); err != nil {
		return c, err
	}
	c.read = len(src)

	rows := make([]models.Race, 0, len(src))
	for _, r := range src {
		meetingID, ok := m.meetings[r.MeetingID]
		if !ok {
			c.unmapped++
			continue
		}
		rows = append(rows, models.Race{
			MeetingID: meetingID,
			Number:    r.Number,
			Distance:  r.Distance,
			Time:      r.Time,
		})
	}
	n, err := insertBatches(ctx, m.dst, rows, "jornada_id, numero")
	c.inserted = n
	if err != nil {
		return c, err
	}

	var dst []models.Race
	if err := m.dst.NewSelect().Model(&dst).Column("id", "jornada_id", "numero").Scan(ctx); err != nil {
		return c, err
	}
	byKey := make(map[string]int64, len(dst))
	for _, r := range dst {
		byKey[raceKey(r.MeetingID, r.Number)] = r.ID
	}
	for _, r := range src {
		meetingID, ok := m.meetings[r.MeetingID]
		if !ok {
			continue
		}
		if id, ok := byKey[raceKey(meetingID, r.Number)]; ok {
			m.races[r.ID] = id
		}
	}
	return c, nil
}

// migrateParticipations skips runners without a mandil: they carry no
// natural key, so a re-run would duplicate them. Horses live in a table this
// tool does not copy, so caballo_id is dropped.
func (m *migrator) migrateParticipations(ctx context.Context) (stepCount, error) {
	var c stepCount
	var src []models.Participation
	if err := m.src.NewSelect().Model(&src).Order("p.id").Scan(ctx); err != nil {
		return c, err
	}
	c.read = len(src)

	rows := make([]models.Participation, 0, len(src))
	for _, p := range src {
		raceID, ok := m.races[p.RaceID]
		if !ok || p.ProgramNumber == nil {
			c.unmapped++
			continue
		}
		rows = append(rows, models.Participation{
			RaceID:        raceID,
			Position:      p.Position,
			ProgramNumber: p.ProgramNumber,
		})
	}
	n, err := insertBatches(ctx, m.dst, rows, "carrera_id, mandil")
	c.inserted = n
	return c, err
}

func (m *migrator) migratePredictions(ctx context.Context) (stepCount, error) {
	var c stepCount
	var src []models.Prediction
	if err := m.src.NewSelect().Model(&src).Order("pr.id").Scan(ctx); err != nil {
		return c, err
	}
	c.read = len(src)

	rows := make([]models.Prediction, 0, len(src))
	for _, p := range src {
		raceID, ok := m.races[p.RaceID]
		if !ok {
			c.unmapped++
			continue
		}
		rows = append(rows, models.Prediction{
			RaceID:        raceID,
			ProgramNumber: p.ProgramNumber,
			Probability:   p.Probability,
		})
	}
	n, err := insertBatches(ctx, m.dst, rows, "carrera_id, numero_caballo")
	c.inserted = n
	return c, err
}
