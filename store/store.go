// Package store reads race results and upcoming fields from the racing
// database and maps them to the typed records the pattern engine consumes.
package store

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/uptrace/bun"

	"github.com/pistainteligente/pista/patterns"
)

const dateLayout = "2006-01-02"

// RaceResultStore is the read-only view of the racing database.
type RaceResultStore interface {
	FinishRecords(ctx context.Context, since time.Time) ([]patterns.FinishRecord, error)
	UpcomingFields(ctx context.Context, from time.Time) ([]patterns.UpcomingField, error)
	Tracks(ctx context.Context) ([]string, error)
	Ping(ctx context.Context) error
}

// FetchError wraps any failure reading from the database, including rows
// that cannot be mapped.
type FetchError struct {
	Op  string
	Err error
}

func (e *FetchError) Error() string { return "store: " + e.Op + ": " + e.Err.Error() }

func (e *FetchError) Unwrap() error { return e.Err }

// Store implements RaceResultStore with bun.
type Store struct {
	db *bun.DB
}

// New creates a Store over db.
func New(db *bun.DB) *Store {
	return &Store{db: db}
}

// finishRow is a flat scan target for the results join query.
type finishRow struct {
	RaceID     int64  `bun:"carrera_id"`
	Position   int    `bun:"posicion"`
	Number     int    `bun:"mandil"`
	Date       string `bun:"fecha"`
	Track      string `bun:"hipodromo"`
	RaceNumber int    `bun:"nro_carrera"`
}

const finishSQL = `
SELECT
	p.carrera_id, p.posicion, p.mandil,
	CAST(j.fecha AS TEXT) AS fecha, h.nombre AS hipodromo, c.numero AS nro_carrera
FROM participaciones p
INNER JOIN carreras   c ON c.id = p.carrera_id
INNER JOIN jornadas   j ON j.id = c.jornada_id
INNER JOIN hipodromos h ON h.id = j.hipodromo_id
WHERE j.fecha >= ? AND p.posicion <= ? AND p.posicion IS NOT NULL AND p.mandil IS NOT NULL
ORDER BY p.carrera_id, p.posicion
`

// FinishRecords returns top-4 finishers of races run on or after since.
// Runners without a saddle number are dropped.
func (s *Store) FinishRecords(ctx context.Context, since time.Time) ([]patterns.FinishRecord, error) {
	var rows []finishRow
	if err := s.db.NewRaw(finishSQL, since.Format(dateLayout), patterns.MaxPosition).Scan(ctx, &rows); err != nil {
		return nil, &FetchError{Op: "finish records", Err: err}
	}

	out := make([]patterns.FinishRecord, 0, len(rows))
	for _, row := range rows {
		date, err := parseDate(row.Date)
		if err != nil {
			return nil, &FetchError{Op: "finish records", Err: fmt.Errorf("race %d: %w", row.RaceID, err)}
		}
		out = append(out, patterns.FinishRecord{
			RaceID:        row.RaceID,
			Position:      row.Position,
			ProgramNumber: row.Number,
			MeetingDate:   date,
			TrackName:     strings.TrimSpace(row.Track),
			RaceNumber:    row.RaceNumber,
		})
	}
	return out, nil
}

type entryRow struct {
	RaceID int64 `bun:"carrera_id"`
	Number int   `bun:"numero_caballo"`
}

// UpcomingFields returns the entered saddle numbers of races on or after from.
func (s *Store) UpcomingFields(ctx context.Context, from time.Time) ([]patterns.UpcomingField, error) {
	var rows []entryRow
	err := s.db.NewSelect().
		TableExpr("predicciones pr").
		ColumnExpr("pr.carrera_id, pr.numero_caballo").
		Join("INNER JOIN carreras c ON c.id = pr.carrera_id").
		Join("INNER JOIN jornadas j ON j.id = c.jornada_id").
		Where("j.fecha >= ?", from.Format(dateLayout)).
		OrderExpr("pr.carrera_id, pr.numero_caballo").
		Scan(ctx, &rows)
	if err != nil {
		return nil, &FetchError{Op: "upcoming fields", Err: err}
	}

	order := []int64{}
	fields := map[int64]*patterns.UpcomingField{}
	for _, row := range rows {
		f, ok := fields[row.RaceID]
		if !ok {
			order = append(order, row.RaceID)
			f = &patterns.UpcomingField{RaceID: row.RaceID}
			fields[row.RaceID] = f
		}
		if !slices.Contains(f.ProgramNumbers, row.Number) {
			f.ProgramNumbers = append(f.ProgramNumbers, row.Number)
		}
	}

	out := make([]patterns.UpcomingField, 0, len(order))
	for _, id := range order {
		out = append(out, *fields[id])
	}
	return out, nil
}

// Tracks returns all track names alphabetically.
func (s *Store) Tracks(ctx context.Context) ([]string, error) {
	var names []string
	err := s.db.NewSelect().
		TableExpr("hipodromos").
		ColumnExpr("nombre").
		OrderExpr("nombre ASC").
		Scan(ctx, &names)
	if err != nil {
		return nil, &FetchError{Op: "tracks", Err: err}
	}
	return names, nil
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return &FetchError{Op: "ping", Err: err}
	}
	return nil
}

// parseDate accepts a bare date or anything starting with one.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if len(s) > len(dateLayout) {
		s = s[:len(dateLayout)]
	}
	return time.Parse(dateLayout, s)
}
