package models

import "github.com/uptrace/bun"

// Participation is one runner in a finished race. Position is null for
// runners that did not finish or were scratched.
type Participation struct {
	bun.BaseModel `bun:"table:participaciones,alias:p"`

	ID            int64  `bun:"id,pk,autoincrement" json:"id"`
	RaceID        int64  `bun:"carrera_id,notnull,unique:participaciones_no_dupes" json:"carreraID"`
	Position      *int   `bun:"posicion" json:"posicion,omitempty"`
	ProgramNumber *int   `bun:"mandil,unique:participaciones_no_dupes" json:"mandil,omitempty"`
	HorseID       *int64 `bun:"caballo_id" json:"caballoID,omitempty"`
}
