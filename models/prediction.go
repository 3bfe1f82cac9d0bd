package models

import "github.com/uptrace/bun"

// Prediction is the model's output for one entered runner of an upcoming
// race. Only the entry itself is used here; the probability is produced
// elsewhere.
type Prediction struct {
	bun.BaseModel `bun:"table:predicciones,alias:pr"`

	ID            int64    `bun:"id,pk,autoincrement" json:"id"`
	RaceID        int64    `bun:"carrera_id,notnull,unique:predicciones_no_dupes" json:"carreraID"`
	ProgramNumber int      `bun:"numero_caballo,notnull,unique:predicciones_no_dupes" json:"numeroCaballo"`
	Probability   *float64 `bun:"probabilidad" json:"probabilidad,omitempty"`
}
