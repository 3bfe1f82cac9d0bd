package models

import "github.com/uptrace/bun"

// Track is a racecourse (hipódromo).
type Track struct {
	bun.BaseModel `bun:"table:hipodromos,alias:h"`

	ID   int64  `bun:"id,pk,autoincrement" json:"id"`
	Name string `bun:"nombre,notnull,unique" json:"nombre"`
}
