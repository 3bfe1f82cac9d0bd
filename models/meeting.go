package models

import "github.com/uptrace/bun"

// Meeting is one day's card at a track (jornada).
type Meeting struct {
	bun.BaseModel `bun:"table:jornadas,alias:j"`

	ID      int64  `bun:"id,pk,autoincrement" json:"id"`
	TrackID int64  `bun:"hipodromo_id,notnull,unique:jornadas_no_dupes" json:"hipodromoID"`
	Date    string `bun:"fecha,notnull,type:date,unique:jornadas_no_dupes" json:"fecha"`

	Track *Track `bun:"rel:belongs-to,join:hipodromo_id=id" json:"-"`
}
