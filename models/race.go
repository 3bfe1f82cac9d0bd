package models

import "github.com/uptrace/bun"

// Race is a single race within a meeting.
type Race struct {
	bun.BaseModel `bun:"table:carreras,alias:c"`

	ID        int64   `bun:"id,pk,autoincrement" json:"id"`
	MeetingID int64   `bun:"jornada_id,notnull,unique:carreras_no_dupes" json:"jornadaID"`
	Number    int     `bun:"numero,notnull,unique:carreras_no_dupes" json:"numero"`
	Distance  *int    `bun:"distancia" json:"distancia,omitempty"`
	Time      *string `bun:"hora" json:"hora,omitempty"`

	Meeting *Meeting `bun:"rel:belongs-to,join:jornada_id=id" json:"-"`
}
