package dbModel

import "time"

type InvestmentDocument struct {
	ID        int64     `db:"id"`
	UserEmail string    `db:"user_email"`
	Doc       []byte    `db:"doc"`
	DtUpdate  time.Time `db:"dt_update"`
}
