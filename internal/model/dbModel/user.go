package dbModel

import "time"

type User struct {
	UserID   int64     `db:"user_id"`
	Username string    `db:"username"`
	Email    string    `db:"email"`
	Password string    `db:"password"`
	Role     string    `db:"role"`
	DtCreate time.Time `db:"dt_create"`
}
