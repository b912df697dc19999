package postgres

import (
	"context"
	"log/slog"
	"time"

	"github.com/KotFed0t/trading_assistant/internal/converter/dbConverter"
	"github.com/KotFed0t/trading_assistant/internal/model"
	"github.com/KotFed0t/trading_assistant/internal/model/dbModel"
	"github.com/KotFed0t/trading_assistant/utils"
)

func (r *Postgres) InsertCalendarEvent(ctx context.Context, date time.Time, title, url string) (event model.CalendarEvent, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `INSERT INTO calendar(date, title, url) VALUES($1, $2, $3) RETURNING id, date, title, url`

	slog.Debug("InsertCalendarEvent start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("InsertCalendarEvent failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("InsertCalendarEvent completed", slog.String("rqID", rqID))
		}
	}()

	dbEvent := dbModel.CalendarEvent{}
	err = r.txOrDb(ctx).QueryRowxContext(ctx, query, date, title, url).StructScan(&dbEvent)
	if err != nil {
		return model.CalendarEvent{}, err
	}

	return dbConverter.ConvertCalendarEvent(dbEvent), nil
}
