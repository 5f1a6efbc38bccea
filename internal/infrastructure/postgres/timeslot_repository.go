package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/su-fit-vut/ssrs/internal/domain/timeslot"
)

type timeSlotRow struct {
	ID               int64     `db:"id"`
	ActivityID       int64     `db:"activity_id"`
	ActivityName     string    `db:"activity_name"`
	StartAt          time.Time `db:"start_at"`
	EndAt            time.Time `db:"end_at"`
	TotalSeats       int       `db:"total_seats"`
	Note             *string   `db:"note"`
	AlwaysConsumeOne bool      `db:"always_consume_one"`
}

type activityRow struct {
	ID   int64  `db:"id"`
	Name string `db:"name"`
}

const timeSlotColumns = `ts.id, ts.activity_id, a.name AS activity_name, ts.start_at, ts.end_at, ts.total_seats, ts.note, ts.always_consume_one`

// TimeSlotRepository はタイムスロットのPostgreSQLリポジトリ
type TimeSlotRepository struct{ db *sqlx.DB }

// NewTimeSlotRepository は新しい TimeSlotRepository を作成する
func NewTimeSlotRepository(db *sqlx.DB) *TimeSlotRepository {
	return &TimeSlotRepository{db: db}
}

func (r *TimeSlotRepository) GetByID(ctx context.Context, id int64) (*timeslot.TimeSlot, error) {
	var row timeSlotRow
	query := `SELECT ` + timeSlotColumns + ` FROM time_slots ts JOIN activities a ON a.id = ts.activity_id WHERE ts.id = $1`
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, timeslot.ErrTimeSlotNotFound
		}
		return nil, fmt.Errorf("スロット取得に失敗: %w", err)
	}
	return toTimeSlotEntity(&row), nil
}

func (r *TimeSlotRepository) ListByActivity(ctx context.Context, activityID int64) ([]*timeslot.TimeSlot, error) {
	var rows []timeSlotRow
	query := `SELECT ` + timeSlotColumns + ` FROM time_slots ts JOIN activities a ON a.id = ts.activity_id
		WHERE ts.activity_id = $1 ORDER BY ts.start_at, ts.id`
	if err := r.db.SelectContext(ctx, &rows, query, activityID); err != nil {
		return nil, fmt.Errorf("スロット一覧の取得に失敗: %w", err)
	}
	return toTimeSlotEntities(rows), nil
}

func (r *TimeSlotRepository) ListAll(ctx context.Context) ([]*timeslot.TimeSlot, error) {
	var rows []timeSlotRow
	query := `SELECT ` + timeSlotColumns + ` FROM time_slots ts JOIN activities a ON a.id = ts.activity_id ORDER BY ts.start_at, ts.id`
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("スロット一覧の取得に失敗: %w", err)
	}
	return toTimeSlotEntities(rows), nil
}

func (r *TimeSlotRepository) ListActivities(ctx context.Context) ([]*timeslot.Activity, error) {
	var rows []activityRow
	if err := r.db.SelectContext(ctx, &rows, `SELECT id, name FROM activities ORDER BY id`); err != nil {
		return nil, fmt.Errorf("アクティビティ一覧の取得に失敗: %w", err)
	}
	activities := make([]*timeslot.Activity, len(rows))
	for i, row := range rows {
		activities[i] = &timeslot.Activity{ID: row.ID, Name: row.Name}
	}
	return activities, nil
}

func toTimeSlotEntity(row *timeSlotRow) *timeslot.TimeSlot {
	return &timeslot.TimeSlot{
		ID:         row.ID,
		ActivityID: row.ActivityID,
		Activity:   &timeslot.Activity{ID: row.ActivityID, Name: row.ActivityName},
		Start:      row.StartAt,
		End:        row.EndAt,
		TotalSeats: row.TotalSeats,
		Note:       row.Note,

		AlwaysConsumeOnePerReservation: row.AlwaysConsumeOne,
	}
}

func toTimeSlotEntities(rows []timeSlotRow) []*timeslot.TimeSlot {
	result := make([]*timeslot.TimeSlot, len(rows))
	for i := range rows {
		result[i] = toTimeSlotEntity(&rows[i])
	}
	return result
}

var _ timeslot.Repository = (*TimeSlotRepository)(nil)
