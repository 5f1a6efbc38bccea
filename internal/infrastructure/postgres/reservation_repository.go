package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/su-fit-vut/ssrs/internal/domain/reservation"
	"github.com/su-fit-vut/ssrs/internal/domain/transaction"
)

type reservationRow struct {
	ID              int64      `db:"id"`
	Email           string     `db:"email"`
	MadeOn          time.Time  `db:"made_on"`
	ManagementToken string     `db:"management_token"`
	Seats           int        `db:"seats"`
	CancelledOn     *time.Time `db:"cancelled_on"`
	ConfirmedOn     *time.Time `db:"confirmed_on"`
	SleepOver       bool       `db:"sleep_over"`
	PubQuizTeamName *string    `db:"pub_quiz_team_name"`
	PubQuizSeats    int        `db:"pub_quiz_seats"`
}

type slotClaimRow struct {
	TimeSlotID int64 `db:"time_slot_id"`
	TakenSeats int   `db:"taken_seats"`
}

const reservationColumns = `id, email, made_on, management_token, seats, cancelled_on, confirmed_on, sleep_over, pub_quiz_team_name, pub_quiz_seats`

// ReservationRepository は予約のPostgreSQLリポジトリ
type ReservationRepository struct{ db *sqlx.DB }

// NewReservationRepository は新しい ReservationRepository を作成する
func NewReservationRepository(db *sqlx.DB) *ReservationRepository {
	return &ReservationRepository{db: db}
}

func (r *ReservationRepository) Create(ctx context.Context, tx transaction.Tx, res *reservation.Reservation) error {
	sqlxTx := UnwrapTx(tx)
	if sqlxTx == nil {
		return errors.New("トランザクションの型が不正です")
	}

	query := `INSERT INTO reservations (email, made_on, management_token, seats, cancelled_on, confirmed_on, sleep_over, pub_quiz_team_name, pub_quiz_seats)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`
	if err := sqlxTx.QueryRowContext(ctx, query,
		res.Email, res.MadeOn, res.ManagementToken, res.Seats,
		res.CancelledOn, res.ConfirmedOn, res.SleepOver,
		res.PubQuizTeamName, res.PubQuizSeats,
	).Scan(&res.ID); err != nil {
		var pgErr *pq.Error
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return reservation.ErrEmailConflict
		}
		return fmt.Errorf("予約作成に失敗: %w", err)
	}

	for _, claim := range res.SlotClaims {
		if _, err := sqlxTx.ExecContext(ctx,
			`INSERT INTO reservation_time_slots (reservation_id, time_slot_id, taken_seats) VALUES ($1, $2, $3)`,
			res.ID, claim.TimeSlotID, claim.TakenSeats); err != nil {
			return fmt.Errorf("スロット枠の関連付けに失敗: %w", err)
		}
	}
	return nil
}

func (r *ReservationRepository) GetByEmail(ctx context.Context, email string) (*reservation.Reservation, error) {
	var row reservationRow
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE email = $1`
	if err := r.db.GetContext(ctx, &row, query, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, reservation.ErrReservationNotFound
		}
		return nil, fmt.Errorf("予約取得に失敗: %w", err)
	}
	claims, err := r.getSlotClaims(ctx, row.ID)
	if err != nil {
		return nil, err
	}
	return toEntity(&row, claims), nil
}

func (r *ReservationRepository) GetByID(ctx context.Context, id int64) (*reservation.Reservation, error) {
	var row reservationRow
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE id = $1`
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, reservation.ErrReservationNotFound
		}
		return nil, fmt.Errorf("予約取得に失敗: %w", err)
	}
	claims, err := r.getSlotClaims(ctx, row.ID)
	if err != nil {
		return nil, err
	}
	return toEntity(&row, claims), nil
}

func (r *ReservationRepository) Delete(ctx context.Context, tx transaction.Tx, id int64) error {
	sqlxTx := UnwrapTx(tx)
	if sqlxTx == nil {
		return errors.New("トランザクションの型が不正です")
	}

	// スロット枠は外部キーのカスケードで一緒に消える
	if _, err := sqlxTx.ExecContext(ctx, `DELETE FROM reservations WHERE id = $1`, id); err != nil {
		return fmt.Errorf("予約削除に失敗: %w", err)
	}
	return nil
}

func (r *ReservationRepository) Update(ctx context.Context, tx transaction.Tx, res *reservation.Reservation) error {
	sqlxTx := UnwrapTx(tx)
	if sqlxTx == nil {
		return errors.New("トランザクションの型が不正です")
	}

	query := `UPDATE reservations SET confirmed_on = $1, cancelled_on = $2 WHERE id = $3`
	result, err := sqlxTx.ExecContext(ctx, query, res.ConfirmedOn, res.CancelledOn, res.ID)
	if err != nil {
		return fmt.Errorf("予約更新に失敗: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return reservation.ErrReservationNotFound
	}
	return nil
}

func (r *ReservationRepository) SumCountedSeats(ctx context.Context, unconfirmedCutoff time.Time) (int, error) {
	var taken int
	query := `SELECT COALESCE(SUM(seats), 0) FROM reservations
		WHERE cancelled_on IS NULL AND (confirmed_on IS NOT NULL OR made_on > $1)`
	if err := r.db.GetContext(ctx, &taken, query, unconfirmedCutoff); err != nil {
		return 0, fmt.Errorf("消費座席数の集計に失敗: %w", err)
	}
	return taken, nil
}

func (r *ReservationRepository) SumCountedSlotSeats(ctx context.Context, timeSlotID int64, unconfirmedCutoff time.Time) (int, error) {
	var taken int
	query := `SELECT COALESCE(SUM(CASE WHEN ts.always_consume_one THEN 1 ELSE r.seats END), 0)
		FROM reservation_time_slots a
		JOIN reservations r ON r.id = a.reservation_id
		JOIN time_slots ts ON ts.id = a.time_slot_id
		WHERE a.time_slot_id = $1
		  AND r.cancelled_on IS NULL
		  AND (r.confirmed_on IS NOT NULL OR r.made_on > $2)`
	if err := r.db.GetContext(ctx, &taken, query, timeSlotID, unconfirmedCutoff); err != nil {
		return 0, fmt.Errorf("スロット消費枠の集計に失敗: %w", err)
	}
	return taken, nil
}

func (r *ReservationRepository) ListConfirmed(ctx context.Context) ([]*reservation.Reservation, error) {
	var rows []reservationRow
	query := `SELECT ` + reservationColumns + ` FROM reservations
		WHERE confirmed_on IS NOT NULL AND cancelled_on IS NULL ORDER BY made_on`
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("確定済み予約の取得に失敗: %w", err)
	}

	result := make([]*reservation.Reservation, len(rows))
	for i := range rows {
		claims, err := r.getSlotClaims(ctx, rows[i].ID)
		if err != nil {
			return nil, err
		}
		result[i] = toEntity(&rows[i], claims)
	}
	return result, nil
}

func (r *ReservationRepository) getSlotClaims(ctx context.Context, reservationID int64) ([]reservation.SlotClaim, error) {
	var rows []slotClaimRow
	query := `SELECT time_slot_id, taken_seats FROM reservation_time_slots WHERE reservation_id = $1 ORDER BY time_slot_id`
	if err := r.db.SelectContext(ctx, &rows, query, reservationID); err != nil {
		return nil, fmt.Errorf("スロット枠の取得に失敗: %w", err)
	}
	claims := make([]reservation.SlotClaim, len(rows))
	for i, row := range rows {
		claims[i] = reservation.SlotClaim{TimeSlotID: row.TimeSlotID, TakenSeats: row.TakenSeats}
	}
	return claims, nil
}

func toEntity(row *reservationRow, claims []reservation.SlotClaim) *reservation.Reservation {
	return &reservation.Reservation{
		ID:              row.ID,
		Email:           row.Email,
		MadeOn:          row.MadeOn,
		ManagementToken: row.ManagementToken,
		Seats:           row.Seats,
		CancelledOn:     row.CancelledOn,
		ConfirmedOn:     row.ConfirmedOn,
		SleepOver:       row.SleepOver,
		PubQuizTeamName: row.PubQuizTeamName,
		PubQuizSeats:    row.PubQuizSeats,
		SlotClaims:      claims,
	}
}

var _ reservation.Repository = (*ReservationRepository)(nil)
