package reservation

import (
	"context"
	"time"

	"github.com/su-fit-vut/ssrs/internal/domain/transaction"
)

// Repository は予約リポジトリのインターフェース
type Repository interface {
	// Create は新しい予約とスロット枠を作成する（トランザクション必須）
	// メールアドレスの一意制約違反は ErrEmailConflict を返す
	Create(ctx context.Context, tx transaction.Tx, reservation *Reservation) error

	// GetByEmail は正規化済みメールアドレスから予約を取得する（スロット枠込み）
	GetByEmail(ctx context.Context, email string) (*Reservation, error)

	// GetByID はIDから予約を取得する（スロット枠込み）
	GetByID(ctx context.Context, id int64) (*Reservation, error)

	// Delete は予約を削除する（スロット枠はカスケード削除、トランザクション必須）
	Delete(ctx context.Context, tx transaction.Tx, id int64) error

	// Update は確定・キャンセル時刻を更新する（トランザクション必須）
	Update(ctx context.Context, tx transaction.Tx, reservation *Reservation) error

	// SumCountedSeats は算入対象の予約の座席数合計を返す
	// 算入対象: キャンセルされておらず、確定済みか madeOn > unconfirmedCutoff
	SumCountedSeats(ctx context.Context, unconfirmedCutoff time.Time) (int, error)

	// SumCountedSlotSeats は指定スロットの算入対象消費枠の合計を返す
	// 消費枠はスロットのポリシーに従う（常に1、または予約の座席数）
	SumCountedSlotSeats(ctx context.Context, timeSlotID int64, unconfirmedCutoff time.Time) (int, error)

	// ListConfirmed は確定済みかつ未キャンセルの予約一覧を返す（スロット枠込み）
	ListConfirmed(ctx context.Context) ([]*Reservation, error)
}
