package application

import (
	"context"
	"time"

	"github.com/su-fit-vut/ssrs/internal/domain/timeslot"
)

// SeatCache は残座席数の短期キャッシュを抽象化する
// 実装は infrastructure/redis のほか、テスト用のインメモリ実装を想定している
type SeatCache interface {
	// Get はキャッシュ値を取得する（未登録・期限切れは redis.ErrCacheMiss 相当）
	Get(ctx context.Context, key string) (int, error)
	// Set はキャッシュ値をTTL付きで保存する
	Set(ctx context.Context, key string, value int, ttl time.Duration) error
	// Delete は指定キーのキャッシュを無効化する
	Delete(ctx context.Context, keys ...string) error
}

// NotificationPort は外部メール送信の出力ポート
// 送信はベストエフォートであり、失敗しても予約状態の遷移を妨げてはならない
// 呼び出し側はエラーをログに残して無視する
type NotificationPort interface {
	// SendConfirmationRequest は確定依頼メールを送信する
	SendConfirmationRequest(ctx context.Context, to, confirmLink, cancelLink string, slots []timeslot.View) error
	// SendConfirmed は確定完了メールを送信する
	SendConfirmed(ctx context.Context, to string, seats int, cancelLink string, slots []timeslot.View) error
	// SendCancelled はキャンセル通知メールを送信する
	SendCancelled(ctx context.Context, to string, seats int, madeOn time.Time) error
	// SendReminder はリマインダーメールを送信する
	SendReminder(ctx context.Context, to string, seats int, cancelLink string, slots []timeslot.View) error
}

// ReminderJob は外部ジョブキューに積むリマインダージョブのペイロード
type ReminderJob struct {
	ReservationID int64           `json:"reservation_id"`
	Email         string          `json:"email"`
	Seats         int             `json:"seats"`
	CancelLink    string          `json:"cancel_link"`
	Slots         []timeslot.View `json:"slots"`
	RunAt         time.Time       `json:"run_at"`
}

// ReminderScheduler は遅延リマインダージョブを受け付ける外部キューのポート
// コアはジョブを積むだけで、実行はしない
type ReminderScheduler interface {
	Schedule(ctx context.Context, job ReminderJob) error
}
