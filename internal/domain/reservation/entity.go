package reservation

import (
	"strings"
	"time"
)

// ManagementTokenLength は管理トークンの長さ（256ビットの16進表現）
const ManagementTokenLength = 64

// PubQuizTeamNameMaxLength はクイズチーム名の最大長
const PubQuizTeamNameMaxLength = 32

// SlotClaim は予約が消費するタイムスロット枠を表す
// TakenSeats は現状常に1だが、スロットごとのポリシーで上書き可能にしている
type SlotClaim struct {
	TimeSlotID int64
	TakenSeats int
}

// Reservation は予約エンティティを表す
// 1つの正規化済みメールアドレスにつきアクティブな予約は最大1件
type Reservation struct {
	ID              int64
	Email           string
	MadeOn          time.Time
	ManagementToken string
	Seats           int
	CancelledOn     *time.Time
	ConfirmedOn     *time.Time
	SleepOver       bool
	PubQuizTeamName *string
	PubQuizSeats    int
	SlotClaims      []SlotClaim
}

// NewReservation は新しい予約を作成する
// 確定が不要な場合は madeOn をそのまま確定時刻として記録する
func NewReservation(email, token string, seats int, madeOn time.Time, mustConfirm bool) *Reservation {
	r := &Reservation{
		Email:           NormalizeEmail(email),
		MadeOn:          madeOn,
		ManagementToken: token,
		Seats:           seats,
	}
	if !mustConfirm {
		confirmed := madeOn
		r.ConfirmedOn = &confirmed
	}
	return r
}

// NormalizeEmail はメールアドレスを正規化（小文字化）する
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Cancelled は予約がキャンセル済みかを返す
func (r *Reservation) Cancelled() bool {
	return r.CancelledOn != nil
}

// Confirmed は予約が確定済みかを返す
func (r *Reservation) Confirmed() bool {
	return r.ConfirmedOn != nil
}

// Pending は予約が確定待ちかを返す
func (r *Reservation) Pending() bool {
	return !r.Cancelled() && !r.Confirmed()
}

// CountedAt は予約が時刻 now の時点で座席数に算入されるかを返す
// キャンセル済みでなく、確定済みか未確定有効期間内であれば算入される
func (r *Reservation) CountedAt(now time.Time, window time.Duration) bool {
	if r.Cancelled() {
		return false
	}
	return r.Confirmed() || now.Sub(r.MadeOn) < window
}

// HeldSeatsAt は同一メールでの再予約時に返還すべき保持座席数を返す
// 未確定有効期間内の確定待ち予約だけが自分自身の枠を保持している
func (r *Reservation) HeldSeatsAt(now time.Time, window time.Duration) int {
	if !r.Pending() {
		return 0
	}
	if now.Sub(r.MadeOn) >= window {
		return 0
	}
	return r.Seats
}

// ClaimsSlot は予約が指定スロットの枠を消費しているかを返す
func (r *Reservation) ClaimsSlot(timeSlotID int64) bool {
	for _, c := range r.SlotClaims {
		if c.TimeSlotID == timeSlotID {
			return true
		}
	}
	return false
}

// Confirm は予約を確定する
func (r *Reservation) Confirm(now time.Time) error {
	if r.Cancelled() {
		return ErrReservationCancelled
	}
	if r.Confirmed() {
		return ErrAlreadyConfirmed
	}
	confirmed := now
	r.ConfirmedOn = &confirmed
	return nil
}

// Cancel は予約をキャンセルする（キャンセルは終端状態）
func (r *Reservation) Cancel(now time.Time) error {
	if r.Cancelled() {
		return ErrAlreadyCancelled
	}
	cancelled := now
	r.CancelledOn = &cancelled
	return nil
}

// Validate は予約の検証を行う
func (r *Reservation) Validate() error {
	if r.Email == "" {
		return ErrEmailRequired
	}
	if r.Seats < 1 {
		return ErrInvalidSeats
	}
	if len(r.ManagementToken) != ManagementTokenLength {
		return ErrInvalidTokenFormat
	}
	if r.PubQuizTeamName != nil && len(*r.PubQuizTeamName) > PubQuizTeamNameMaxLength {
		return ErrTeamNameTooLong
	}
	return nil
}
