package reservation

import "errors"

// Reservation ドメインのエラー定義
var (
	ErrReservationNotFound  = errors.New("予約が見つかりません")
	ErrReservationCancelled = errors.New("予約はキャンセル済みです")
	ErrAlreadyConfirmed     = errors.New("予約は既に確定されています")
	ErrAlreadyCancelled     = errors.New("予約は既にキャンセルされています")
	ErrEmailConflict        = errors.New("同じメールアドレスの予約が既に存在します")
	ErrEmailRequired        = errors.New("メールアドレスは必須です")
	ErrInvalidSeats         = errors.New("座席数は1以上である必要があります")
	ErrInvalidTokenFormat   = errors.New("管理トークンの形式が不正です")
	ErrTeamNameTooLong      = errors.New("クイズチーム名が長すぎます")
)
