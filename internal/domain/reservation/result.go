package reservation

import "github.com/su-fit-vut/ssrs/internal/domain/timeslot"

// AttemptCode は予約作成の結果コード
type AttemptCode string

const (
	// AttemptMustConfirm は予約を受け付け、確定待ちであることを表す
	AttemptMustConfirm AttemptCode = "must_confirm"
	// AttemptConfirmed は確定不要の予約が即時成立したことを表す
	AttemptConfirmed AttemptCode = "confirmed"
	// AttemptNoSeatsLeft は全体の座席が不足していることを表す
	AttemptNoSeatsLeft AttemptCode = "no_seats_left"
	// AttemptEmailTaken は同じメールの確定済み予約が存在することを表す
	AttemptEmailTaken AttemptCode = "email_taken"
	// AttemptTimeslotError は選択スロットの枠が確保できないことを表す
	AttemptTimeslotError AttemptCode = "timeslot_error"
	// AttemptError は永続化等の内部エラーを表す
	AttemptError AttemptCode = "error"
)

// AttemptResult は予約作成の型付き結果
// エラーはコアの境界を越えて panic せず、常にこの型で返す
type AttemptResult struct {
	Code AttemptCode
	// Slot は TimeslotError の際に問題のスロットの表示モデルを持つ
	Slot *timeslot.View
	// Message は Error の際の説明を持つ
	Message string
}

// NewAttemptResult はコードのみの結果を作る
func NewAttemptResult(code AttemptCode) AttemptResult {
	return AttemptResult{Code: code}
}

// NewTimeslotAttemptError は問題スロット付きの結果を作る
func NewTimeslotAttemptError(slot *timeslot.View, message string) AttemptResult {
	return AttemptResult{Code: AttemptTimeslotError, Slot: slot, Message: message}
}

// NewAttemptError はメッセージ付きの内部エラー結果を作る
func NewAttemptError(message string) AttemptResult {
	return AttemptResult{Code: AttemptError, Message: message}
}

// CompletionCode は予約確定・キャンセルの結果コード
type CompletionCode string

const (
	// CompletionConfirmed は操作が成功したことを表す
	CompletionConfirmed CompletionCode = "confirmed"
	// CompletionAlreadyConfirmed は既に確定済みであることを表す（冪等）
	CompletionAlreadyConfirmed CompletionCode = "already_confirmed"
	// CompletionAlreadyCancelled は既にキャンセル済みであることを表す（冪等）
	CompletionAlreadyCancelled CompletionCode = "already_cancelled"
	// CompletionNoSeatsLeft は再検証で座席が不足したことを表す
	CompletionNoSeatsLeft CompletionCode = "no_seats_left"
	// CompletionTimeslotError は再検証でスロット枠が不足したことを表す
	CompletionTimeslotError CompletionCode = "timeslot_error"
	// CompletionNotFound はアクティブな予約が存在しないことを表す
	CompletionNotFound CompletionCode = "not_found"
	// CompletionInvalidToken は管理トークンが一致しないことを表す
	CompletionInvalidToken CompletionCode = "invalid_token"
	// CompletionError は永続化等の内部エラーを表す
	CompletionError CompletionCode = "error"
)

// CompletionResult は予約確定・キャンセルの型付き結果
type CompletionResult struct {
	Code    CompletionCode
	Slot    *timeslot.View
	Message string
}

// NewCompletionResult はコードのみの結果を作る
func NewCompletionResult(code CompletionCode) CompletionResult {
	return CompletionResult{Code: code}
}

// NewTimeslotCompletionError は問題スロット付きの結果を作る
func NewTimeslotCompletionError(slot *timeslot.View) CompletionResult {
	return CompletionResult{Code: CompletionTimeslotError, Slot: slot}
}

// NewCompletionError はメッセージ付きの内部エラー結果を作る
func NewCompletionError(message string) CompletionResult {
	return CompletionResult{Code: CompletionError, Message: message}
}

// Success は操作が成功または冪等に完了したかを返す
func (r CompletionResult) Success() bool {
	switch r.Code {
	case CompletionConfirmed, CompletionAlreadyConfirmed, CompletionAlreadyCancelled:
		return true
	}
	return false
}
