package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/su-fit-vut/ssrs/internal/domain/reservation"
	"github.com/su-fit-vut/ssrs/internal/domain/timeslot"
	"github.com/su-fit-vut/ssrs/internal/domain/transaction"
	"github.com/su-fit-vut/ssrs/internal/pkg/clock"
	"github.com/su-fit-vut/ssrs/internal/pkg/link"
	"github.com/su-fit-vut/ssrs/internal/pkg/logger"
	"github.com/su-fit-vut/ssrs/internal/pkg/metrics"
	"github.com/su-fit-vut/ssrs/internal/pkg/token"
)

// ReservationModel は予約作成リクエストの入力モデル
type ReservationModel struct {
	Email           string
	Seats           int
	SleepOver       bool
	SlotSelections  []int64
	PubQuizTeamName *string
	PubQuizSeats    *int
}

// ReservationService は予約の状態遷移を司る
//
// 容量チェックと書き込みはロックを跨いで保持せずに行う。異なるメールからの
// 並行予約が両方チェックを通過し、交錯のぶんだけ超過予約になり得ることは
// 設計上許容している（小規模イベント、人間スケールの並行度）。より強い保証が
// 必要になった場合は、チェックと書き込みを直列化可能トランザクションで包むか、
// 「イベント座席」「スロットN」をキーにしたアドバイザリロック（Redis の
// SetNX ロック等）を導入すること。同一メールの並行操作は一意制約が直列化する。
type ReservationService struct {
	txManager transaction.Manager
	resRepo   reservation.Repository
	slotRepo  timeslot.Repository
	ledger    *SeatLedger
	slots     *SlotService
	notifier  NotificationPort
	links     link.Builder
	reminders ReminderScheduler
	tokens    token.Generator
	clk       clock.Clock

	maxSeatsPerEmail int
}

// NewReservationService は新しい ReservationService を作成する
func NewReservationService(
	txManager transaction.Manager,
	rr reservation.Repository,
	sr timeslot.Repository,
	ledger *SeatLedger,
	slots *SlotService,
	notifier NotificationPort,
	links link.Builder,
	reminders ReminderScheduler,
	tokens token.Generator,
	clk clock.Clock,
	maxSeatsPerEmail int,
) *ReservationService {
	return &ReservationService{
		txManager: txManager,
		resRepo:   rr,
		slotRepo:  sr,
		ledger:    ledger,
		slots:     slots,
		notifier:  notifier,
		links:     links,
		reminders: reminders,
		tokens:    tokens,
		clk:       clk,

		maxSeatsPerEmail: maxSeatsPerEmail,
	}
}

// MakeReservation は予約を作成する
// 同一メールの確定待ち予約は削除して置き換え、その保持座席は返還して判定する。
// force が真の場合は容量チェックを省略する。mustConfirm が偽の場合は即時確定する。
func (s *ReservationService) MakeReservation(ctx context.Context, model ReservationModel, force, mustConfirm bool) reservation.AttemptResult {
	result := s.makeReservation(ctx, model, force, mustConfirm)
	s.countAttempt(result.Code)
	return result
}

func (s *ReservationService) makeReservation(ctx context.Context, model ReservationModel, force, mustConfirm bool) reservation.AttemptResult {
	originalMail := model.Email
	email := reservation.NormalizeEmail(model.Email)

	if model.Seats < 1 {
		return reservation.NewAttemptError(reservation.ErrInvalidSeats.Error())
	}
	if s.maxSeatsPerEmail > 0 && model.Seats > s.maxSeatsPerEmail {
		return reservation.NewAttemptError("1予約あたりの座席数上限を超えています")
	}

	existing, err := s.resRepo.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, reservation.ErrReservationNotFound) {
		logger.Error("既存予約の取得に失敗", zap.String("email", email), zap.Error(err))
		return reservation.NewAttemptError("既存予約の取得に失敗しました")
	}

	if existing != nil && existing.Confirmed() && !existing.Cancelled() {
		return reservation.AttemptResult{Code: reservation.AttemptEmailTaken}
	}

	claims := s.slots.ResolveClaims(&model)

	if !force {
		ok, err := s.ledger.CheckPoolForReservation(ctx, existing, model.Seats)
		if err != nil {
			logger.Error("残席チェックに失敗", zap.Error(err))
			return reservation.NewAttemptError("残席チェックに失敗しました")
		}
		if !ok {
			return reservation.NewAttemptResult(reservation.AttemptNoSeatsLeft)
		}

		// 各スロットはプールとは独立に自分の枠を検証する
		for _, claim := range claims {
			slot, err := s.slotRepo.GetByID(ctx, claim.TimeSlotID)
			if err != nil {
				if errors.Is(err, timeslot.ErrTimeSlotNotFound) {
					return reservation.NewTimeslotAttemptError(nil, timeslot.ErrTimeSlotNotFound.Error())
				}
				logger.Error("スロット取得に失敗", zap.Int64("time_slot_id", claim.TimeSlotID), zap.Error(err))
				return reservation.NewAttemptError("スロット取得に失敗しました")
			}
			ok, err := s.ledger.CheckSlotForReservation(ctx, slot, existing, model.Seats)
			if err != nil {
				logger.Error("スロット残枠チェックに失敗", zap.Int64("time_slot_id", slot.ID), zap.Error(err))
				return reservation.NewAttemptError("スロット残枠チェックに失敗しました")
			}
			if !ok {
				view := slot.ToView(0)
				return reservation.NewTimeslotAttemptError(&view, "")
			}
		}
	}

	mgmtToken, err := s.tokens.Generate()
	if err != nil {
		logger.Error("管理トークンの生成に失敗", zap.Error(err))
		return reservation.NewAttemptError("管理トークンの生成に失敗しました")
	}

	now := s.clk.Now()
	entity := reservation.NewReservation(email, mgmtToken, model.Seats, now, mustConfirm)
	entity.SleepOver = model.SleepOver
	entity.PubQuizTeamName = model.PubQuizTeamName
	if model.PubQuizSeats != nil {
		entity.PubQuizSeats = *model.PubQuizSeats
	}
	entity.SlotClaims = claims

	if err := entity.Validate(); err != nil {
		return reservation.NewAttemptError(err.Error())
	}

	// 旧予約の削除と新予約の挿入は1トランザクションで行い、部分状態を見せない
	if err := s.persistNew(ctx, existing, entity); err != nil {
		logger.Error("予約の保存に失敗", zap.String("email", email), zap.Error(err))
		return reservation.NewAttemptError("予約の保存に失敗しました")
	}

	s.ledger.InvalidateCache(ctx, touchedSlotIDs(existing, entity)...)

	// 保存直後の読み戻しが空なのはバグの兆候であり、利用者起因の状態ではない
	saved, err := s.resRepo.GetByEmail(ctx, email)
	if err != nil {
		logger.Error("予約保存後の読み戻しに失敗: 整合性エラー",
			zap.String("email", email), zap.Error(err))
		return reservation.NewAttemptError("予約保存の整合性エラー")
	}

	if existing != nil {
		// 置き換えられた旧予約の持ち主へ通知する
		s.notify("cancelled", existing.Email, func() error {
			return s.notifier.SendCancelled(ctx, existing.Email, existing.Seats, existing.MadeOn)
		})
	}

	if mustConfirm {
		slots := s.slots.ViewsForClaims(ctx, saved.SlotClaims)
		s.notify("confirmation_request", originalMail, func() error {
			return s.notifier.SendConfirmationRequest(ctx, originalMail,
				s.links.ConfirmLink(originalMail, saved.ManagementToken),
				s.links.CancelLink(originalMail, saved.ManagementToken),
				slots)
		})
		return reservation.NewAttemptResult(reservation.AttemptMustConfirm)
	}

	return reservation.NewAttemptResult(reservation.AttemptConfirmed)
}

// persistNew は旧予約の削除と新予約の挿入を1トランザクションで実行する
func (s *ReservationService) persistNew(ctx context.Context, existing, entity *reservation.Reservation) error {
	tx, err := s.txManager.Begin(ctx)
	if err != nil {
		return fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback()

	if existing != nil {
		if err := s.resRepo.Delete(ctx, tx, existing.ID); err != nil {
			return err
		}
	}
	if err := s.resRepo.Create(ctx, tx, entity); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("コミットに失敗: %w", err)
	}
	return nil
}

// ConfirmReservation は確定待ちの予約を確定する
// 既に確定済みの場合は AlreadyConfirmed を返す（冪等）
func (s *ReservationService) ConfirmReservation(ctx context.Context, email, mgmtToken string, force bool) reservation.CompletionResult {
	result := s.confirmReservation(ctx, email, mgmtToken, force)
	s.countCompletion("confirm", result.Code)
	return result
}

func (s *ReservationService) confirmReservation(ctx context.Context, email, mgmtToken string, force bool) reservation.CompletionResult {
	originalMail := email
	email = reservation.NormalizeEmail(email)

	res, err := s.resRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, reservation.ErrReservationNotFound) {
			return reservation.NewCompletionResult(reservation.CompletionNotFound)
		}
		logger.Error("予約の取得に失敗", zap.String("email", email), zap.Error(err))
		return reservation.NewCompletionError("予約の取得に失敗しました")
	}

	if res.Cancelled() {
		return reservation.NewCompletionResult(reservation.CompletionNotFound)
	}
	if mgmtToken != "" && res.ManagementToken != mgmtToken {
		return reservation.NewCompletionResult(reservation.CompletionInvalidToken)
	}
	if res.Confirmed() {
		return reservation.NewCompletionResult(reservation.CompletionAlreadyConfirmed)
	}

	if !force {
		// 自分自身は競合相手ではないため、保持分を返還した上で再検証する
		ok, err := s.ledger.CheckPoolForReservation(ctx, res, res.Seats)
		if err != nil {
			logger.Error("確定時の残席チェックに失敗", zap.Error(err))
			return reservation.NewCompletionError("残席チェックに失敗しました")
		}
		if !ok {
			return reservation.NewCompletionResult(reservation.CompletionNoSeatsLeft)
		}

		for _, claim := range res.SlotClaims {
			slot, err := s.slotRepo.GetByID(ctx, claim.TimeSlotID)
			if err != nil {
				logger.Error("確定時のスロット取得に失敗",
					zap.Int64("time_slot_id", claim.TimeSlotID), zap.Error(err))
				return reservation.NewCompletionError("スロット取得に失敗しました")
			}
			ok, err := s.ledger.CheckSlotForReservation(ctx, slot, res, res.Seats)
			if err != nil {
				logger.Error("確定時のスロット残枠チェックに失敗", zap.Int64("time_slot_id", slot.ID), zap.Error(err))
				return reservation.NewCompletionError("スロット残枠チェックに失敗しました")
			}
			if !ok {
				view := slot.ToView(0)
				return reservation.NewTimeslotCompletionError(&view)
			}
		}
	}

	if err := res.Confirm(s.clk.Now()); err != nil {
		return reservation.NewCompletionError(err.Error())
	}
	if err := s.persistUpdate(ctx, res); err != nil {
		logger.Error("予約の確定に失敗", zap.String("email", email), zap.Error(err))
		return reservation.NewCompletionError("予約の確定に失敗しました")
	}

	s.ledger.InvalidateCache(ctx, claimedSlotIDs(res)...)

	slots := s.slots.ViewsForClaims(ctx, res.SlotClaims)
	s.notify("confirmed", originalMail, func() error {
		return s.notifier.SendConfirmed(ctx, originalMail, res.Seats,
			s.links.CancelLink(originalMail, res.ManagementToken), slots)
	})

	return reservation.NewCompletionResult(reservation.CompletionConfirmed)
}

// CancelReservation は予約をキャンセルする（終端遷移）
// 既にキャンセル済みの場合は AlreadyCancelled を返し、通知は送らない（冪等）
func (s *ReservationService) CancelReservation(ctx context.Context, email, mgmtToken string) reservation.CompletionResult {
	result := s.cancelReservation(ctx, email, mgmtToken)
	s.countCompletion("cancel", result.Code)
	return result
}

func (s *ReservationService) cancelReservation(ctx context.Context, email, mgmtToken string) reservation.CompletionResult {
	originalMail := email
	email = reservation.NormalizeEmail(email)

	res, err := s.resRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, reservation.ErrReservationNotFound) {
			return reservation.NewCompletionResult(reservation.CompletionNotFound)
		}
		logger.Error("予約の取得に失敗", zap.String("email", email), zap.Error(err))
		return reservation.NewCompletionError("予約の取得に失敗しました")
	}

	if mgmtToken != "" && res.ManagementToken != mgmtToken {
		return reservation.NewCompletionResult(reservation.CompletionInvalidToken)
	}
	if res.Cancelled() {
		return reservation.NewCompletionResult(reservation.CompletionAlreadyCancelled)
	}

	if err := res.Cancel(s.clk.Now()); err != nil {
		return reservation.NewCompletionError(err.Error())
	}
	if err := s.persistUpdate(ctx, res); err != nil {
		logger.Error("予約のキャンセルに失敗", zap.String("email", email), zap.Error(err))
		return reservation.NewCompletionError("予約のキャンセルに失敗しました")
	}

	s.ledger.InvalidateCache(ctx, claimedSlotIDs(res)...)

	s.notify("cancelled", originalMail, func() error {
		return s.notifier.SendCancelled(ctx, originalMail, res.Seats, res.MadeOn)
	})

	return reservation.NewCompletionResult(reservation.CompletionConfirmed)
}

// persistUpdate は確定・キャンセル時刻の更新を1トランザクションで実行する
func (s *ReservationService) persistUpdate(ctx context.Context, res *reservation.Reservation) error {
	tx, err := s.txManager.Begin(ctx)
	if err != nil {
		return fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback()

	if err := s.resRepo.Update(ctx, tx, res); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("コミットに失敗: %w", err)
	}
	return nil
}

// GetReservationDetails はメールアドレスから予約を取得する
func (s *ReservationService) GetReservationDetails(ctx context.Context, email string) (*reservation.Reservation, error) {
	return s.resRepo.GetByEmail(ctx, reservation.NormalizeEmail(email))
}

// ScheduleReminders は確定済み予約ごとにリマインダージョブを外部キューへ積む
// 個々のジョブの失敗はログに残してスキップし、全体を失敗させない
func (s *ReservationService) ScheduleReminders(ctx context.Context, runAt time.Time) (int, error) {
	reservations, err := s.resRepo.ListConfirmed(ctx)
	if err != nil {
		return 0, fmt.Errorf("確定済み予約の取得に失敗: %w", err)
	}

	m := metrics.Get()
	scheduled := 0
	for _, res := range reservations {
		job := ReminderJob{
			ReservationID: res.ID,
			Email:         res.Email,
			Seats:         res.Seats,
			CancelLink:    s.links.CancelLink(res.Email, res.ManagementToken),
			Slots:         s.slots.ViewsForClaims(ctx, res.SlotClaims),
			RunAt:         runAt,
		}
		if err := s.reminders.Schedule(ctx, job); err != nil {
			logger.Warn("リマインダージョブの登録に失敗",
				zap.String("email", res.Email), zap.Int64("reservation_id", res.ID), zap.Error(err))
			if m != nil {
				m.ReminderJobsTotal.WithLabelValues("failed").Inc()
			}
			continue
		}
		if m != nil {
			m.ReminderJobsTotal.WithLabelValues("scheduled").Inc()
		}
		scheduled++
	}
	return scheduled, nil
}

// notify はベストエフォートの通知送信を行い、失敗をログとメトリクスに残す
// 通知の失敗が予約の状態遷移を巻き戻すことはない
func (s *ReservationService) notify(kind, to string, send func() error) {
	m := metrics.Get()
	if err := send(); err != nil {
		logger.Warn("通知メールの送信に失敗",
			zap.String("kind", kind), zap.String("to", to), zap.Error(err))
		if m != nil {
			m.NotificationsTotal.WithLabelValues(kind, "failed").Inc()
		}
		return
	}
	if m != nil {
		m.NotificationsTotal.WithLabelValues(kind, "sent").Inc()
	}
}

func (s *ReservationService) countAttempt(code reservation.AttemptCode) {
	if m := metrics.Get(); m != nil {
		m.ReservationAttemptsTotal.WithLabelValues(string(code)).Inc()
	}
}

func (s *ReservationService) countCompletion(operation string, code reservation.CompletionCode) {
	if m := metrics.Get(); m != nil {
		m.ReservationCompletionsTotal.WithLabelValues(operation, string(code)).Inc()
	}
}

// claimedSlotIDs は予約が消費しているスロットIDの列を返す
func claimedSlotIDs(res *reservation.Reservation) []int64 {
	ids := make([]int64, 0, len(res.SlotClaims))
	for _, c := range res.SlotClaims {
		ids = append(ids, c.TimeSlotID)
	}
	return ids
}

// touchedSlotIDs は新旧予約が触れた全スロットIDの列を返す（キャッシュ無効化用）
func touchedSlotIDs(existing, entity *reservation.Reservation) []int64 {
	seen := make(map[int64]struct{})
	var ids []int64
	add := func(res *reservation.Reservation) {
		if res == nil {
			return
		}
		for _, c := range res.SlotClaims {
			if _, ok := seen[c.TimeSlotID]; ok {
				continue
			}
			seen[c.TimeSlotID] = struct{}{}
			ids = append(ids, c.TimeSlotID)
		}
	}
	add(existing)
	add(entity)
	return ids
}
