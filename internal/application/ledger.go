package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/su-fit-vut/ssrs/internal/domain/reservation"
	"github.com/su-fit-vut/ssrs/internal/domain/timeslot"
	redisinfra "github.com/su-fit-vut/ssrs/internal/infrastructure/redis"
	"github.com/su-fit-vut/ssrs/internal/pkg/clock"
	"github.com/su-fit-vut/ssrs/internal/pkg/logger"
	"github.com/su-fit-vut/ssrs/internal/pkg/metrics"
)

// SlotNotFoundSeats は存在しないスロットを示す番兵値
// 残席0と区別するために負値を使う
const SlotNotFoundSeats = -1

// longCacheTTL は残席に余裕がある場合のキャッシュ保持期間
// 枯渇が近い場合は保留枠の期限切れで値が揺れるため、短い保持期間に切り替える
const longCacheTTL = time.Hour

const (
	poolSeatsCacheKey    = "seats:left"
	slotSeatsCacheKeyFmt = "seats:left:slot:%d"
)

// SeatLedger は永続化された予約行から残座席数を計算する
// 算入規則: キャンセルされておらず、確定済みか未確定有効期間内の予約だけが
// 座席を消費する（期限切れの保留は行を残したまま無視される）
type SeatLedger struct {
	totalSeats int
	window     time.Duration
	resRepo    reservation.Repository
	slotRepo   timeslot.Repository
	cache      SeatCache
	clk        clock.Clock
}

// NewSeatLedger は新しい SeatLedger を作成する
func NewSeatLedger(totalSeats int, window time.Duration, rr reservation.Repository,
	sr timeslot.Repository, cache SeatCache, clk clock.Clock) *SeatLedger {
	return &SeatLedger{
		totalSeats: totalSeats,
		window:     window,
		resRepo:    rr,
		slotRepo:   sr,
		cache:      cache,
		clk:        clk,
	}
}

// TotalSeats はイベント全体の総座席数を返す
func (l *SeatLedger) TotalSeats() int {
	return l.totalSeats
}

// Window は未確定予約の有効期間を返す
func (l *SeatLedger) Window() time.Duration {
	return l.window
}

// SeatsLeft はイベント全体の残座席数を返す
// useCache が真で有効なキャッシュがあればそれを返し、なければ再計算して詰め直す
func (l *SeatLedger) SeatsLeft(ctx context.Context, useCache bool) (int, error) {
	if useCache {
		if v, err := l.cache.Get(ctx, poolSeatsCacheKey); err == nil {
			return v, nil
		} else if !errors.Is(err, redisinfra.ErrCacheMiss) {
			logger.Warn("残席キャッシュの取得に失敗", zap.Error(err))
		}
	}

	now := l.clk.Now()
	taken, err := l.resRepo.SumCountedSeats(ctx, now.Add(-l.window))
	if err != nil {
		return 0, fmt.Errorf("残席数の計算に失敗: %w", err)
	}

	left := l.totalSeats - taken
	if left < 0 {
		left = 0
	}

	if m := metrics.Get(); m != nil {
		m.SeatsLeft.Set(float64(left))
	}

	l.repopulate(ctx, poolSeatsCacheKey, left)
	return left, nil
}

// SlotSeatsLeft は指定スロットの残枠数を返す
// スロットが存在しない場合は SlotNotFoundSeats と ErrTimeSlotNotFound を返す
func (l *SeatLedger) SlotSeatsLeft(ctx context.Context, timeSlotID int64, useCache bool) (int, error) {
	key := fmt.Sprintf(slotSeatsCacheKeyFmt, timeSlotID)

	if useCache {
		if v, err := l.cache.Get(ctx, key); err == nil {
			return v, nil
		} else if !errors.Is(err, redisinfra.ErrCacheMiss) {
			logger.Warn("スロット残枠キャッシュの取得に失敗",
				zap.Int64("time_slot_id", timeSlotID), zap.Error(err))
		}
	}

	slot, err := l.slotRepo.GetByID(ctx, timeSlotID)
	if err != nil {
		if errors.Is(err, timeslot.ErrTimeSlotNotFound) {
			return SlotNotFoundSeats, timeslot.ErrTimeSlotNotFound
		}
		return 0, fmt.Errorf("スロット取得に失敗: %w", err)
	}

	now := l.clk.Now()
	taken, err := l.resRepo.SumCountedSlotSeats(ctx, timeSlotID, now.Add(-l.window))
	if err != nil {
		return 0, fmt.Errorf("スロット残枠の計算に失敗: %w", err)
	}

	left := slot.TotalSeats - taken
	if left < 0 {
		left = 0
	}

	l.repopulate(ctx, key, left)
	return left, nil
}

// CheckPoolForReservation は要求座席数がプールに収まるかを返す
// existing が同一メールの確定待ち予約なら、その保持座席数を返還して判定する
// （有効期間内の再送信で自分自身と競合しないようにするため）
func (l *SeatLedger) CheckPoolForReservation(ctx context.Context, existing *reservation.Reservation, seats int) (bool, error) {
	left, err := l.SeatsLeft(ctx, false)
	if err != nil {
		return false, err
	}
	if existing != nil {
		left += existing.HeldSeatsAt(l.clk.Now(), l.window)
	}
	return left-seats >= 0, nil
}

// CheckSlotForReservation は要求がスロット枠に収まるかを返す
// 消費枠はスロットのポリシーに従い、existing が当該スロットを保持していれば
// その分を返還して判定する
func (l *SeatLedger) CheckSlotForReservation(ctx context.Context, slot *timeslot.TimeSlot, existing *reservation.Reservation, seats int) (bool, error) {
	if slot == nil {
		return false, nil
	}

	left, err := l.SlotSeatsLeft(ctx, slot.ID, false)
	if err != nil {
		return false, err
	}
	left += l.heldSlotSeats(slot, existing)

	return left-slot.ConsumedSeats(seats) >= 0, nil
}

func (l *SeatLedger) heldSlotSeats(slot *timeslot.TimeSlot, existing *reservation.Reservation) int {
	if existing == nil || !existing.ClaimsSlot(slot.ID) {
		return 0
	}
	if existing.HeldSeatsAt(l.clk.Now(), l.window) == 0 {
		return 0
	}
	return slot.ConsumedSeats(existing.Seats)
}

// InvalidateCache は書き込み成功後に残席キャッシュを明示的に無効化する
func (l *SeatLedger) InvalidateCache(ctx context.Context, timeSlotIDs ...int64) {
	keys := make([]string, 0, len(timeSlotIDs)+1)
	keys = append(keys, poolSeatsCacheKey)
	for _, id := range timeSlotIDs {
		keys = append(keys, fmt.Sprintf(slotSeatsCacheKeyFmt, id))
	}
	if err := l.cache.Delete(ctx, keys...); err != nil {
		logger.Warn("残席キャッシュの無効化に失敗", zap.Error(err))
	}
}

// repopulate は計算結果をTTLポリシーに従ってキャッシュに詰め直す
func (l *SeatLedger) repopulate(ctx context.Context, key string, left int) {
	if err := l.cache.Set(ctx, key, left, l.cacheTTL(left)); err != nil {
		logger.Warn("残席キャッシュの保存に失敗", zap.String("key", key), zap.Error(err))
	}
}

// cacheTTL は残席数に応じたキャッシュ保持期間を返す
// 残り2席未満では保留枠の期限切れですぐ値が変わるため、有効期間ぶんだけ保持する
func (l *SeatLedger) cacheTTL(left int) time.Duration {
	if left < 2 {
		return l.window
	}
	return longCacheTTL
}
