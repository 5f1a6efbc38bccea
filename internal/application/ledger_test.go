package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/su-fit-vut/ssrs/internal/domain/reservation"
	"github.com/su-fit-vut/ssrs/internal/domain/timeslot"
	redisinfra "github.com/su-fit-vut/ssrs/internal/infrastructure/redis"
	"github.com/su-fit-vut/ssrs/internal/pkg/clock"
)

func newLedgerDeps() (*MockReservationRepository, *MockTimeSlotRepository, *MockSeatCache, *clock.FixedClock, *SeatLedger) {
	resRepo := new(MockReservationRepository)
	slotRepo := new(MockTimeSlotRepository)
	cache := new(MockSeatCache)
	clk := clock.NewFixed(testBase)
	ledger := NewSeatLedger(testTotalSeats, testWindow, resRepo, slotRepo, cache, clk)
	return resRepo, slotRepo, cache, clk, ledger
}

func TestSeatLedger_SeatsLeft(t *testing.T) {
	ctx := context.Background()

	t.Run("キャッシュヒット時は再計算しない", func(t *testing.T) {
		resRepo, _, cache, _, ledger := newLedgerDeps()

		cache.On("Get", ctx, "seats:left").Return(7, nil)

		left, err := ledger.SeatsLeft(ctx, true)

		require.NoError(t, err)
		assert.Equal(t, 7, left)
		resRepo.AssertNotCalled(t, "SumCountedSeats", mock.Anything, mock.Anything)
	})

	t.Run("キャッシュミス時は再計算して詰め直す", func(t *testing.T) {
		resRepo, _, cache, _, ledger := newLedgerDeps()

		cache.On("Get", ctx, "seats:left").Return(0, redisinfra.ErrCacheMiss)
		resRepo.On("SumCountedSeats", ctx, testBase.Add(-testWindow)).Return(3, nil)
		// 残席に余裕がある場合は長いTTL
		cache.On("Set", ctx, "seats:left", 7, time.Hour).Return(nil)

		left, err := ledger.SeatsLeft(ctx, true)

		require.NoError(t, err)
		assert.Equal(t, 7, left)
		cache.AssertExpectations(t)
	})

	t.Run("残り2席未満ではTTLを有効期間に縮める", func(t *testing.T) {
		resRepo, _, cache, _, ledger := newLedgerDeps()

		resRepo.On("SumCountedSeats", ctx, testBase.Add(-testWindow)).Return(9, nil)
		// 保留枠の期限切れですぐ値が変わるため、TTLは未確定有効期間ぶん
		cache.On("Set", ctx, "seats:left", 1, testWindow).Return(nil)

		left, err := ledger.SeatsLeft(ctx, false)

		require.NoError(t, err)
		assert.Equal(t, 1, left)
		cache.AssertExpectations(t)
	})

	t.Run("超過予約で負になる場合は0に丸める", func(t *testing.T) {
		resRepo, _, cache, _, ledger := newLedgerDeps()

		resRepo.On("SumCountedSeats", ctx, testBase.Add(-testWindow)).Return(12, nil)
		cache.On("Set", ctx, "seats:left", 0, testWindow).Return(nil)

		left, err := ledger.SeatsLeft(ctx, false)

		require.NoError(t, err)
		assert.Equal(t, 0, left)
	})

	t.Run("キャッシュ保存の失敗は計算結果に影響しない", func(t *testing.T) {
		resRepo, _, cache, _, ledger := newLedgerDeps()

		resRepo.On("SumCountedSeats", ctx, testBase.Add(-testWindow)).Return(3, nil)
		cache.On("Set", ctx, "seats:left", 7, time.Hour).Return(errors.New("redis down"))

		left, err := ledger.SeatsLeft(ctx, false)

		require.NoError(t, err)
		assert.Equal(t, 7, left)
	})

	t.Run("時刻を進めると期限切れ分のカットオフも進む", func(t *testing.T) {
		resRepo, _, cache, clk, ledger := newLedgerDeps()

		clk.Advance(5 * time.Minute)
		resRepo.On("SumCountedSeats", ctx, testBase.Add(5*time.Minute).Add(-testWindow)).Return(0, nil)
		cache.On("Set", ctx, "seats:left", 10, time.Hour).Return(nil)

		left, err := ledger.SeatsLeft(ctx, false)

		require.NoError(t, err)
		assert.Equal(t, 10, left)
		resRepo.AssertExpectations(t)
	})
}

func TestSeatLedger_SlotSeatsLeft(t *testing.T) {
	ctx := context.Background()

	t.Run("スロットの残枠を計算する", func(t *testing.T) {
		resRepo, slotRepo, cache, _, ledger := newLedgerDeps()

		slot := &timeslot.TimeSlot{ID: 3, TotalSeats: 5}
		slotRepo.On("GetByID", ctx, int64(3)).Return(slot, nil)
		resRepo.On("SumCountedSlotSeats", ctx, int64(3), testBase.Add(-testWindow)).Return(2, nil)
		cache.On("Set", ctx, "seats:left:slot:3", 3, time.Hour).Return(nil)

		left, err := ledger.SlotSeatsLeft(ctx, 3, false)

		require.NoError(t, err)
		assert.Equal(t, 3, left)
	})

	t.Run("存在しないスロットは番兵値を返す", func(t *testing.T) {
		_, slotRepo, _, _, ledger := newLedgerDeps()

		slotRepo.On("GetByID", ctx, int64(99)).Return(nil, timeslot.ErrTimeSlotNotFound)

		left, err := ledger.SlotSeatsLeft(ctx, 99, false)

		assert.Equal(t, SlotNotFoundSeats, left)
		assert.ErrorIs(t, err, timeslot.ErrTimeSlotNotFound)
	})

	t.Run("キャッシュヒット時はDBに触れない", func(t *testing.T) {
		_, slotRepo, cache, _, ledger := newLedgerDeps()

		cache.On("Get", ctx, "seats:left:slot:3").Return(4, nil)

		left, err := ledger.SlotSeatsLeft(ctx, 3, true)

		require.NoError(t, err)
		assert.Equal(t, 4, left)
		slotRepo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	})
}

func TestSeatLedger_CheckPoolForReservation(t *testing.T) {
	ctx := context.Background()

	t.Run("空きがあれば通る", func(t *testing.T) {
		resRepo, _, cache, _, ledger := newLedgerDeps()

		resRepo.On("SumCountedSeats", ctx, testBase.Add(-testWindow)).Return(5, nil)
		cache.On("Set", ctx, "seats:left", 5, time.Hour).Return(nil)

		ok, err := ledger.CheckPoolForReservation(ctx, nil, 5)

		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("不足なら通らない", func(t *testing.T) {
		resRepo, _, cache, _, ledger := newLedgerDeps()

		resRepo.On("SumCountedSeats", ctx, testBase.Add(-testWindow)).Return(5, nil)
		cache.On("Set", ctx, "seats:left", 5, time.Hour).Return(nil)

		ok, err := ledger.CheckPoolForReservation(ctx, nil, 6)

		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("自分の保持分は返還して判定する", func(t *testing.T) {
		resRepo, _, cache, _, ledger := newLedgerDeps()

		existing := pendingReservation("a@example.com", 4, testBase.Add(-5*time.Minute))
		resRepo.On("SumCountedSeats", ctx, testBase.Add(-testWindow)).Return(10, nil)
		cache.On("Set", ctx, "seats:left", 0, testWindow).Return(nil)

		ok, err := ledger.CheckPoolForReservation(ctx, existing, 4)

		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("期限切れの保持分は返還しない", func(t *testing.T) {
		resRepo, _, cache, _, ledger := newLedgerDeps()

		existing := pendingReservation("a@example.com", 4, testBase.Add(-testWindow))
		resRepo.On("SumCountedSeats", ctx, testBase.Add(-testWindow)).Return(10, nil)
		cache.On("Set", ctx, "seats:left", 0, testWindow).Return(nil)

		ok, err := ledger.CheckPoolForReservation(ctx, existing, 4)

		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestSeatLedger_CheckSlotForReservation(t *testing.T) {
	ctx := context.Background()

	t.Run("1予約1枠スロットは人数に関わらず1枠で判定する", func(t *testing.T) {
		resRepo, slotRepo, cache, _, ledger := newLedgerDeps()

		slot := &timeslot.TimeSlot{ID: 25, TotalSeats: 12, AlwaysConsumeOnePerReservation: true}
		slotRepo.On("GetByID", ctx, int64(25)).Return(slot, nil)
		resRepo.On("SumCountedSlotSeats", ctx, int64(25), testBase.Add(-testWindow)).Return(11, nil)
		cache.On("Set", ctx, "seats:left:slot:25", 1, testWindow).Return(nil)

		ok, err := ledger.CheckSlotForReservation(ctx, slot, nil, 6)

		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("通常スロットは人数ぶんで判定する", func(t *testing.T) {
		resRepo, slotRepo, cache, _, ledger := newLedgerDeps()

		slot := &timeslot.TimeSlot{ID: 3, TotalSeats: 5}
		slotRepo.On("GetByID", ctx, int64(3)).Return(slot, nil)
		resRepo.On("SumCountedSlotSeats", ctx, int64(3), testBase.Add(-testWindow)).Return(3, nil)
		cache.On("Set", ctx, "seats:left:slot:3", 2, time.Hour).Return(nil)

		ok, err := ledger.CheckSlotForReservation(ctx, slot, nil, 3)

		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("当該スロットを保持する自分の枠は返還される", func(t *testing.T) {
		resRepo, slotRepo, cache, _, ledger := newLedgerDeps()

		slot := &timeslot.TimeSlot{ID: 3, TotalSeats: 5}
		existing := pendingReservation("a@example.com", 2, testBase.Add(-5*time.Minute))
		existing.SlotClaims = []reservation.SlotClaim{{TimeSlotID: 3, TakenSeats: 1}}

		slotRepo.On("GetByID", ctx, int64(3)).Return(slot, nil)
		resRepo.On("SumCountedSlotSeats", ctx, int64(3), testBase.Add(-testWindow)).Return(5, nil)
		cache.On("Set", ctx, "seats:left:slot:3", 0, testWindow).Return(nil)

		ok, err := ledger.CheckSlotForReservation(ctx, slot, existing, 2)

		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("別スロットしか保持していなければ返還されない", func(t *testing.T) {
		resRepo, slotRepo, cache, _, ledger := newLedgerDeps()

		slot := &timeslot.TimeSlot{ID: 3, TotalSeats: 5}
		existing := pendingReservation("a@example.com", 2, testBase.Add(-5*time.Minute))
		existing.SlotClaims = []reservation.SlotClaim{{TimeSlotID: 7, TakenSeats: 1}}

		slotRepo.On("GetByID", ctx, int64(3)).Return(slot, nil)
		resRepo.On("SumCountedSlotSeats", ctx, int64(3), testBase.Add(-testWindow)).Return(5, nil)
		cache.On("Set", ctx, "seats:left:slot:3", 0, testWindow).Return(nil)

		ok, err := ledger.CheckSlotForReservation(ctx, slot, existing, 2)

		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestSeatLedger_InvalidateCache(t *testing.T) {
	ctx := context.Background()

	_, _, cache, _, ledger := newLedgerDeps()
	cache.On("Delete", ctx, "seats:left", "seats:left:slot:3", "seats:left:slot:25").Return(nil)

	ledger.InvalidateCache(ctx, 3, 25)

	cache.AssertExpectations(t)
}
