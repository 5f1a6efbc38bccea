package application

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/su-fit-vut/ssrs/internal/domain/reservation"
	"github.com/su-fit-vut/ssrs/internal/domain/timeslot"
	"github.com/su-fit-vut/ssrs/internal/domain/transaction"
	redisinfra "github.com/su-fit-vut/ssrs/internal/infrastructure/redis"
)

// === Mock implementations ===

// MockTxManager implements transaction.Manager
type MockTxManager struct {
	mock.Mock
}

func (m *MockTxManager) Begin(ctx context.Context) (transaction.Tx, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(transaction.Tx), args.Error(1)
}

// MockTx implements transaction.Tx
type MockTx struct {
	mock.Mock
}

func (m *MockTx) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockTx) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

// MockReservationRepository implements reservation.Repository
type MockReservationRepository struct {
	mock.Mock
}

func (m *MockReservationRepository) Create(ctx context.Context, tx transaction.Tx, r *reservation.Reservation) error {
	args := m.Called(ctx, tx, r)
	return args.Error(0)
}

func (m *MockReservationRepository) GetByEmail(ctx context.Context, email string) (*reservation.Reservation, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reservation.Reservation), args.Error(1)
}

func (m *MockReservationRepository) GetByID(ctx context.Context, id int64) (*reservation.Reservation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reservation.Reservation), args.Error(1)
}

func (m *MockReservationRepository) Delete(ctx context.Context, tx transaction.Tx, id int64) error {
	args := m.Called(ctx, tx, id)
	return args.Error(0)
}

func (m *MockReservationRepository) Update(ctx context.Context, tx transaction.Tx, r *reservation.Reservation) error {
	args := m.Called(ctx, tx, r)
	return args.Error(0)
}

func (m *MockReservationRepository) SumCountedSeats(ctx context.Context, unconfirmedCutoff time.Time) (int, error) {
	args := m.Called(ctx, unconfirmedCutoff)
	return args.Int(0), args.Error(1)
}

func (m *MockReservationRepository) SumCountedSlotSeats(ctx context.Context, timeSlotID int64, unconfirmedCutoff time.Time) (int, error) {
	args := m.Called(ctx, timeSlotID, unconfirmedCutoff)
	return args.Int(0), args.Error(1)
}

func (m *MockReservationRepository) ListConfirmed(ctx context.Context) ([]*reservation.Reservation, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*reservation.Reservation), args.Error(1)
}

// MockTimeSlotRepository implements timeslot.Repository
type MockTimeSlotRepository struct {
	mock.Mock
}

func (m *MockTimeSlotRepository) GetByID(ctx context.Context, id int64) (*timeslot.TimeSlot, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*timeslot.TimeSlot), args.Error(1)
}

func (m *MockTimeSlotRepository) ListByActivity(ctx context.Context, activityID int64) ([]*timeslot.TimeSlot, error) {
	args := m.Called(ctx, activityID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*timeslot.TimeSlot), args.Error(1)
}

func (m *MockTimeSlotRepository) ListAll(ctx context.Context) ([]*timeslot.TimeSlot, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*timeslot.TimeSlot), args.Error(1)
}

func (m *MockTimeSlotRepository) ListActivities(ctx context.Context) ([]*timeslot.Activity, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*timeslot.Activity), args.Error(1)
}

// MockSeatCache implements SeatCache
type MockSeatCache struct {
	mock.Mock
}

func (m *MockSeatCache) Get(ctx context.Context, key string) (int, error) {
	args := m.Called(ctx, key)
	return args.Int(0), args.Error(1)
}

func (m *MockSeatCache) Set(ctx context.Context, key string, value int, ttl time.Duration) error {
	args := m.Called(ctx, key, value, ttl)
	return args.Error(0)
}

func (m *MockSeatCache) Delete(ctx context.Context, keys ...string) error {
	callArgs := make([]interface{}, 0, len(keys)+1)
	callArgs = append(callArgs, ctx)
	for _, k := range keys {
		callArgs = append(callArgs, k)
	}
	args := m.Called(callArgs...)
	return args.Error(0)
}

// MockNotifier implements NotificationPort
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) SendConfirmationRequest(ctx context.Context, to, confirmLink, cancelLink string, slots []timeslot.View) error {
	args := m.Called(ctx, to, confirmLink, cancelLink, slots)
	return args.Error(0)
}

func (m *MockNotifier) SendConfirmed(ctx context.Context, to string, seats int, cancelLink string, slots []timeslot.View) error {
	args := m.Called(ctx, to, seats, cancelLink, slots)
	return args.Error(0)
}

func (m *MockNotifier) SendCancelled(ctx context.Context, to string, seats int, madeOn time.Time) error {
	args := m.Called(ctx, to, seats, madeOn)
	return args.Error(0)
}

func (m *MockNotifier) SendReminder(ctx context.Context, to string, seats int, cancelLink string, slots []timeslot.View) error {
	args := m.Called(ctx, to, seats, cancelLink, slots)
	return args.Error(0)
}

// MockScheduler implements ReminderScheduler
type MockScheduler struct {
	mock.Mock
}

func (m *MockScheduler) Schedule(ctx context.Context, job ReminderJob) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

// === In-memory fakes ===

// stubTokenGen は常に同じトークンを返すテスト用ジェネレーター
type stubTokenGen struct {
	token string
}

func (s stubTokenGen) Generate() (string, error) {
	return s.token, nil
}

var stubToken = strings.Repeat("ab", 32)

// memoryCache はTTLを無視するインメモリの SeatCache 実装
type memoryCache struct {
	mu     sync.Mutex
	values map[string]int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{values: make(map[string]int)}
}

func (c *memoryCache) Get(ctx context.Context, key string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.values[key]
	if !ok {
		return 0, redisinfra.ErrCacheMiss
	}
	return v, nil
}

func (c *memoryCache) Set(ctx context.Context, key string, value int, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = value
	return nil
}

func (c *memoryCache) Delete(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.values, k)
	}
	return nil
}
