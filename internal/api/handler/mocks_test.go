package handler

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/su-fit-vut/ssrs/internal/application"
	"github.com/su-fit-vut/ssrs/internal/domain/reservation"
	"github.com/su-fit-vut/ssrs/internal/domain/timeslot"
)

// MockReservationService は ReservationServiceInterface のモック
type MockReservationService struct {
	mock.Mock
}

func (m *MockReservationService) MakeReservation(ctx context.Context, model application.ReservationModel, force, mustConfirm bool) reservation.AttemptResult {
	args := m.Called(ctx, model, force, mustConfirm)
	return args.Get(0).(reservation.AttemptResult)
}

func (m *MockReservationService) ConfirmReservation(ctx context.Context, email, mgmtToken string, force bool) reservation.CompletionResult {
	args := m.Called(ctx, email, mgmtToken, force)
	return args.Get(0).(reservation.CompletionResult)
}

func (m *MockReservationService) CancelReservation(ctx context.Context, email, mgmtToken string) reservation.CompletionResult {
	args := m.Called(ctx, email, mgmtToken)
	return args.Get(0).(reservation.CompletionResult)
}

func (m *MockReservationService) GetReservationDetails(ctx context.Context, email string) (*reservation.Reservation, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reservation.Reservation), args.Error(1)
}

func (m *MockReservationService) ScheduleReminders(ctx context.Context, runAt time.Time) (int, error) {
	args := m.Called(ctx, runAt)
	return args.Int(0), args.Error(1)
}

// MockSeatLedger は SeatLedgerInterface のモック
type MockSeatLedger struct {
	mock.Mock
}

func (m *MockSeatLedger) SeatsLeft(ctx context.Context, useCache bool) (int, error) {
	args := m.Called(ctx, useCache)
	return args.Int(0), args.Error(1)
}

func (m *MockSeatLedger) SlotSeatsLeft(ctx context.Context, timeSlotID int64, useCache bool) (int, error) {
	args := m.Called(ctx, timeSlotID, useCache)
	return args.Int(0), args.Error(1)
}

func (m *MockSeatLedger) TotalSeats() int {
	args := m.Called()
	return args.Int(0)
}

// MockSlotService は SlotServiceInterface のモック
type MockSlotService struct {
	mock.Mock
}

func (m *MockSlotService) GetSlottedActivities(ctx context.Context) ([]*timeslot.Activity, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*timeslot.Activity), args.Error(1)
}

func (m *MockSlotService) GetTimeslotsForActivity(ctx context.Context, activityID int64) ([]timeslot.View, error) {
	args := m.Called(ctx, activityID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]timeslot.View), args.Error(1)
}

func (m *MockSlotService) GetPubQuizAvailability(ctx context.Context, useCache bool) (bool, bool, error) {
	args := m.Called(ctx, useCache)
	return args.Bool(0), args.Bool(1), args.Error(2)
}

func (m *MockSlotService) ViewsForClaims(ctx context.Context, claims []reservation.SlotClaim) []timeslot.View {
	args := m.Called(ctx, claims)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]timeslot.View)
}

// MockExportService は ExportServiceInterface のモック
type MockExportService struct {
	mock.Mock
}

func (m *MockExportService) ExportConfirmedReservationsCsv(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}
