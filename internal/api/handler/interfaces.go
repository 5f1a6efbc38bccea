package handler

import (
	"context"
	"time"

	"github.com/su-fit-vut/ssrs/internal/application"
	"github.com/su-fit-vut/ssrs/internal/domain/reservation"
	"github.com/su-fit-vut/ssrs/internal/domain/timeslot"
)

// ReservationServiceInterface は予約サービスのインターフェース
type ReservationServiceInterface interface {
	MakeReservation(ctx context.Context, model application.ReservationModel, force, mustConfirm bool) reservation.AttemptResult
	ConfirmReservation(ctx context.Context, email, mgmtToken string, force bool) reservation.CompletionResult
	CancelReservation(ctx context.Context, email, mgmtToken string) reservation.CompletionResult
	GetReservationDetails(ctx context.Context, email string) (*reservation.Reservation, error)
	ScheduleReminders(ctx context.Context, runAt time.Time) (int, error)
}

// SeatLedgerInterface は座席台帳のインターフェース
type SeatLedgerInterface interface {
	SeatsLeft(ctx context.Context, useCache bool) (int, error)
	SlotSeatsLeft(ctx context.Context, timeSlotID int64, useCache bool) (int, error)
	TotalSeats() int
}

// SlotServiceInterface はタイムスロットサービスのインターフェース
type SlotServiceInterface interface {
	GetSlottedActivities(ctx context.Context) ([]*timeslot.Activity, error)
	GetTimeslotsForActivity(ctx context.Context, activityID int64) ([]timeslot.View, error)
	GetPubQuizAvailability(ctx context.Context, useCache bool) (teams, solo bool, err error)
	ViewsForClaims(ctx context.Context, claims []reservation.SlotClaim) []timeslot.View
}

// ExportServiceInterface はCSVエクスポートのインターフェース
type ExportServiceInterface interface {
	ExportConfirmedReservationsCsv(ctx context.Context) (string, error)
}
