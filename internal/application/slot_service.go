package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/su-fit-vut/ssrs/internal/domain/reservation"
	"github.com/su-fit-vut/ssrs/internal/domain/timeslot"
)

// QuizSlotPolicy は参加人数からクイズ用スロットを選ぶ設定レベルのポリシー
// 1人参加は指定のソロスロット、それ以外はチームスロットを消費する
type QuizSlotPolicy struct {
	SoloSlotID  int64
	TeamsSlotID int64
	MinTeamSize int
}

// SlotIDFor は参加人数に対応するクイズスロットのIDを返す
func (p QuizSlotPolicy) SlotIDFor(teamSize int) int64 {
	if teamSize == 1 {
		return p.SoloSlotID
	}
	return p.TeamsSlotID
}

// SlotService はタイムスロットの割り当てと読み取りを担う
type SlotService struct {
	slotRepo   timeslot.Repository
	ledger     *SeatLedger
	quizPolicy QuizSlotPolicy
}

// NewSlotService は新しい SlotService を作成する
func NewSlotService(sr timeslot.Repository, ledger *SeatLedger, quizPolicy QuizSlotPolicy) *SlotService {
	return &SlotService{slotRepo: sr, ledger: ledger, quizPolicy: quizPolicy}
}

// ResolveClaims は予約リクエストのスロット選択を消費枠の列に変換する
// クイズ参加時はポリシーに従って合成スロットを追加し、チームサイズの既定値を補う
func (s *SlotService) ResolveClaims(model *ReservationModel) []reservation.SlotClaim {
	claims := make([]reservation.SlotClaim, 0, len(model.SlotSelections)+1)
	for _, id := range model.SlotSelections {
		claims = append(claims, reservation.SlotClaim{TimeSlotID: id, TakenSeats: 1})
	}

	if model.PubQuizTeamName != nil {
		if model.PubQuizSeats == nil {
			size := s.quizPolicy.MinTeamSize
			model.PubQuizSeats = &size
		}
		claims = append(claims, reservation.SlotClaim{
			TimeSlotID: s.quizPolicy.SlotIDFor(*model.PubQuizSeats),
			TakenSeats: 1,
		})
	}

	return claims
}

// GetSlottedActivities はアクティビティ一覧を返す
func (s *SlotService) GetSlottedActivities(ctx context.Context) ([]*timeslot.Activity, error) {
	return s.slotRepo.ListActivities(ctx)
}

// GetTimeslotsForActivity はアクティビティのスロット一覧を空き枠数付きで返す
func (s *SlotService) GetTimeslotsForActivity(ctx context.Context, activityID int64) ([]timeslot.View, error) {
	slots, err := s.slotRepo.ListByActivity(ctx, activityID)
	if err != nil {
		return nil, fmt.Errorf("スロット一覧の取得に失敗: %w", err)
	}

	views := make([]timeslot.View, 0, len(slots))
	for _, slot := range slots {
		left, err := s.ledger.SlotSeatsLeft(ctx, slot.ID, false)
		if err != nil {
			return nil, err
		}
		views = append(views, slot.ToView(left))
	}
	return views, nil
}

// GetPubQuizAvailability はチーム用・ソロ用クイズスロットの空き有無を返す
func (s *SlotService) GetPubQuizAvailability(ctx context.Context, useCache bool) (teams, solo bool, err error) {
	teamsLeft, err := s.ledger.SlotSeatsLeft(ctx, s.quizPolicy.TeamsSlotID, useCache)
	if err != nil && !errors.Is(err, timeslot.ErrTimeSlotNotFound) {
		return false, false, err
	}
	soloLeft, err := s.ledger.SlotSeatsLeft(ctx, s.quizPolicy.SoloSlotID, useCache)
	if err != nil && !errors.Is(err, timeslot.ErrTimeSlotNotFound) {
		return false, false, err
	}
	return teamsLeft > 0, soloLeft > 0, nil
}

// ViewsForClaims は予約の消費枠をメール・API向けの表示モデルに変換する
// 表示用であり空き枠数は計算しない
func (s *SlotService) ViewsForClaims(ctx context.Context, claims []reservation.SlotClaim) []timeslot.View {
	views := make([]timeslot.View, 0, len(claims))
	for _, claim := range claims {
		slot, err := s.slotRepo.GetByID(ctx, claim.TimeSlotID)
		if err != nil {
			continue
		}
		views = append(views, slot.ToView(0))
	}
	return views
}
