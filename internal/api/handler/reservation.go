package handler

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/su-fit-vut/ssrs/internal/application"
	"github.com/su-fit-vut/ssrs/internal/domain/reservation"
	"github.com/su-fit-vut/ssrs/internal/domain/timeslot"
)

type ReservationHandler struct {
	service ReservationServiceInterface
	slots   SlotServiceInterface
}

func NewReservationHandler(s ReservationServiceInterface, slots SlotServiceInterface) *ReservationHandler {
	return &ReservationHandler{service: s, slots: slots}
}

type CreateReservationRequest struct {
	Email           string  `json:"email" validate:"required,email" example:"taro@example.com"`
	Seats           int     `json:"seats" validate:"required,min=1" example:"3"`
	SleepOver       bool    `json:"sleep_over" example:"true"`
	SlotSelections  []int64 `json:"slot_selections" example:"3,7"`
	PubQuizTeamName *string `json:"pub_quiz_team_name,omitempty" example:"チーム緑"`
	PubQuizSeats    *int    `json:"pub_quiz_seats,omitempty" example:"4"`
}

type AttemptResponse struct {
	Code    string         `json:"code"`
	Slot    *timeslot.View `json:"slot,omitempty"`
	Message string         `json:"message,omitempty"`
}

type CompletionResponse struct {
	Code    string         `json:"code"`
	Slot    *timeslot.View `json:"slot,omitempty"`
	Message string         `json:"message,omitempty"`
}

type ReservationDetailsResponse struct {
	Email       string          `json:"email"`
	Seats       int             `json:"seats"`
	MadeOn      time.Time       `json:"made_on"`
	ConfirmedOn *time.Time      `json:"confirmed_on,omitempty"`
	CancelledOn *time.Time      `json:"cancelled_on,omitempty"`
	SleepOver   bool            `json:"sleep_over"`
	PubQuizTeam *string         `json:"pub_quiz_team,omitempty"`
	Slots       []timeslot.View `json:"slots"`
}

func attemptStatus(code reservation.AttemptCode) int {
	switch code {
	case reservation.AttemptMustConfirm, reservation.AttemptConfirmed:
		return http.StatusCreated
	case reservation.AttemptNoSeatsLeft, reservation.AttemptEmailTaken, reservation.AttemptTimeslotError:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func completionStatus(code reservation.CompletionCode) int {
	switch code {
	case reservation.CompletionConfirmed, reservation.CompletionAlreadyConfirmed, reservation.CompletionAlreadyCancelled:
		return http.StatusOK
	case reservation.CompletionNotFound:
		return http.StatusNotFound
	case reservation.CompletionInvalidToken:
		return http.StatusForbidden
	case reservation.CompletionNoSeatsLeft, reservation.CompletionTimeslotError:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Create godoc
// @Summary 予約を作成
// @Description 座席を仮押さえします（確定までの有効期限あり）
// @Tags reservations
// @Accept json
// @Produce json
// @Param request body CreateReservationRequest true "予約情報"
// @Success 201 {object} AttemptResponse
// @Failure 400 {object} map[string]string
// @Failure 409 {object} AttemptResponse "満席・メール重複・スロット枠不足"
// @Router /reservations [post]
func (h *ReservationHandler) Create(c echo.Context) error {
	var req CreateReservationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "無効なリクエスト")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	result := h.service.MakeReservation(c.Request().Context(), application.ReservationModel{
		Email:           req.Email,
		Seats:           req.Seats,
		SleepOver:       req.SleepOver,
		SlotSelections:  req.SlotSelections,
		PubQuizTeamName: req.PubQuizTeamName,
		PubQuizSeats:    req.PubQuizSeats,
	}, false, true)
	return c.JSON(attemptStatus(result.Code), AttemptResponse{
		Code: string(result.Code), Slot: result.Slot, Message: result.Message,
	})
}

// Confirm godoc
// @Summary 予約を確定
// @Description 確認メールのリンクから予約を確定します
// @Tags reservations
// @Produce json
// @Param email query string true "メールアドレス"
// @Param token query string true "管理トークン"
// @Success 200 {object} CompletionResponse
// @Failure 403 {object} CompletionResponse
// @Failure 404 {object} CompletionResponse
// @Failure 409 {object} CompletionResponse "再検証で枠不足"
// @Router /reservations/confirm [post]
func (h *ReservationHandler) Confirm(c echo.Context) error {
	email := c.QueryParam("email")
	token := c.QueryParam("token")
	if email == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "メールアドレスが必要です")
	}
	result := h.service.ConfirmReservation(c.Request().Context(), email, token, false)
	return c.JSON(completionStatus(result.Code), CompletionResponse{
		Code: string(result.Code), Slot: result.Slot, Message: result.Message,
	})
}

// Cancel godoc
// @Summary 予約をキャンセル
// @Description 予約をキャンセルし、座席を解放します
// @Tags reservations
// @Produce json
// @Param email query string true "メールアドレス"
// @Param token query string true "管理トークン"
// @Success 200 {object} CompletionResponse
// @Failure 403 {object} CompletionResponse
// @Failure 404 {object} CompletionResponse
// @Router /reservations/cancel [post]
func (h *ReservationHandler) Cancel(c echo.Context) error {
	email := c.QueryParam("email")
	token := c.QueryParam("token")
	if email == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "メールアドレスが必要です")
	}
	result := h.service.CancelReservation(c.Request().Context(), email, token)
	return c.JSON(completionStatus(result.Code), CompletionResponse{
		Code: string(result.Code), Slot: result.Slot, Message: result.Message,
	})
}

// Details godoc
// @Summary 予約の詳細を取得
// @Description 管理トークンで認証し、予約内容を返します
// @Tags reservations
// @Produce json
// @Param email query string true "メールアドレス"
// @Param token query string true "管理トークン"
// @Success 200 {object} ReservationDetailsResponse
// @Failure 404 {object} map[string]string
// @Router /reservations [get]
func (h *ReservationHandler) Details(c echo.Context) error {
	email := c.QueryParam("email")
	token := c.QueryParam("token")
	if email == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "メールアドレスが必要です")
	}
	res, err := h.service.GetReservationDetails(c.Request().Context(), email)
	if err != nil {
		if errors.Is(err, reservation.ErrReservationNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	// トークン不一致は存在を漏らさないよう 404 で返す
	if subtle.ConstantTimeCompare([]byte(token), []byte(res.ManagementToken)) != 1 {
		return echo.NewHTTPError(http.StatusNotFound, reservation.ErrReservationNotFound.Error())
	}
	return c.JSON(http.StatusOK, ReservationDetailsResponse{
		Email:       res.Email,
		Seats:       res.Seats,
		MadeOn:      res.MadeOn,
		ConfirmedOn: res.ConfirmedOn,
		CancelledOn: res.CancelledOn,
		SleepOver:   res.SleepOver,
		PubQuizTeam: res.PubQuizTeamName,
		Slots:       h.slots.ViewsForClaims(c.Request().Context(), res.SlotClaims),
	})
}
