package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/su-fit-vut/ssrs/internal/application"
	"github.com/su-fit-vut/ssrs/internal/domain/timeslot"
)

type SeatHandler struct {
	ledger SeatLedgerInterface
}

func NewSeatHandler(l SeatLedgerInterface) *SeatHandler {
	return &SeatHandler{ledger: l}
}

type SeatsLeftResponse struct {
	SeatsLeft  int `json:"seats_left"`
	TotalSeats int `json:"total_seats"`
}

// SeatsLeft godoc
// @Summary 残席数を取得
// @Description イベント全体の残席数を返します
// @Tags seats
// @Produce json
// @Success 200 {object} SeatsLeftResponse
// @Router /seats [get]
func (h *SeatHandler) SeatsLeft(c echo.Context) error {
	left, err := h.ledger.SeatsLeft(c.Request().Context(), true)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, SeatsLeftResponse{SeatsLeft: left, TotalSeats: h.ledger.TotalSeats()})
}

// SlotSeatsLeft godoc
// @Summary スロットの残席数を取得
// @Description 指定タイムスロットの残席数を返します
// @Tags seats
// @Produce json
// @Param id path int true "タイムスロットID"
// @Success 200 {object} map[string]int
// @Failure 404 {object} map[string]string
// @Router /timeslots/{id}/seats [get]
func (h *SeatHandler) SlotSeatsLeft(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "無効なスロットID"})
	}
	left, err := h.ledger.SlotSeatsLeft(c.Request().Context(), id, true)
	if errors.Is(err, timeslot.ErrTimeSlotNotFound) || left == application.SlotNotFoundSeats {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "タイムスロットが見つかりません"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]int{"seats_left": left})
}
