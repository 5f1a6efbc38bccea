package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/su-fit-vut/ssrs/internal/domain/timeslot"
)

type TimeslotHandler struct {
	service SlotServiceInterface
}

func NewTimeslotHandler(s SlotServiceInterface) *TimeslotHandler {
	return &TimeslotHandler{service: s}
}

type ActivityResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type PubQuizAvailabilityResponse struct {
	Teams bool `json:"teams"`
	Solo  bool `json:"solo"`
}

// ListActivities godoc
// @Summary アクティビティ一覧を取得
// @Description タイムスロットを持つアクティビティの一覧を返します
// @Tags timeslots
// @Produce json
// @Success 200 {array} ActivityResponse
// @Router /activities [get]
func (h *TimeslotHandler) ListActivities(c echo.Context) error {
	activities, err := h.service.GetSlottedActivities(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	resp := make([]ActivityResponse, len(activities))
	for i, a := range activities {
		resp[i] = ActivityResponse{ID: a.ID, Name: a.Name}
	}
	return c.JSON(http.StatusOK, resp)
}

// ListByActivity godoc
// @Summary アクティビティのスロット一覧を取得
// @Description 指定アクティビティのタイムスロットを残席付きで返します
// @Tags timeslots
// @Produce json
// @Param id path int true "アクティビティID"
// @Success 200 {array} timeslot.View
// @Failure 404 {object} map[string]string
// @Router /activities/{id}/timeslots [get]
func (h *TimeslotHandler) ListByActivity(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "無効なアクティビティID"})
	}
	views, err := h.service.GetTimeslotsForActivity(c.Request().Context(), id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if views == nil {
		views = []timeslot.View{}
	}
	return c.JSON(http.StatusOK, views)
}

// PubQuizAvailability godoc
// @Summary クイズ枠の空き状況を取得
// @Description チーム枠とソロ枠それぞれの空き有無を返します
// @Tags timeslots
// @Produce json
// @Success 200 {object} PubQuizAvailabilityResponse
// @Router /pubquiz/availability [get]
func (h *TimeslotHandler) PubQuizAvailability(c echo.Context) error {
	teams, solo, err := h.service.GetPubQuizAvailability(c.Request().Context(), true)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, PubQuizAvailabilityResponse{Teams: teams, Solo: solo})
}
