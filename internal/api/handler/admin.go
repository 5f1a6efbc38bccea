package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

type AdminHandler struct {
	exporter ExportServiceInterface
	service  ReservationServiceInterface
}

func NewAdminHandler(e ExportServiceInterface, s ReservationServiceInterface) *AdminHandler {
	return &AdminHandler{exporter: e, service: s}
}

type ScheduleRemindersRequest struct {
	// RunAt はリマインダー送信予定時刻（RFC3339）。省略時は即時
	RunAt *time.Time `json:"run_at,omitempty"`
}

type ScheduleRemindersResponse struct {
	Scheduled int `json:"scheduled"`
}

// ExportCsv godoc
// @Summary 確定済み予約をCSVでエクスポート
// @Description 運営用の確定済み予約一覧をCSV形式で返します
// @Tags admin
// @Produce text/csv
// @Success 200 {string} string
// @Router /admin/export [get]
func (h *AdminHandler) ExportCsv(c echo.Context) error {
	csv, err := h.exporter.ExportConfirmedReservationsCsv(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="reservations.csv"`)
	return c.Blob(http.StatusOK, "text/csv; charset=utf-8", []byte(csv))
}

// ScheduleReminders godoc
// @Summary リマインダーメールを予約
// @Description 確定済み予約ごとにリマインダージョブをキューへ積みます
// @Tags admin
// @Accept json
// @Produce json
// @Success 200 {object} ScheduleRemindersResponse
// @Router /admin/reminders [post]
func (h *AdminHandler) ScheduleReminders(c echo.Context) error {
	var req ScheduleRemindersRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "無効なリクエスト")
	}
	runAt := time.Now()
	if req.RunAt != nil {
		runAt = *req.RunAt
	}
	scheduled, err := h.service.ScheduleReminders(c.Request().Context(), runAt)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, ScheduleRemindersResponse{Scheduled: scheduled})
}
