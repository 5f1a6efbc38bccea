package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestAdminHandler_ExportCsv(t *testing.T) {
	t.Run("CSVを添付ファイルとして返す", func(t *testing.T) {
		e := NewTestEcho()
		exporter := new(MockExportService)
		exporter.On("ExportConfirmedReservationsCsv", mock.Anything).
			Return("email;seats\na@example.com;3\n", nil)
		h := NewAdminHandler(exporter, new(MockReservationService))

		req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/export", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		require.NoError(t, h.ExportCsv(c))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Header().Get(echo.HeaderContentType), "text/csv")
		assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), "reservations.csv")
		assert.Contains(t, rec.Body.String(), "a@example.com;3")
	})

	t.Run("エクスポート失敗は500を返す", func(t *testing.T) {
		e := NewTestEcho()
		exporter := new(MockExportService)
		exporter.On("ExportConfirmedReservationsCsv", mock.Anything).
			Return("", errors.New("db down"))
		h := NewAdminHandler(exporter, new(MockReservationService))

		req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/export", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		require.NoError(t, h.ExportCsv(c))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestAdminHandler_ScheduleReminders(t *testing.T) {
	t.Run("指定時刻でリマインダーを予約する", func(t *testing.T) {
		e := NewTestEcho()
		runAt := time.Date(2026, 9, 18, 15, 0, 0, 0, time.UTC)
		service := new(MockReservationService)
		service.On("ScheduleReminders", mock.Anything, runAt).Return(12, nil)
		h := NewAdminHandler(new(MockExportService), service)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/reminders",
			strings.NewReader(`{"run_at":"2026-09-18T15:00:00Z"}`))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		require.NoError(t, h.ScheduleReminders(c))
		assert.Equal(t, http.StatusOK, rec.Code)

		var resp ScheduleRemindersResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, 12, resp.Scheduled)
		service.AssertExpectations(t)
	})

	t.Run("時刻省略時は即時送信として予約する", func(t *testing.T) {
		e := NewTestEcho()
		service := new(MockReservationService)
		service.On("ScheduleReminders", mock.Anything, mock.MatchedBy(func(runAt time.Time) bool {
			return time.Since(runAt) < time.Minute
		})).Return(3, nil)
		h := NewAdminHandler(new(MockExportService), service)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/reminders",
			strings.NewReader(`{}`))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		require.NoError(t, h.ScheduleReminders(c))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("スケジュール失敗は500を返す", func(t *testing.T) {
		e := NewTestEcho()
		service := new(MockReservationService)
		service.On("ScheduleReminders", mock.Anything, mock.Anything).
			Return(0, errors.New("queue down"))
		h := NewAdminHandler(new(MockExportService), service)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/reminders",
			strings.NewReader(`{}`))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		require.NoError(t, h.ScheduleReminders(c))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}
