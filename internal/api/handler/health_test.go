package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthHandler_Check(t *testing.T) {
	t.Run("ステータスokを返す", func(t *testing.T) {
		e := NewTestEcho()
		h := NewHealthHandler()

		req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		require.NoError(t, h.Check(c))
		assert.Equal(t, http.StatusOK, rec.Code)

		var resp HealthResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "ok", resp.Status)
		assert.Equal(t, "ssrs", resp.Service)
		assert.NotEmpty(t, resp.Timestamp)
	})
}
