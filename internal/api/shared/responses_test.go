package shared

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/phrazzld/card-service/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRespondWithJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	w := httptest.NewRecorder()

	RespondWithJSON(w, req, http.StatusCreated, map[string]interface{}{"message": "success", "data": 123})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "success", body["message"])
	assert.Equal(t, float64(123), body["data"])
}

// UnencodableType cannot be JSON encoded
type UnencodableType struct {
	Circular *UnencodableType
}

func TestRespondWithJSONEncodingError(t *testing.T) {
	logBuf, log := logger.NewTestLogger(t)
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req = req.WithContext(logger.WithLogger(req.Context(), log))
	w := httptest.NewRecorder()

	data := &UnencodableType{}
	data.Circular = data

	RespondWithJSON(w, req, http.StatusOK, data)

	assert.Equal(t, http.StatusOK, w.Code)
	logger.AssertLogContains(t, logBuf, "failed to encode JSON response")
}

func TestRespondWithErrorAndLog(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		opts      []ResponseOption
		wantLevel string
	}{
		{name: "server error logs at error", status: http.StatusInternalServerError, wantLevel: "ERROR"},
		{name: "client error logs at debug", status: http.StatusBadRequest, wantLevel: "DEBUG"},
		{
			name:      "elevated client error logs at warn",
			status:    http.StatusConflict,
			opts:      []ResponseOption{WithElevatedLogLevel()},
			wantLevel: "WARN",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			logBuf, log := logger.NewTestLogger(t)
			ctx := logger.WithLogger(context.WithValue(context.Background(), TraceIDKey, "trace-1"), log)
			req := httptest.NewRequest(http.MethodPost, "/v1/cards", nil).WithContext(ctx)
			w := httptest.NewRecorder()

			err := errors.New("insert failed for card 4545451234567890")
			RespondWithErrorAndLog(w, req, tc.status, "CARD-000", "Operation failed", err, tc.opts...)

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, "CARD-000", resp.Code)
			assert.Equal(t, "Operation failed", resp.Error)
			assert.Equal(t, "trace-1", resp.TraceID)
			assert.NotContains(t, w.Body.String(), "insert failed")

			entries, parseErr := logBuf.GetLogEntries()
			require.NoError(t, parseErr)
			require.NotEmpty(t, entries)
			last := entries[len(entries)-1]
			assert.Equal(t, "API error response", last["msg"])
			assert.Equal(t, tc.wantLevel, last["level"])
			assert.Contains(t, last["error"], "454545******7890")
			assert.NotContains(t, last["error"], "4545451234567890")
		})
	}
}
