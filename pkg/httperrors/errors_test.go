package httperrors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"pixelperfect/internal/core/domain"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrite(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{
			name:       "file too large",
			err:        fmt.Errorf("%w: %s", domain.ErrValidation, domain.MsgFileTooLarge),
			wantStatus: http.StatusBadRequest,
			wantMsg:    domain.MsgFileTooLarge,
		},
		{
			name:       "unknown session",
			err:        fmt.Errorf("session abc: %w", domain.ErrNotFound),
			wantStatus: http.StatusNotFound,
			wantMsg:    "session abc: not found",
		},
		{
			name:       "busy",
			err:        domain.ErrBusy,
			wantStatus: http.StatusConflict,
			wantMsg:    domain.ErrBusy.Error(),
		},
		{
			name:       "stale",
			err:        domain.ErrStaleResult,
			wantStatus: http.StatusConflict,
			wantMsg:    domain.ErrStaleResult.Error(),
		},
		{
			name:       "terminal failure hides cause",
			err:        fmt.Errorf("%w: %w", domain.ErrUpscaleFailed, fmt.Errorf("%w: oom", domain.ErrRender)),
			wantStatus: http.StatusUnprocessableEntity,
			wantMsg:    domain.UserFacingError,
		},
		{
			name:       "unexpected",
			err:        errors.New("disk on fire"),
			wantStatus: http.StatusInternalServerError,
			wantMsg:    "Internal Server Error",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			Write(rec, tc.err)

			assert.Equal(t, tc.wantStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var body response
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.Equal(t, tc.wantMsg, body.Error)
		})
	}
}
