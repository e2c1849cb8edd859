package apierr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/gobang-online/internal/model"
	"github.com/mcoot/gobang-online/internal/services/auth"
)

func TestWriteErrorMapsKnownErrors(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{model.ErrUserNotFound, http.StatusNotFound, CodeUserNotFound},
		{model.ErrUsernameExists, http.StatusConflict, CodeUsernameExists},
		{fmt.Errorf("creating user: %w", model.ErrUsernameExists), http.StatusConflict, CodeUsernameExists},
		{model.ErrAlreadyOnline, http.StatusConflict, CodeAlreadyOnline},
		{model.ErrAlreadyInRoom, http.StatusConflict, CodeAlreadyInRoom},
		{auth.ErrInvalidCredentials, http.StatusUnauthorized, CodeInvalidCredentials},
		{auth.ErrInvalidSession, http.StatusUnauthorized, CodeUnauthorized},
		{NewInvalidRequestError("bad"), http.StatusBadRequest, CodeInvalidRequest},
		{errors.New("boom"), http.StatusInternalServerError, CodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			rr := httptest.NewRecorder()
			WriteError(rr, tt.err)

			assert.Equal(t, tt.status, rr.Code)
			assert.Equal(t, tt.status, StatusOf(tt.err))
			assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}
