package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/gobang-online/internal/testutil"
)

func TestRecoveryAnswersPanicBeforeWrite(t *testing.T) {
	logger, logs := testutil.CaptureLogger()
	h := Recovery(logger, DefaultPanicHandler)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/ws/hall", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	rec, ok := logs.Find("panic recovered")
	require.True(t, ok)
	assert.Equal(t, "/ws/hall", rec["path"])
	assert.Equal(t, "boom", rec["error"])
	assert.Equal(t, false, rec["committed"])
}

func TestRecoveryLeavesCommittedResponse(t *testing.T) {
	logger, logs := testutil.CaptureLogger()
	called := false
	handler := func(http.ResponseWriter, *http.Request, any) { called = true }
	h := Recovery(logger, handler)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		panic("late")
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/users/login", nil))

	assert.False(t, called)
	assert.Equal(t, http.StatusAccepted, rr.Code)
	rec, ok := logs.Find("panic recovered")
	require.True(t, ok)
	assert.Equal(t, true, rec["committed"])
}

func TestRecoveryRepanicsAbort(t *testing.T) {
	h := Recovery(testutil.NopLogger(), DefaultPanicHandler)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})
}

func TestLoggingRecordsStatusThroughRecovery(t *testing.T) {
	logger, logs := testutil.CaptureLogger()
	h := Recovery(logger, DefaultPanicHandler)(Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	})))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil))

	assert.Equal(t, http.StatusTeapot, rr.Code)
	rec, ok := logs.Find("http request")
	require.True(t, ok)
	assert.EqualValues(t, http.StatusTeapot, rec["status"])
	assert.EqualValues(t, len("short and stout"), rec["size"])
	assert.Equal(t, "/api/v1/stats", rec["path"])
}
