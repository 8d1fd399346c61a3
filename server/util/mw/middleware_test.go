package mw_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	glog "log"

	"github.com/seijimatsuda/session-planner-beta/server/util/log"
	"github.com/seijimatsuda/session-planner-beta/server/util/mw"
	"github.com/stretchr/testify/require"
)

func TestWithRequestID(t *testing.T) {
	ctx := context.Background()
	buf := &bytes.Buffer{}
	glog.SetOutput(buf)
	defer func() {
		glog.SetOutput(os.Stderr)
	}()
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Infof(r.Context(), "test")
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "/", nil)
	require.NoError(t, err)
	recorder := httptest.NewRecorder()
	middleware := mw.WithRequestID(handler)
	middleware.ServeHTTP(recorder, req)
	require.Contains(t, buf.String(), "request_id")
}

func TestWithCORS(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	middleware := mw.WithCORS(handler)

	t.Run("echoes request origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", "http://localhost:5173")
		recorder := httptest.NewRecorder()
		middleware.ServeHTTP(recorder, req)
		require.Equal(t, http.StatusOK, recorder.Code)
		require.Equal(t, "http://localhost:5173", recorder.Header().Get("Access-Control-Allow-Origin"))
		require.Equal(t, "Origin", recorder.Header().Get("Vary"))
		require.Contains(t, recorder.Header().Get("Access-Control-Expose-Headers"), "Content-Range")
		require.Contains(t, recorder.Header().Get("Access-Control-Allow-Headers"), "Range")
	})

	t.Run("wildcard without origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		recorder := httptest.NewRecorder()
		middleware.ServeHTTP(recorder, req)
		require.Equal(t, "*", recorder.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("preflight short-circuits", func(t *testing.T) {
		called := false
		middleware := mw.WithCORS(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
		}))
		req := httptest.NewRequest(http.MethodOptions, "/", nil)
		req.Header.Set("Origin", "http://localhost:5173")
		recorder := httptest.NewRecorder()
		middleware.ServeHTTP(recorder, req)
		require.False(t, called)
		require.Equal(t, http.StatusNoContent, recorder.Code)
		require.Equal(t, "86400", recorder.Header().Get("Access-Control-Max-Age"))
	})
}
