package routes

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/seijimatsuda/session-planner-beta/server/auth"
	"github.com/seijimatsuda/session-planner-beta/server/fetch"
	"github.com/seijimatsuda/session-planner-beta/server/media"
	"github.com/seijimatsuda/session-planner-beta/server/storage"
	"github.com/stretchr/testify/require"
)

// MakeTestRoutes stands up the full handler over an in-memory store and a
// static validator that accepts "token1" for user1 and "token2" for user2.
func MakeTestRoutes(t *testing.T, chunkCeiling int64) (string, *storage.MemStore, *auth.StaticValidator) {
	t.Helper()
	store, err := storage.NewMemStore()
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, store.Close()) })
	validator := auth.NewStaticValidator(map[string]auth.Identity{
		"token1": {UserID: "user1", Email: "user1@example.com"},
		"token2": {UserID: "user2", Email: "user2@example.com"},
	})
	ledger, err := fetch.NewLedger(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, ledger.Close()) })

	resolver := media.NewResolver(store, media.WithRetryPolicy(media.RetryPolicy{
		MaxAttempts: 1, BaseDelay: time.Millisecond, Multiplier: 1,
	}))
	fetcher := fetch.NewFetcher(store, ledger)
	handler := MakeRoutes(validator, resolver, fetcher, ledger, chunkCeiling)
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv.URL, store, validator
}
