package fetch_test

import (
	"context"
	"testing"
	"time"

	"github.com/seijimatsuda/session-planner-beta/server/fetch"
	"github.com/stretchr/testify/require"
)

func TestLedgerRoundTrip(t *testing.T) {
	ctx := context.Background()
	ledger, err := fetch.NewLedger(":memory:")
	require.NoError(t, err)
	defer ledger.Close()

	entry := fetch.Entry{
		UserID:    "user1",
		Path:      "user1/1714000000000.mp4",
		Size:      1024,
		SourceURL: "https://www.youtube.com/watch?v=abc",
		CreatedAt: time.Now(),
	}
	require.NoError(t, ledger.Record(ctx, entry))

	entries, err := ledger.List(ctx, "user1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, entry.Path, entries[0].Path)
	require.Equal(t, entry.Size, entries[0].Size)
	require.Equal(t, entry.SourceURL, entries[0].SourceURL)
	require.Positive(t, entries[0].ID)
}

func TestLedgerIsolatesUsers(t *testing.T) {
	ctx := context.Background()
	ledger, err := fetch.NewLedger(":memory:")
	require.NoError(t, err)
	defer ledger.Close()

	now := time.Now()
	require.NoError(t, ledger.Record(ctx, fetch.Entry{
		UserID: "user1", Path: "user1/a.mp4", Size: 1, SourceURL: "https://youtu.be/a", CreatedAt: now,
	}))
	require.NoError(t, ledger.Record(ctx, fetch.Entry{
		UserID: "user2", Path: "user2/b.mp4", Size: 2, SourceURL: "https://youtu.be/b", CreatedAt: now,
	}))

	entries, err := ledger.List(ctx, "user1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "user1/a.mp4", entries[0].Path)

	entries, err = ledger.List(ctx, "nobody")
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestLedgerOrdersMostRecentFirst(t *testing.T) {
	ctx := context.Background()
	ledger, err := fetch.NewLedger(":memory:")
	require.NoError(t, err)
	defer ledger.Close()

	base := time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		require.NoError(t, ledger.Record(ctx, fetch.Entry{
			UserID:    "user1",
			Path:      "user1/" + string(rune('a'+i)) + ".mp4",
			Size:      int64(i),
			SourceURL: "https://youtu.be/x",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}
	entries, err := ledger.List(ctx, "user1")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	require.Equal(t, "user1/c.mp4", entries[0].Path)
	require.Equal(t, "user1/a.mp4", entries[2].Path)
}
