package domain

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPayloadIsStale(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	var nilPayload *Payload
	require.True(t, nilPayload.IsStale(now), "nil payload must classify as stale")

	emissions := 1.5
	fresh := &Payload{Emissions: &emissions, UpdatedAt: now.Add(-time.Hour).Unix(), Source: SourceAPI}
	require.False(t, fresh.IsStale(now))

	flagged := &Payload{Emissions: &emissions, UpdatedAt: now.Unix(), Stale: true}
	require.True(t, flagged.IsStale(now), "explicit stale flag wins over a fresh timestamp")

	missingTimestamp := &Payload{Emissions: &emissions}
	require.True(t, missingTimestamp.IsStale(now))

	justInside := &Payload{Emissions: &emissions, UpdatedAt: now.Add(-FreshFor).Unix()}
	require.False(t, justInside.IsStale(now), "exactly at the threshold is still fresh")

	justBeyond := &Payload{Emissions: &emissions, UpdatedAt: now.Add(-FreshFor - time.Second).Unix()}
	require.True(t, justBeyond.IsStale(now))
}

func TestPayloadNeedsRefresh(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	emissions := 0.8

	fresh := &Payload{Emissions: &emissions, UpdatedAt: now.Add(-time.Hour).Unix()}
	require.False(t, fresh.NeedsRefresh(now))

	stale := &Payload{Emissions: &emissions, UpdatedAt: now.Add(-25 * time.Hour).Unix()}
	require.True(t, stale.NeedsRefresh(now))

	// A payload with a fresh-looking flag state but a timestamp past the
	// weekly safety net still refreshes.
	weekOld := &Payload{Emissions: &emissions, UpdatedAt: now.Add(-LegacyFreshFor - time.Minute).Unix()}
	require.True(t, weekOld.NeedsRefresh(now))
}

func TestAppendHistoryCapsOldestFirst(t *testing.T) {
	record := PageEmissions{PageID: 7}
	for i := 0; i < MaxHistoryEntries+3; i++ {
		record.AppendHistory(HistoryEntry{Date: fmt.Sprintf("2026-01-%02d 00:00:00", i+1), Value: float64(i)})
	}
	require.Len(t, record.History, MaxHistoryEntries)
	require.Equal(t, float64(3), record.History[0].Value, "oldest entries are dropped")
	require.Equal(t, float64(MaxHistoryEntries+2), record.History[len(record.History)-1].Value)
}
