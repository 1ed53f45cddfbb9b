package auditlog

import (
	"encoding/csv"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSink_BeginWritesHeaderOnly(t *testing.T) {
	sink := New(filepath.Join(t.TempDir(), "blocked.csv"))
	require.NoError(t, sink.Begin())
	defer sink.Close()

	data, err := sink.Export()
	require.NoError(t, err)
	assert.Equal(t, "Handle,FollowsCount,DID,BlockedAt\n", string(data))
}

func TestSink_AppendIsDurablePerRow(t *testing.T) {
	sink := New(filepath.Join(t.TempDir(), "blocked.csv"))
	require.NoError(t, sink.Begin())
	defer sink.Close()

	blockedAt := time.Date(2025, 3, 14, 9, 26, 53, 0, time.Local)
	require.NoError(t, sink.Append(Record{
		Handle:       "spam.bsky.social",
		FollowsCount: 8200,
		DID:          "did:plc:spam1",
		BlockedAt:    blockedAt,
	}))

	// Read back without closing: each append must already be on disk.
	data, err := sink.Export()
	require.NoError(t, err)

	rows, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, Header, rows[0])
	assert.Equal(t, []string{"spam.bsky.social", "8200", "did:plc:spam1", "2025-03-14 09:26:53"}, rows[1])
}

func TestSink_BeginTruncatesPreviousRun(t *testing.T) {
	sink := New(filepath.Join(t.TempDir(), "blocked.csv"))

	require.NoError(t, sink.Begin())
	require.NoError(t, sink.Append(Record{Handle: "old.bsky.social", DID: "did:plc:old", BlockedAt: time.Now()}))

	// A new run starts from a clean file.
	require.NoError(t, sink.Begin())
	require.NoError(t, sink.Append(Record{Handle: "new.bsky.social", DID: "did:plc:new", BlockedAt: time.Now()}))
	defer sink.Close()

	data, err := sink.Export()
	require.NoError(t, err)
	assert.NotContains(t, string(data), "old.bsky.social")
	assert.Contains(t, string(data), "new.bsky.social")

	rows, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	require.NoError(t, err)
	assert.Len(t, rows, 2, "one header plus one row for this run only")
}

func TestSink_AppendBeforeBegin(t *testing.T) {
	sink := New(filepath.Join(t.TempDir(), "blocked.csv"))
	err := sink.Append(Record{Handle: "x", DID: "did:plc:x", BlockedAt: time.Now()})
	require.Error(t, err)
}
