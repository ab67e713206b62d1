package usage

import (
	"context"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medcare/internal/logger"
	"medcare/internal/storage"
)

func newTestStore(t *testing.T) *storage.Store {
	t.Helper()
	b, err := storage.OpenSQLite(filepath.Join(t.TempDir(), "usage-test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	s, err := storage.Open(context.Background(), b, "test")
	require.NoError(t, err)
	return s
}

func TestSessionIDFormat(t *testing.T) {
	id := newSessionID(time.UnixMilli(1700000000123))
	assert.Regexp(t, regexp.MustCompile(`^medcare-1700000000123-[0-9a-f]{9}$`), id)
}

func TestTrackAppendsEvents(t *testing.T) {
	ctx := context.Background()
	tr := NewTracker(newTestStore(t), logger.Discard())

	tr.TrackStartup(ctx)
	tr.Track(ctx, "consultation_completed", map[string]any{"severity": "low"})

	events, err := tr.Events(ctx)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "startup", events[0].Action)
	assert.Equal(t, "consultation_completed", events[1].Action)
	assert.Equal(t, tr.SessionID(), events[1].SessionID)
	assert.Equal(t, "low", events[1].Data["severity"])
	assert.NotEmpty(t, events[0].Platform)
}

func TestTrackBoundsSlot(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	seed := make([]Event, maxEvents)
	for i := range seed {
		seed[i] = Event{Action: "old"}
	}
	require.NoError(t, st.Save(ctx, storage.SlotUsageEvents, seed))

	tr := NewTracker(st, logger.Discard())
	tr.Track(ctx, "new", nil)

	events, err := tr.Events(ctx)
	require.NoError(t, err)
	assert.Len(t, events, maxEvents)
	assert.Equal(t, "new", events[len(events)-1].Action)
}
