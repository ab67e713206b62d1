package usage

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"

	"medcare/internal/logger"
	"medcare/internal/storage"
)

// maxEvents bounds the usage slot; older events are dropped first.
const maxEvents = 1000

type Event struct {
	Timestamp time.Time      `json:"timestamp"`
	Action    string         `json:"action"`
	Platform  string         `json:"platform"`
	SessionID string         `json:"sessionId"`
	Data      map[string]any `json:"data,omitempty"`
}

// Tracker appends anonymous usage events to the installation's usage slot.
// Failures are logged and never returned.
type Tracker struct {
	store     *storage.Store
	log       *logger.Logger
	sessionID string
	now       func() time.Time
}

func NewTracker(store *storage.Store, log *logger.Logger) *Tracker {
	if log == nil {
		log = logger.Discard()
	}
	t := &Tracker{store: store, log: log.With(logger.Fields{"component": "usage"}), now: time.Now}
	t.sessionID = newSessionID(t.now())
	return t
}

func newSessionID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return fmt.Sprintf("medcare-%d-%s", now.UnixMilli(), suffix)
}

func (t *Tracker) SessionID() string { return t.sessionID }

func (t *Tracker) TrackStartup(ctx context.Context) {
	t.Track(ctx, "startup", nil)
}

func (t *Tracker) Track(ctx context.Context, action string, data map[string]any) {
	event := Event{
		Timestamp: t.now().UTC(),
		Action:    action,
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
		SessionID: t.sessionID,
		Data:      data,
	}
	err := storage.Update(ctx, t.store, storage.SlotUsageEvents, func(events *[]Event) error {
		*events = append(*events, event)
		if over := len(*events) - maxEvents; over > 0 {
			*events = (*events)[over:]
		}
		return nil
	})
	if err != nil {
		t.log.Warn("usage tracking failed", logger.Fields{"action": action, "error": err.Error()})
		return
	}
	t.log.Debug("usage tracked", logger.Fields{"action": action})
}

// Events returns the stored events, oldest first.
func (t *Tracker) Events(ctx context.Context) ([]Event, error) {
	var events []Event
	if _, err := t.store.Load(ctx, storage.SlotUsageEvents, &events); err != nil {
		return nil, err
	}
	return events, nil
}
