package metrics

import (
	"github.com/podmeta/podmeta/internal/events"
)

// Pump drains lifecycle events into the manager's counters. It returns when
// the channel closes, which happens when the bus shuts down or the subscribe
// context is cancelled. Run it in its own goroutine.
func Pump(ch <-chan events.Event, m *Manager) {
	for ev := range ch {
		switch ev.Kind {
		case events.KindCreated:
			m.Inc(CounterRecordsCreated, 1)
		case events.KindUpdated:
			m.Inc(CounterRecordsUpdated, 1)
		case events.KindDeleted:
			m.Inc(CounterRecordsDeleted, 1)
		}
	}
}
