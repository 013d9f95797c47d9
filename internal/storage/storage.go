package storage

import "shareVault/internal/model"

// EventSink receives emitted event records.
type EventSink interface {
	Emit(ev model.EventRecord) error
}

// MultiSink fans an event out to several sinks, stopping at the first
// failure.
type MultiSink []EventSink

func (m MultiSink) Emit(ev model.EventRecord) error {
	for _, sink := range m {
		if err := sink.Emit(ev); err != nil {
			return err
		}
	}
	return nil
}

// Collector buffers event records in memory until drained.
type Collector struct {
	events []model.EventRecord
}

func (c *Collector) Emit(ev model.EventRecord) error {
	c.events = append(c.events, ev)
	return nil
}

// Drain returns the buffered events and resets the buffer.
func (c *Collector) Drain() []model.EventRecord {
	drained := c.events
	c.events = nil
	return drained
}
