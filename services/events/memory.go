package eventsvc

import (
	"context"
	"sync"

	"github.com/darasa-lms/darasa/core"
)

// MemoryPublisher keeps published events in memory. Used when no broker is configured and in tests.
type MemoryPublisher struct {
	mu     sync.Mutex
	events []core.Event
}

var _ core.EventPublisher = (*MemoryPublisher)(nil)

func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{}
}

func (p *MemoryPublisher) Publish(_ context.Context, events ...core.Event) error {
	p.mu.Lock()
	p.events = append(p.events, events...)
	p.mu.Unlock()
	return nil
}

// Events returns the published events, optionally only those named name.
func (p *MemoryPublisher) Events(name ...string) []core.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(name) == 0 {
		return append([]core.Event(nil), p.events...)
	}
	var found []core.Event
	for _, evt := range p.events {
		if evt.Name == name[0] {
			found = append(found, evt)
		}
	}
	return found
}

func (p *MemoryPublisher) Reset() {
	p.mu.Lock()
	p.events = nil
	p.mu.Unlock()
}

// NewPublisher returns a kafka publisher when brokers are configured, an in-memory one otherwise.
func NewPublisher(conf *core.Config, logger core.Logger) core.EventPublisher {
	if len(conf.Kafka.Brokers) == 0 {
		logger.Info("no kafka brokers configured, domain events are kept in memory")
		return NewMemoryPublisher()
	}
	return NewKafkaPublisher(conf.Kafka)
}
