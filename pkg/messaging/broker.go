package messaging

import (
	"context"
)

// Broker defines the interface for message brokers
type Broker interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	Ping(ctx context.Context) error
	Close() error
}

// NoopBroker drops every message. It stands in when no broker is configured.
type NoopBroker struct{}

func NewNoopBroker() *NoopBroker {
	return &NoopBroker{}
}

func (NoopBroker) Publish(context.Context, string, interface{}) error {
	return nil
}

// Subscribe returns a channel that closes with ctx.
func (NoopBroker) Subscribe(ctx context.Context, _ string) (<-chan []byte, error) {
	ch := make(chan []byte)
	go func() {
		<-ctx.Done()
		close(ch)
	}()
	return ch, nil
}

func (NoopBroker) Ping(context.Context) error {
	return nil
}

func (NoopBroker) Close() error {
	return nil
}
