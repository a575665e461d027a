package worker

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/jwalitptl/carebook/pkg/logger"
	"github.com/jwalitptl/carebook/pkg/messaging"
)

// BrokerMonitor pings the broker on an interval and remembers the outcome
// for the readiness probe.
type BrokerMonitor struct {
	broker   messaging.Broker
	interval time.Duration
	timeout  time.Duration
	logger   *logger.Logger
	healthy  atomic.Bool
}

func NewBrokerMonitor(broker messaging.Broker, interval time.Duration, logger *logger.Logger) *BrokerMonitor {
	return &BrokerMonitor{
		broker:   broker,
		interval: interval,
		timeout:  interval / 2,
		logger:   logger,
	}
}

func (m *BrokerMonitor) Start(ctx context.Context) {
	m.check(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.check(ctx)
		}
	}
}

func (m *BrokerMonitor) Ready() bool {
	return m.healthy.Load()
}

func (m *BrokerMonitor) check(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	err := m.broker.Ping(ctx)
	was := m.healthy.Swap(err == nil)
	switch {
	case err != nil && was:
		m.logger.Error(err, "Broker became unreachable")
	case err == nil && !was:
		m.logger.Info("Broker reachable")
	}
}
