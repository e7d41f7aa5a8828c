package ports

import "context"

// RMQConsumer drains the share events queue into the audit log.
type RMQConsumer interface {
	// Connect reuses the publisher connection while it is open.
	Connect(dsn string) error
	Init() error
	DeliveryWorker(ctx context.Context)
}
