// Package queue defines the broker contracts between the ledger node and the
// transaction service: an inbound queue of transaction references to process
// and an outbound queue of completion notifications.
package queue

import (
	"context"

	"go.wheelz.io/wchain/types"
)

// Inbound hands out raw queued entries. Payloads are opaque bytes at this
// level; the intake pipeline owns schema validation so that one malformed
// entry never blocks the rest of a batch.
//
// Dequeued entries are not gone from the broker yet: the consumer must either
// Ack an entry once it has been durably classified, or Requeue it for a later
// retry. A consumer crash between Dequeue and Ack must leave the entry
// available for redelivery.
type Inbound interface {
	// Dequeue pops up to max entries without blocking. An empty queue
	// returns an empty slice and no error.
	Dequeue(ctx context.Context, max int) ([][]byte, error)
	// Ack drops a dequeued entry for good. Called once the entry has been
	// appended to a block, rejected, or discarded as malformed.
	Ack(ctx context.Context, entry []byte) error
	// Requeue puts a dequeued entry back for redelivery, for failures that
	// are worth retrying.
	Requeue(ctx context.Context, entry []byte) error
	// Ping reports whether the broker answers.
	Ping(ctx context.Context) error
}

// Notifier publishes completion notifications back to the transaction
// service.
type Notifier interface {
	Notify(ctx context.Context, completed types.TransactionCompleted) error
}
