// Package memqueue is an in-process broker used in standalone mode and in
// tests.
package memqueue

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/enriquebris/goconcurrentqueue"

	"go.wheelz.io/wchain/queue"
	"go.wheelz.io/wchain/types"
)

const queueSize = 100 << 10

// MemQueue implements queue.Inbound and queue.Notifier on two bounded FIFOs.
type MemQueue struct {
	inbound   *goconcurrentqueue.FixedFIFO
	completed *goconcurrentqueue.FixedFIFO
}

var (
	_ queue.Inbound  = (*MemQueue)(nil)
	_ queue.Notifier = (*MemQueue)(nil)
)

// New returns an empty in-process queue pair.
func New() *MemQueue {
	return &MemQueue{
		inbound:   goconcurrentqueue.NewFixedFIFO(queueSize),
		completed: goconcurrentqueue.NewFixedFIFO(queueSize),
	}
}

// Enqueue pushes a raw inbound entry, as the transaction service would.
func (q *MemQueue) Enqueue(payload []byte) error {
	return q.inbound.Enqueue(payload)
}

// EnqueueRef marshals and pushes a transaction reference.
func (q *MemQueue) EnqueueRef(transactionID string) error {
	payload, err := json.Marshal(types.QueuedTransaction{TransactionID: transactionID})
	if err != nil {
		return err
	}
	return q.Enqueue(payload)
}

// Dequeue pops up to max entries without blocking.
func (q *MemQueue) Dequeue(_ context.Context, max int) ([][]byte, error) {
	entries := [][]byte{}
	for len(entries) < max {
		item, err := q.inbound.Dequeue()
		if err != nil {
			// an empty queue is the normal end of a batch
			break
		}
		payload, ok := item.([]byte)
		if !ok {
			return nil, errors.New("memqueue: unexpected element type")
		}
		entries = append(entries, payload)
	}
	return entries, nil
}

// Ack is a no-op: the in-process queue hands out its only copy on Dequeue.
func (q *MemQueue) Ack(_ context.Context, _ []byte) error { return nil }

// Requeue pushes a dequeued entry back at the tail, to be retried on a later
// batch.
func (q *MemQueue) Requeue(_ context.Context, entry []byte) error {
	return q.inbound.Enqueue(entry)
}

// Notify records a completion notification.
func (q *MemQueue) Notify(_ context.Context, completed types.TransactionCompleted) error {
	return q.completed.Enqueue(completed)
}

// Completions drains and returns all recorded completion notifications.
func (q *MemQueue) Completions() []types.TransactionCompleted {
	var out []types.TransactionCompleted
	for {
		item, err := q.completed.Dequeue()
		if err != nil {
			return out
		}
		if completed, ok := item.(types.TransactionCompleted); ok {
			out = append(out, completed)
		}
	}
}

// Len returns the number of pending inbound entries.
func (q *MemQueue) Len() int { return q.inbound.GetLen() }

// Ping always succeeds for the in-process queue.
func (q *MemQueue) Ping(_ context.Context) error { return nil }
