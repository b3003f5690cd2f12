// Package intake pulls queued transaction references, resolves and validates
// them, and appends the valid ones to the ledger as a single block per batch.
package intake

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.wheelz.io/wchain/chain"
	"go.wheelz.io/wchain/crypto/ethereum"
	"go.wheelz.io/wchain/log"
	"go.wheelz.io/wchain/metrics"
	"go.wheelz.io/wchain/queue"
	"go.wheelz.io/wchain/txsource"
	"go.wheelz.io/wchain/types"
)

// DefaultBatchSize is the number of queue entries drained per batch when no
// explicit size is configured.
const DefaultBatchSize = 10

// Pipeline drains the inbound queue into the ledger. A batch produces at most
// one block; a rejected transaction never takes the rest of its batch down.
type Pipeline struct {
	inbound   queue.Inbound
	notifier  queue.Notifier
	source    txsource.Source
	builder   *chain.Builder
	keys      *ethereum.SignKeys
	batchSize int
	now       func() time.Time
}

// New returns a Pipeline. keys holds the addresses authorized to sign
// transaction payloads.
func New(inbound queue.Inbound, notifier queue.Notifier, source txsource.Source,
	builder *chain.Builder, keys *ethereum.SignKeys) *Pipeline {
	return &Pipeline{
		inbound:   inbound,
		notifier:  notifier,
		source:    source,
		builder:   builder,
		keys:      keys,
		batchSize: DefaultBatchSize,
		now:       time.Now,
	}
}

// SetBatchSize overrides the number of entries drained per batch.
func (p *Pipeline) SetBatchSize(n int) {
	if n > 0 {
		p.batchSize = n
	}
}

// SetClock overrides the completion timestamp source.
func (p *Pipeline) SetClock(now func() time.Time) { p.now = now }

// ProcessBatch drains up to batchSize entries and appends one block carrying
// every valid transaction, in dequeue order. It returns the number of
// transactions included. Malformed entries and references to transactions the
// source does not know are acked and dropped; transactions with an invalid
// signature are excluded, acked and notified with an error status. Entries the
// source failed to resolve for a transient reason are requeued for a later
// batch, and included entries are acked only after the block append succeeds.
// A batch with no valid transaction produces no block.
func (p *Pipeline) ProcessBatch(ctx context.Context) (int, error) {
	entries, err := p.inbound.Dequeue(ctx, p.batchSize)
	if err != nil {
		return 0, err
	}
	if len(entries) == 0 {
		return 0, nil
	}
	log.Debugw("processing transaction batch", "entries", len(entries))

	type resolved struct {
		entry []byte
		tx    types.VehicleTransaction
	}
	var valid []resolved
	for _, entry := range entries {
		var ref types.QueuedTransaction
		if err := json.Unmarshal(entry, &ref); err != nil || ref.TransactionID == "" {
			log.Debugw("malformed queue entry dropped", "entry", string(entry))
			p.ack(ctx, entry)
			continue
		}
		tx, err := p.source.GetByID(ctx, ref.TransactionID)
		if errors.Is(err, txsource.ErrTransactionNotFound) {
			log.Debugw("queued transaction does not exist, entry dropped",
				"transaction", ref.TransactionID)
			p.ack(ctx, entry)
			continue
		}
		if err != nil {
			log.Warnw("transaction source unavailable, entry requeued",
				"transaction", ref.TransactionID, "err", err)
			p.requeue(ctx, entry)
			continue
		}
		ok, err := chain.VerifySignature(p.keys, tx)
		if err != nil || !ok {
			log.Warnw("transaction signature rejected", "transaction", tx.ID, "err", err)
			metrics.TransactionsRejected.Inc()
			p.notify(ctx, tx.ID, types.StatusError)
			p.ack(ctx, entry)
			continue
		}
		valid = append(valid, resolved{entry: entry, tx: *tx})
	}
	if len(valid) == 0 {
		return 0, nil
	}

	txs := make([]types.VehicleTransaction, len(valid))
	for i, r := range valid {
		txs[i] = r.tx
	}
	block, err := p.builder.CreateBlock(txs)
	if err != nil {
		for _, r := range valid {
			p.requeue(ctx, r.entry)
		}
		return 0, err
	}
	metrics.BlocksBuilt.Inc()
	metrics.TransactionsAccepted.Add(float64(len(txs)))
	for _, r := range valid {
		p.notify(ctx, r.tx.ID, types.StatusFinished)
		p.ack(ctx, r.entry)
	}
	log.Infow("batch processed", "block", block.Hash, "included", len(txs),
		"dropped", len(entries)-len(txs))
	return len(txs), nil
}

// ack drops a classified entry from the broker.
func (p *Pipeline) ack(ctx context.Context, entry []byte) {
	if err := p.inbound.Ack(ctx, entry); err != nil {
		log.Errorw("cannot ack queue entry", "entry", string(entry), "err", err)
	}
}

// requeue sends an entry back to the broker for a later retry.
func (p *Pipeline) requeue(ctx context.Context, entry []byte) {
	if err := p.inbound.Requeue(ctx, entry); err != nil {
		log.Errorw("cannot requeue queue entry", "entry", string(entry), "err", err)
	}
}

// notify publishes a completion notification. Failing to notify is logged
// but never takes down the batch.
func (p *Pipeline) notify(ctx context.Context, txID string, status types.TransactionStatus) {
	completed := types.TransactionCompleted{
		TransactionID: txID,
		NewStatus:     status,
		CompletedAt:   p.now().UTC(),
	}
	if err := p.notifier.Notify(ctx, completed); err != nil {
		log.Errorw("cannot publish completion notification",
			"transaction", txID, "status", status, "err", err)
	}
}
