package types

import (
	"encoding/json"
	"fmt"
	"time"
)

// Block is an immutable, hash-linked unit of the ledger. Blocks are appended
// by a single writer and never mutated afterwards.
type Block struct {
	ID           string
	PreviousHash string
	Timestamp    time.Time
	Transactions []VehicleTransaction
	Hash         string
}

type blockEnvelope struct {
	ID           string               `json:"id"`
	PreviousHash string               `json:"previousHash"`
	Timestamp    string               `json:"timestamp"`
	Transactions []VehicleTransaction `json:"transactions"`
	Hash         string               `json:"hash"`
}

func (b Block) MarshalJSON() ([]byte, error) {
	txs := b.Transactions
	if txs == nil {
		txs = []VehicleTransaction{}
	}
	return json.Marshal(blockEnvelope{
		ID:           b.ID,
		PreviousHash: b.PreviousHash,
		Timestamp:    b.Timestamp.UTC().Format(ISOTimeLayout),
		Transactions: txs,
		Hash:         b.Hash,
	})
}

func (b *Block) UnmarshalJSON(data []byte) error {
	var env blockEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	ts, err := time.Parse(time.RFC3339, env.Timestamp)
	if err != nil {
		return fmt.Errorf("block %s has invalid timestamp %q: %w", env.ID, env.Timestamp, err)
	}
	b.ID = env.ID
	b.PreviousHash = env.PreviousHash
	b.Timestamp = ts.UTC()
	b.Transactions = env.Transactions
	b.Hash = env.Hash
	return nil
}

// IsGenesis reports whether the block is the chain's first block.
func (b *Block) IsGenesis() bool {
	return b.PreviousHash == ZeroHash
}
