package chain

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"go.wheelz.io/wchain/crypto/hashing"
	"go.wheelz.io/wchain/log"
	"go.wheelz.io/wchain/types"
)

// Builder assembles and appends blocks. The clock and the id generator are
// injectable so tests can build reproducible chains.
type Builder struct {
	store *Store
	now   func() time.Time
	newID func() string
}

// NewBuilder returns a Builder on top of the given store, using the wall
// clock and random UUIDs.
func NewBuilder(store *Store) *Builder {
	return &Builder{
		store: store,
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// SetClock overrides the block timestamp source.
func (bb *Builder) SetClock(now func() time.Time) { bb.now = now }

// SetIDGenerator overrides the block id source.
func (bb *Builder) SetIDGenerator(newID func() string) { bb.newID = newID }

// CreateGenesis initializes an empty chain with a genesis block. It fails
// with ErrAlreadyInitialized if any block exists.
func (bb *Builder) CreateGenesis() (*types.Block, error) {
	_, err := bb.store.LatestBlock()
	switch {
	case err == nil:
		return nil, ErrAlreadyInitialized
	case !errors.Is(err, ErrNotInitialized):
		return nil, err
	}
	ts := bb.now().UTC().Truncate(time.Millisecond)
	block := &types.Block{
		ID:           bb.newID(),
		PreviousHash: types.ZeroHash,
		Timestamp:    ts,
		Transactions: []types.VehicleTransaction{},
		Hash:         hashing.Hex(GenesisPreimage(ts)),
	}
	if err := bb.store.AddBlock(block); err != nil {
		return nil, err
	}
	log.Infow("genesis block created", "hash", block.Hash, "timestamp", ts)
	return block, nil
}

// CreateBlock appends a block carrying the given transactions, in the given
// order, linked to the latest block. It fails with ErrNotInitialized if the
// chain has no genesis block.
func (bb *Builder) CreateBlock(txs []types.VehicleTransaction) (*types.Block, error) {
	latest, err := bb.store.LatestBlock()
	if err != nil {
		return nil, err
	}
	ts := bb.now().UTC().Truncate(time.Millisecond)
	preimage, err := BlockPreimage(latest.Hash, ts, txs)
	if err != nil {
		return nil, err
	}
	block := &types.Block{
		ID:           bb.newID(),
		PreviousHash: latest.Hash,
		Timestamp:    ts,
		Transactions: txs,
		Hash:         hashing.Hex(preimage),
	}
	if err := bb.store.AddBlock(block); err != nil {
		return nil, err
	}
	log.Infow("block created", "hash", block.Hash, "previousHash", block.PreviousHash, "txs", len(txs))
	return block, nil
}
