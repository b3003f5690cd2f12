package chain

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.wheelz.io/wchain/db"
	"go.wheelz.io/wchain/log"
	"go.wheelz.io/wchain/types"
)

var (
	// ErrAlreadyInitialized is returned when creating a genesis block on a
	// chain that already has one.
	ErrAlreadyInitialized = errors.New("chain already initialized")
	// ErrNotInitialized is returned when appending a block to a chain with
	// no genesis block.
	ErrNotInitialized = errors.New("chain not initialized")
	// ErrIntegrity is returned when the stored chain fails verification.
	ErrIntegrity = errors.New("chain integrity check failed")
)

const (
	blockPrefix = "b/"
	metaPrefix  = "m/"
	headKey     = metaPrefix + "head"
)

// Store persists the ledger in a db.Database. Blocks are stored under
// monotonically increasing sequence numbers, so iterating the block prefix
// yields insertion order. A mutex serializes appends: the ledger has exactly
// one writer and the Store is where that constraint lives.
type Store struct {
	db db.Database

	appendLock sync.Mutex
}

// NewStore wraps an open database as a ledger store.
func NewStore(d db.Database) *Store {
	return &Store{db: d}
}

func blockKey(seq uint64) []byte {
	return []byte(fmt.Sprintf("%s%016x", blockPrefix, seq))
}

// head returns the sequence number of the last stored block and whether any
// block exists at all.
func (s *Store) head(rd db.Reader) (uint64, bool, error) {
	raw, err := rd.Get([]byte(headKey))
	if errors.Is(err, db.ErrKeyNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	var seq uint64
	if _, err := fmt.Sscanf(string(raw), "%016x", &seq); err != nil {
		return 0, false, fmt.Errorf("corrupt head marker %q: %w", raw, err)
	}
	return seq, true, nil
}

// AddBlock appends a block under the next sequence number.
func (s *Store) AddBlock(block *types.Block) error {
	s.appendLock.Lock()
	defer s.appendLock.Unlock()

	tx := s.db.WriteTx()
	defer tx.Discard()

	seq := uint64(0)
	if last, ok, err := s.head(tx); err != nil {
		return err
	} else if ok {
		seq = last + 1
	}
	raw, err := json.Marshal(block)
	if err != nil {
		return err
	}
	if err := tx.Set(blockKey(seq), raw); err != nil {
		return err
	}
	if err := tx.Set([]byte(headKey), []byte(fmt.Sprintf("%016x", seq))); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	log.Debugw("block stored", "seq", seq, "hash", block.Hash, "txs", len(block.Transactions))
	return nil
}

// Blocks returns every stored block in insertion order.
func (s *Store) Blocks() ([]types.Block, error) {
	var blocks []types.Block
	var ierr error
	err := s.db.Iterate([]byte(blockPrefix), func(_, value []byte) bool {
		var b types.Block
		if ierr = json.Unmarshal(value, &b); ierr != nil {
			return false
		}
		blocks = append(blocks, b)
		return true
	})
	if err != nil {
		return nil, err
	}
	return blocks, ierr
}

// LatestBlock returns the block with the most recent timestamp, preferring
// the later insertion on equal timestamps. Returns ErrNotInitialized on an
// empty chain.
func (s *Store) LatestBlock() (*types.Block, error) {
	blocks, err := s.Blocks()
	if err != nil {
		return nil, err
	}
	if len(blocks) == 0 {
		return nil, ErrNotInitialized
	}
	latest := blocks[0]
	for _, b := range blocks[1:] {
		if !b.Timestamp.Before(latest.Timestamp) {
			latest = b
		}
	}
	return &latest, nil
}

// Count returns the number of stored blocks.
func (s *Store) Count() (int, error) {
	count := 0
	err := s.db.Iterate([]byte(blockPrefix), func(_, _ []byte) bool {
		count++
		return true
	})
	return count, err
}

// DeleteBlocks removes every block and the head marker, leaving an
// uninitialized chain behind.
func (s *Store) DeleteBlocks() error {
	s.appendLock.Lock()
	defer s.appendLock.Unlock()

	tx := s.db.WriteTx()
	defer tx.Discard()

	var keys [][]byte
	for _, prefix := range []string{blockPrefix, metaPrefix} {
		err := s.db.Iterate([]byte(prefix), func(key, _ []byte) bool {
			full := append([]byte(prefix), key...)
			keys = append(keys, full)
			return true
		})
		if err != nil {
			return err
		}
	}
	for _, key := range keys {
		if err := tx.Delete(key); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	log.Infow("chain deleted", "blocks", len(keys))
	return nil
}

// IsRunning reports whether the underlying database answers reads.
func (s *Store) IsRunning() bool {
	_, _, err := s.head(s.db)
	return err == nil
}

// SortByTime orders blocks ascending by timestamp, keeping insertion order
// for equal timestamps.
func SortByTime(blocks []types.Block) {
	sort.SliceStable(blocks, func(i, j int) bool {
		return blocks[i].Timestamp.Before(blocks[j].Timestamp)
	})
}
