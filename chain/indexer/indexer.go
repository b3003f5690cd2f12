// Package indexer derives the queryable vehicle state from the ledger. The
// projection is disposable: it can always be dropped and rebuilt by replaying
// the chain in order.
package indexer

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.wheelz.io/wchain/chain"
	"go.wheelz.io/wchain/log"
	"go.wheelz.io/wchain/types"
)

// Indexer replays the ledger into a projection Store.
type Indexer struct {
	chainStore *chain.Store
	verifier   *chain.Verifier
	store      Store

	// rebuildLock serializes full rebuilds; reads stay concurrent.
	rebuildLock sync.Mutex
}

// New returns an Indexer projecting the given chain into store.
func New(chainStore *chain.Store, store Store) *Indexer {
	return &Indexer{
		chainStore: chainStore,
		verifier:   chain.NewVerifier(chainStore),
		store:      store,
	}
}

// Verifier exposes the chain verifier used before every rebuild, so callers
// can configure the authorized signature keys.
func (idx *Indexer) Verifier() *chain.Verifier { return idx.verifier }

// Store exposes the underlying projection store.
func (idx *Indexer) Store() Store { return idx.store }

// Rebuild verifies the chain and replays it from scratch into the projection
// store. On an invalid chain it fails with chain.ErrIntegrity and leaves the
// current projection untouched. Returns the number of transactions applied.
func (idx *Indexer) Rebuild(ctx context.Context) (int, error) {
	idx.rebuildLock.Lock()
	defer idx.rebuildLock.Unlock()

	startTime := time.Now()
	valid, err := idx.verifier.Verify()
	if err != nil {
		return 0, err
	}
	if !valid {
		return 0, chain.ErrIntegrity
	}

	blocks, err := idx.chainStore.Blocks()
	if err != nil {
		return 0, err
	}
	chain.SortByTime(blocks)

	if err := idx.store.Reset(ctx); err != nil {
		return 0, err
	}

	applied := 0
	for i := range blocks {
		txs := sortedTransactions(blocks[i].Transactions)
		for j := range txs {
			if err := idx.applyTransaction(ctx, &txs[j]); err != nil {
				return applied, err
			}
			applied++
		}
	}
	log.Infow("projection rebuilt",
		"took", time.Since(startTime),
		"blocks", len(blocks),
		"transactions", applied)
	return applied, nil
}

// sortedTransactions orders a block's transactions ascending by timestamp,
// breaking ties by transaction id.
func sortedTransactions(txs []types.VehicleTransaction) []types.VehicleTransaction {
	sorted := make([]types.VehicleTransaction, len(txs))
	copy(sorted, txs)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Timestamp.Equal(sorted[j].Timestamp) {
			return sorted[i].ID < sorted[j].ID
		}
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})
	return sorted
}

func (idx *Indexer) applyTransaction(ctx context.Context, tx *types.VehicleTransaction) error {
	switch tx.Action {
	case types.ActionCreate:
		vehicle := *tx.Data.Create
		if vehicle.UserID == "" {
			vehicle.UserID = tx.UserID
		}
		return idx.store.SaveVehicle(ctx, &vehicle)
	case types.ActionUpdate:
		err := idx.store.UpdateVehicleByVin(ctx, tx.Data.Update.VIN, tx.UserID, &tx.Data.Update.Changes)
		if err == ErrVehicleNotFound {
			// updates addressing a never-created or deleted VIN are skipped
			log.Debugw("update for unknown vehicle skipped", "vin", tx.Data.Update.VIN, "transaction", tx.ID)
			return nil
		}
		return err
	case types.ActionDelete:
		return idx.store.RemoveVehicleByVin(ctx, tx.Data.Delete.VIN)
	}
	log.Warnw("transaction with unknown action skipped", "action", tx.Action, "transaction", tx.ID)
	return nil
}

// GetVehicleByVin returns the projected vehicle for the VIN.
func (idx *Indexer) GetVehicleByVin(ctx context.Context, vin string) (*types.Vehicle, error) {
	return idx.store.GetVehicleByVin(ctx, vin)
}

// GetVehicleByLicensePlate returns the projected vehicle carrying the plate.
func (idx *Indexer) GetVehicleByLicensePlate(ctx context.Context, plate string) (*types.Vehicle, error) {
	return idx.store.GetVehicleByLicensePlate(ctx, plate)
}

// GetVehiclesPage returns one page of projected vehicles.
func (idx *Indexer) GetVehiclesPage(ctx context.Context, params types.PaginationParams,
	filter VehicleFilter) (*types.PaginatedVehicles, error) {
	return idx.store.GetVehiclesPage(ctx, params, filter)
}
