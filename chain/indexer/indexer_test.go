package indexer

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/google/go-cmp/cmp"

	"go.wheelz.io/wchain/chain"
	"go.wheelz.io/wchain/crypto/ethereum"
	"go.wheelz.io/wchain/db/metadb"
	"go.wheelz.io/wchain/types"
)

func testIndexer(t *testing.T) (*chain.Store, *chain.Builder, *Indexer) {
	chainStore := chain.NewStore(metadb.NewTest(t))
	builder := chain.NewBuilder(chainStore)
	start := time.Date(2024, 5, 10, 8, 0, 0, 0, time.UTC)
	builder.SetClock(func() time.Time {
		start = start.Add(time.Minute)
		return start
	})

	store, err := NewSQLStore(filepath.Join(t.TempDir(), "state.sqlite"))
	qt.Assert(t, err, qt.IsNil)
	t.Cleanup(func() { store.Close() })

	return chainStore, builder, New(chainStore, store)
}

func createTx(id, vin, userID string, ts time.Time) types.VehicleTransaction {
	return types.VehicleTransaction{
		ID:        id,
		Timestamp: ts,
		UserID:    userID,
		Action:    types.ActionCreate,
		Status:    types.StatusPending,
		Data: types.TransactionData{Create: &types.Vehicle{
			VIN:      vin,
			Features: types.VehicleFeatures{Brand: "RENAULT", Model: "CLIO", CvPower: 5},
			Infos: types.VehicleInfos{
				HolderCount:  1,
				LicensePlate: "AA-123-" + vin[len(vin)-2:],
			},
			History:            []types.VehicleHistoryItem{{Date: "2024-01-01", Type: "creation"}},
			AttachedClientsIds: []string{"client-" + vin[len(vin)-1:]},
		}},
	}
}

func updateTx(id, vin, userID string, ts time.Time, changes types.VehicleChanges) types.VehicleTransaction {
	return types.VehicleTransaction{
		ID:        id,
		Timestamp: ts,
		UserID:    userID,
		Action:    types.ActionUpdate,
		Status:    types.StatusPending,
		Data:      types.TransactionData{Update: &types.UpdateData{VIN: vin, Changes: changes}},
	}
}

func deleteTx(id, vin string, ts time.Time) types.VehicleTransaction {
	return types.VehicleTransaction{
		ID:        id,
		Timestamp: ts,
		Action:    types.ActionDelete,
		Status:    types.StatusPending,
		Data:      types.TransactionData{Delete: &types.DeleteData{VIN: vin}},
	}
}

func TestRebuildEmptyChain(t *testing.T) {
	_, _, idx := testIndexer(t)
	_, err := idx.Rebuild(context.Background())
	qt.Assert(t, err, qt.Equals, chain.ErrIntegrity)
}

func TestRebuild(t *testing.T) {
	_, builder, idx := testIndexer(t)
	ctx := context.Background()

	_, err := builder.CreateGenesis()
	qt.Assert(t, err, qt.IsNil)

	t0 := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)
	_, err = builder.CreateBlock([]types.VehicleTransaction{
		createTx("tx-1", "VF1AAAAA000000001", "user-1", t0),
		createTx("tx-2", "VF1AAAAA000000002", "user-2", t0.Add(time.Second)),
	})
	qt.Assert(t, err, qt.IsNil)

	newFeatures := types.VehicleFeatures{Brand: "PEUGEOT", Model: "208", CvPower: 6}
	_, err = builder.CreateBlock([]types.VehicleTransaction{
		updateTx("tx-3", "VF1AAAAA000000001", "user-3", t0.Add(time.Minute), types.VehicleChanges{
			Features:           &newFeatures,
			AttachedClientsIds: []string{"client-x", "client-y"},
		}),
		deleteTx("tx-4", "VF1AAAAA000000002", t0.Add(2*time.Minute)),
		// updates for unknown vehicles are skipped, not fatal
		updateTx("tx-5", "VF1UNKNOWN0000000", "user-9", t0.Add(3*time.Minute), types.VehicleChanges{}),
	})
	qt.Assert(t, err, qt.IsNil)

	applied, err := idx.Rebuild(ctx)
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, applied, qt.Equals, 5)

	// vehicle 1: created, then updated (features and clients replaced, owner changed)
	v1, err := idx.GetVehicleByVin(ctx, "VF1AAAAA000000001")
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, v1.UserID, qt.Equals, "user-3")
	qt.Assert(t, v1.Features, qt.DeepEquals, newFeatures)
	qt.Assert(t, v1.AttachedClientsIds, qt.DeepEquals, []string{"client-x", "client-y"})
	// untouched sections survive the update
	qt.Assert(t, v1.Infos.HolderCount, qt.Equals, 1)
	qt.Assert(t, v1.History, qt.HasLen, 1)

	// vehicle 2: created, then deleted
	_, err = idx.GetVehicleByVin(ctx, "VF1AAAAA000000002")
	qt.Assert(t, err, qt.Equals, ErrVehicleNotFound)

	count, err := idx.Store().CountVehicles(ctx)
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, count, qt.Equals, 1)

	// rebuilding again yields the same state
	_, err = idx.Rebuild(ctx)
	qt.Assert(t, err, qt.IsNil)
	v1again, err := idx.GetVehicleByVin(ctx, "VF1AAAAA000000001")
	qt.Assert(t, err, qt.IsNil)
	if diff := cmp.Diff(v1, v1again); diff != "" {
		t.Fatalf("projection not idempotent (-first +second):\n%s", diff)
	}
}

func TestRebuildOrdersTransactionsByTimestamp(t *testing.T) {
	_, builder, idx := testIndexer(t)
	ctx := context.Background()

	_, err := builder.CreateGenesis()
	qt.Assert(t, err, qt.IsNil)

	t0 := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)
	// the update is stored before the create but carries a later timestamp
	_, err = builder.CreateBlock([]types.VehicleTransaction{
		updateTx("tx-2", "VF1AAAAA000000001", "user-2", t0.Add(time.Minute), types.VehicleChanges{}),
		createTx("tx-1", "VF1AAAAA000000001", "user-1", t0),
	})
	qt.Assert(t, err, qt.IsNil)

	_, err = idx.Rebuild(ctx)
	qt.Assert(t, err, qt.IsNil)
	v, err := idx.GetVehicleByVin(ctx, "VF1AAAAA000000001")
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, v.UserID, qt.Equals, "user-2")
}

func TestRebuildOrdersBlocksByTimestamp(t *testing.T) {
	chainStore, builder, idx := testIndexer(t)
	ctx := context.Background()

	genesis, err := builder.CreateGenesis()
	qt.Assert(t, err, qt.IsNil)

	// hand-built blocks so they can be stored out of timestamp order
	t0 := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)
	b1 := types.Block{
		ID:           "block-1",
		PreviousHash: genesis.Hash,
		Timestamp:    t0,
		Transactions: []types.VehicleTransaction{
			createTx("tx-1", "VF1AAAAA000000001", "user-1", t0),
		},
	}
	b1.Hash, err = chain.BlockHash(&b1)
	qt.Assert(t, err, qt.IsNil)

	t1 := t0.Add(time.Minute)
	b2 := types.Block{
		ID:           "block-2",
		PreviousHash: b1.Hash,
		Timestamp:    t1,
		Transactions: []types.VehicleTransaction{
			updateTx("tx-2", "VF1AAAAA000000001", "user-2", t1, types.VehicleChanges{}),
		},
	}
	b2.Hash, err = chain.BlockHash(&b2)
	qt.Assert(t, err, qt.IsNil)

	// insertion order does not follow the hash links
	qt.Assert(t, chainStore.AddBlock(&b2), qt.IsNil)
	qt.Assert(t, chainStore.AddBlock(&b1), qt.IsNil)

	applied, err := idx.Rebuild(ctx)
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, applied, qt.Equals, 2)
	v, err := idx.GetVehicleByVin(ctx, "VF1AAAAA000000001")
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, v.UserID, qt.Equals, "user-2")
}

// signTx attaches a dataSignature produced with the given keys.
func signTx(t *testing.T, signer *ethereum.SignKeys, tx *types.VehicleTransaction) {
	payload, err := chain.SignaturePayload(tx)
	qt.Assert(t, err, qt.IsNil)
	sig, err := signer.Sign(payload)
	qt.Assert(t, err, qt.IsNil)
	tx.DataSignature = types.Signature{
		Signature:     sig,
		SignAlgorithm: types.SignAlgorithmSecp256k1,
	}
}

func TestRebuildEnforcesAuthorizedSenders(t *testing.T) {
	_, builder, idx := testIndexer(t)
	ctx := context.Background()

	authorized := ethereum.NewSignKeys()
	qt.Assert(t, authorized.Generate(), qt.IsNil)
	stranger := ethereum.NewSignKeys()
	qt.Assert(t, stranger.Generate(), qt.IsNil)
	auth := ethereum.NewSignKeys()
	auth.AddAuthKey(authorized.Address())

	_, err := builder.CreateGenesis()
	qt.Assert(t, err, qt.IsNil)
	t0 := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)
	tx1 := createTx("tx-1", "VF1AAAAA000000001", "user-1", t0)
	signTx(t, authorized, &tx1)
	tx2 := createTx("tx-2", "VF1AAAAA000000002", "user-2", t0.Add(time.Second))
	signTx(t, stranger, &tx2)
	_, err = builder.CreateBlock([]types.VehicleTransaction{tx1, tx2})
	qt.Assert(t, err, qt.IsNil)

	// with sender enforcement on, a block carrying a transaction signed by
	// an unknown address must fail the rebuild and leave the state alone
	idx.Verifier().SetAuthKeys(auth)
	_, err = idx.Rebuild(ctx)
	qt.Assert(t, err, qt.Equals, chain.ErrIntegrity)
	count, err := idx.Store().CountVehicles(ctx)
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, count, qt.Equals, 0)

	auth.AddAuthKey(stranger.Address())
	applied, err := idx.Rebuild(ctx)
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, applied, qt.Equals, 2)
}

func TestGetVehicleByLicensePlate(t *testing.T) {
	_, builder, idx := testIndexer(t)
	ctx := context.Background()

	_, err := builder.CreateGenesis()
	qt.Assert(t, err, qt.IsNil)
	t0 := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)
	_, err = builder.CreateBlock([]types.VehicleTransaction{
		createTx("tx-1", "VF1AAAAA000000001", "user-1", t0),
	})
	qt.Assert(t, err, qt.IsNil)
	_, err = idx.Rebuild(ctx)
	qt.Assert(t, err, qt.IsNil)

	v, err := idx.GetVehicleByLicensePlate(ctx, "AA-123-01")
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, v.VIN, qt.Equals, "VF1AAAAA000000001")

	_, err = idx.GetVehicleByLicensePlate(ctx, "ZZ-999-ZZ")
	qt.Assert(t, err, qt.Equals, ErrVehicleNotFound)
}

func TestGetVehiclesPage(t *testing.T) {
	_, builder, idx := testIndexer(t)
	ctx := context.Background()

	_, err := builder.CreateGenesis()
	qt.Assert(t, err, qt.IsNil)
	t0 := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)
	var txs []types.VehicleTransaction
	for i := 1; i <= 25; i++ {
		user := "user-even"
		if i%2 == 1 {
			user = "user-odd"
		}
		txs = append(txs, createTx(fmt.Sprintf("tx-%02d", i),
			fmt.Sprintf("VF1AAAAA0000000%02d", i), user, t0.Add(time.Duration(i)*time.Second)))
	}
	_, err = builder.CreateBlock(txs)
	qt.Assert(t, err, qt.IsNil)
	_, err = idx.Rebuild(ctx)
	qt.Assert(t, err, qt.IsNil)

	// plain pagination
	page, err := idx.GetVehiclesPage(ctx, types.PaginationParams{Page: 2, PerPage: 10}, VehicleFilter{})
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, page.Meta.Total, qt.Equals, 25)
	qt.Assert(t, page.Items, qt.HasLen, 10)
	qt.Assert(t, page.Items[0].VIN, qt.Equals, "VF1AAAAA000000011")

	// last page is short
	page, err = idx.GetVehiclesPage(ctx, types.PaginationParams{Page: 3, PerPage: 10}, VehicleFilter{})
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, page.Items, qt.HasLen, 5)

	// owner filter
	page, err = idx.GetVehiclesPage(ctx, types.PaginationParams{Page: 1, PerPage: 50},
		VehicleFilter{UserIDs: []string{"user-odd"}})
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, page.Meta.Total, qt.Equals, 13)

	// owner and client filters combine with AND
	page, err = idx.GetVehiclesPage(ctx, types.PaginationParams{Page: 1, PerPage: 50},
		VehicleFilter{UserIDs: []string{"user-odd"}, ClientIDs: []string{"client-1"}})
	qt.Assert(t, err, qt.IsNil)
	for _, v := range page.Items {
		qt.Assert(t, v.UserID, qt.Equals, "user-odd")
		qt.Assert(t, v.AttachedClientsIds, qt.DeepEquals, []string{"client-1"})
	}
	qt.Assert(t, page.Meta.Total > 0, qt.IsTrue)

	// out of range pages are empty but keep the total
	page, err = idx.GetVehiclesPage(ctx, types.PaginationParams{Page: 9, PerPage: 10}, VehicleFilter{})
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, page.Items, qt.HasLen, 0)
	qt.Assert(t, page.Meta.Total, qt.Equals, 25)
}
