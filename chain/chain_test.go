package chain

import (
	"fmt"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"

	"go.wheelz.io/wchain/crypto/ethereum"
	"go.wheelz.io/wchain/crypto/hashing"
	"go.wheelz.io/wchain/db/metadb"
	"go.wheelz.io/wchain/types"
)

func testBuilder(t *testing.T) (*Store, *Builder) {
	store := NewStore(metadb.NewTest(t))
	builder := NewBuilder(store)
	seq := 0
	builder.SetIDGenerator(func() string {
		seq++
		return fmt.Sprintf("block-%04d", seq)
	})
	start := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	builder.SetClock(func() time.Time {
		start = start.Add(time.Minute)
		return start
	})
	return store, builder
}

func signedTx(t *testing.T, signer *ethereum.SignKeys, action types.TransactionAction, vin string, ts time.Time) types.VehicleTransaction {
	tx := types.VehicleTransaction{
		ID:        fmt.Sprintf("tx-%s-%s", action, vin),
		Timestamp: ts,
		UserID:    "user-1",
		Action:    action,
		Status:    types.StatusPending,
	}
	switch action {
	case types.ActionCreate:
		tx.Data.Create = &types.Vehicle{VIN: vin}
	case types.ActionUpdate:
		tx.Data.Update = &types.UpdateData{VIN: vin}
	case types.ActionDelete:
		tx.Data.Delete = &types.DeleteData{VIN: vin}
	}
	payload, err := SignaturePayload(&tx)
	qt.Assert(t, err, qt.IsNil)
	sig, err := signer.Sign(payload)
	qt.Assert(t, err, qt.IsNil)
	tx.DataSignature = types.Signature{
		Signature:     sig,
		SignAlgorithm: types.SignAlgorithmSecp256k1,
	}
	return tx
}

func TestCreateGenesis(t *testing.T) {
	store, builder := testBuilder(t)

	_, err := builder.CreateBlock(nil)
	qt.Assert(t, err, qt.Equals, ErrNotInitialized)

	genesis, err := builder.CreateGenesis()
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, genesis.PreviousHash, qt.Equals, types.ZeroHash)
	qt.Assert(t, genesis.IsGenesis(), qt.IsTrue)
	qt.Assert(t, genesis.Hash, qt.Equals, hashing.Hex(GenesisPreimage(genesis.Timestamp)))

	_, err = builder.CreateGenesis()
	qt.Assert(t, err, qt.Equals, ErrAlreadyInitialized)

	// the failed second attempt must not have stored anything
	count, err := store.Count()
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, count, qt.Equals, 1)

	latest, err := store.LatestBlock()
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, latest.Hash, qt.Equals, genesis.Hash)
}

func TestCreateBlockLinksAndDeterminism(t *testing.T) {
	store, builder := testBuilder(t)
	signer := ethereum.NewSignKeys()
	qt.Assert(t, signer.Generate(), qt.IsNil)

	genesis, err := builder.CreateGenesis()
	qt.Assert(t, err, qt.IsNil)

	txTime := time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)
	b1, err := builder.CreateBlock([]types.VehicleTransaction{
		signedTx(t, signer, types.ActionCreate, "VF1AAAAA000000001", txTime),
		signedTx(t, signer, types.ActionCreate, "VF1AAAAA000000002", txTime.Add(time.Second)),
	})
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, b1.PreviousHash, qt.Equals, genesis.Hash)

	b2, err := builder.CreateBlock([]types.VehicleTransaction{
		signedTx(t, signer, types.ActionDelete, "VF1AAAAA000000001", txTime.Add(time.Minute)),
	})
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, b2.PreviousHash, qt.Equals, b1.Hash)

	// the hash of a stored block must be reproducible from its contents
	blocks, err := store.Blocks()
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, blocks, qt.HasLen, 3)
	for _, b := range blocks {
		hash, err := BlockHash(&b)
		qt.Assert(t, err, qt.IsNil)
		qt.Assert(t, hash, qt.Equals, b.Hash)
	}

	// order of transactions is part of the preimage
	swapped := *b1
	swapped.Transactions = []types.VehicleTransaction{b1.Transactions[1], b1.Transactions[0]}
	hash, err := BlockHash(&swapped)
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, hash == b1.Hash, qt.IsFalse)
}

func TestLatestBlockTieBreak(t *testing.T) {
	store, builder := testBuilder(t)
	ts := time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC)
	builder.SetClock(func() time.Time { return ts })

	_, err := builder.CreateGenesis()
	qt.Assert(t, err, qt.IsNil)
	b1, err := builder.CreateBlock(nil)
	qt.Assert(t, err, qt.IsNil)
	b2, err := builder.CreateBlock(nil)
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, b2.PreviousHash, qt.Equals, b1.Hash)

	// equal timestamps resolve to the most recently appended block
	latest, err := store.LatestBlock()
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, latest.ID, qt.Equals, b2.ID)
}

func TestVerify(t *testing.T) {
	store, builder := testBuilder(t)
	verifier := NewVerifier(store)

	// empty chain is not valid
	valid, err := verifier.Verify()
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, valid, qt.IsFalse)

	signer := ethereum.NewSignKeys()
	qt.Assert(t, signer.Generate(), qt.IsNil)

	_, err = builder.CreateGenesis()
	qt.Assert(t, err, qt.IsNil)
	txTime := time.Date(2024, 3, 1, 11, 0, 0, 0, time.UTC)
	_, err = builder.CreateBlock([]types.VehicleTransaction{
		signedTx(t, signer, types.ActionCreate, "VF1AAAAA000000001", txTime),
	})
	qt.Assert(t, err, qt.IsNil)

	valid, err = verifier.Verify()
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, valid, qt.IsTrue)

	// with the signing key authorized, the signature check passes too
	auth := ethereum.NewSignKeys()
	auth.AddAuthKey(signer.Address())
	verifier.SetAuthKeys(auth)
	valid, err = verifier.Verify()
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, valid, qt.IsTrue)

	// signatures from unknown keys fail the authorized-sender check
	verifier.SetAuthKeys(ethereum.NewSignKeys())
	valid, err = verifier.Verify()
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, valid, qt.IsFalse)
	verifier.SetAuthKeys(nil)

	// appending a forged block breaks verification
	forged := &types.Block{
		ID:           "forged",
		PreviousHash: "0000000000000000000000000000000000000000000000000000000000000001",
		Timestamp:    txTime.Add(time.Hour),
		Hash:         "beef",
	}
	qt.Assert(t, store.AddBlock(forged), qt.IsNil)
	valid, err = verifier.Verify()
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, valid, qt.IsFalse)
}

func TestDeleteBlocks(t *testing.T) {
	store, builder := testBuilder(t)
	_, err := builder.CreateGenesis()
	qt.Assert(t, err, qt.IsNil)
	_, err = builder.CreateBlock(nil)
	qt.Assert(t, err, qt.IsNil)

	count, err := store.Count()
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, count, qt.Equals, 2)

	qt.Assert(t, store.DeleteBlocks(), qt.IsNil)
	count, err = store.Count()
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, count, qt.Equals, 0)
	_, err = store.LatestBlock()
	qt.Assert(t, err, qt.Equals, ErrNotInitialized)

	// a deleted chain can be initialized again
	_, err = builder.CreateGenesis()
	qt.Assert(t, err, qt.IsNil)
}

func TestComputeStats(t *testing.T) {
	stats := ComputeStats(nil)
	qt.Assert(t, stats.EvolutionOfTransactions, qt.HasLen, 0)
	qt.Assert(t, stats.EvolutionOfVehicles, qt.HasLen, 0)
	qt.Assert(t, stats.LastExecution, qt.IsNil)

	signer := ethereum.NewSignKeys()
	qt.Assert(t, signer.Generate(), qt.IsNil)

	day1 := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	day2 := time.Date(2024, 3, 3, 10, 0, 0, 0, time.UTC)
	blocks := []types.Block{
		{ID: "g", PreviousHash: types.ZeroHash, Timestamp: day1},
		{ID: "b1", Timestamp: day1.Add(time.Hour), Transactions: []types.VehicleTransaction{
			signedTx(t, signer, types.ActionCreate, "VIN1", day1),
			signedTx(t, signer, types.ActionCreate, "VIN2", day1),
		}},
		{ID: "b2", Timestamp: day2, Transactions: []types.VehicleTransaction{
			signedTx(t, signer, types.ActionUpdate, "VIN1", day2),
			signedTx(t, signer, types.ActionDelete, "VIN2", day2),
		}},
	}
	stats = ComputeStats(blocks)
	qt.Assert(t, stats.EvolutionOfTransactions, qt.DeepEquals, []types.StatsPoint{
		{Date: "2024-03-01", Value: 2},
		{Date: "2024-03-03", Value: 4},
	})
	qt.Assert(t, stats.EvolutionOfVehicles, qt.DeepEquals, []types.StatsPoint{
		{Date: "2024-03-01", Value: 2},
		{Date: "2024-03-03", Value: 1},
	})
	qt.Assert(t, stats.LastExecution, qt.DeepEquals, &types.LastExecution{
		Date:            "2024-03-03",
		NewTransactions: 2,
	})
}
