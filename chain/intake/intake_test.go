package intake

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"

	"go.wheelz.io/wchain/chain"
	"go.wheelz.io/wchain/crypto/ethereum"
	"go.wheelz.io/wchain/db/metadb"
	"go.wheelz.io/wchain/queue/memqueue"
	"go.wheelz.io/wchain/txsource"
	"go.wheelz.io/wchain/types"
)

type testEnv struct {
	store    *chain.Store
	builder  *chain.Builder
	queue    *memqueue.MemQueue
	source   *txsource.Static
	signer   *ethereum.SignKeys
	auth     *ethereum.SignKeys
	pipeline *Pipeline
}

func newTestEnv(t *testing.T) *testEnv {
	store := chain.NewStore(metadb.NewTest(t))
	builder := chain.NewBuilder(store)
	_, err := builder.CreateGenesis()
	qt.Assert(t, err, qt.IsNil)

	signer := ethereum.NewSignKeys()
	qt.Assert(t, signer.Generate(), qt.IsNil)
	auth := ethereum.NewSignKeys()
	auth.AddAuthKey(signer.Address())

	q := memqueue.New()
	source := txsource.NewStatic()
	return &testEnv{
		store:    store,
		builder:  builder,
		queue:    q,
		source:   source,
		signer:   signer,
		auth:     auth,
		pipeline: New(q, q, source, builder, auth),
	}
}

// addTx registers a signed create transaction and enqueues its reference.
func (env *testEnv) addTx(t *testing.T, id, vin string, tamper bool) {
	tx := types.VehicleTransaction{
		ID:        id,
		Timestamp: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
		UserID:    "user-1",
		Action:    types.ActionCreate,
		Status:    types.StatusPending,
		Data:      types.TransactionData{Create: &types.Vehicle{VIN: vin}},
	}
	payload, err := chain.SignaturePayload(&tx)
	qt.Assert(t, err, qt.IsNil)
	sig, err := env.signer.Sign(payload)
	qt.Assert(t, err, qt.IsNil)
	tx.DataSignature = types.Signature{
		Signature:     sig,
		SignAlgorithm: types.SignAlgorithmSecp256k1,
	}
	if tamper {
		tx.Data.Create.VIN = vin + "X"
	}
	env.source.Add(tx)
	qt.Assert(t, env.queue.EnqueueRef(id), qt.IsNil)
}

func (env *testEnv) blockCount(t *testing.T) int {
	count, err := env.store.Count()
	qt.Assert(t, err, qt.IsNil)
	return count
}

func TestProcessBatch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.addTx(t, "tx-good", "VF1AAAAA000000001", false)
	env.addTx(t, "tx-bad-sig", "VF1AAAAA000000002", true)
	// a reference that resolves to nothing
	qt.Assert(t, env.queue.EnqueueRef("tx-unknown"), qt.IsNil)
	// garbage entries
	qt.Assert(t, env.queue.Enqueue([]byte("not json")), qt.IsNil)
	qt.Assert(t, env.queue.Enqueue([]byte(`{"transactionId":""}`)), qt.IsNil)

	included, err := env.pipeline.ProcessBatch(ctx)
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, included, qt.Equals, 1)

	// genesis plus exactly one new block, carrying only the valid transaction
	qt.Assert(t, env.blockCount(t), qt.Equals, 2)
	latest, err := env.store.LatestBlock()
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, latest.Transactions, qt.HasLen, 1)
	qt.Assert(t, latest.Transactions[0].ID, qt.Equals, "tx-good")

	// one finished and one error notification
	completions := env.queue.Completions()
	qt.Assert(t, completions, qt.HasLen, 2)
	byID := map[string]types.TransactionStatus{}
	for _, c := range completions {
		byID[c.TransactionID] = c.NewStatus
	}
	qt.Assert(t, byID["tx-good"], qt.Equals, types.StatusFinished)
	qt.Assert(t, byID["tx-bad-sig"], qt.Equals, types.StatusError)

	// the resulting chain still verifies
	valid, err := chain.NewVerifier(env.store).Verify()
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, valid, qt.IsTrue)
}

func TestProcessBatchNoValid(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	qt.Assert(t, env.queue.Enqueue([]byte("garbage")), qt.IsNil)
	env.addTx(t, "tx-bad", "VF1AAAAA000000001", true)

	included, err := env.pipeline.ProcessBatch(ctx)
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, included, qt.Equals, 0)
	// no block beyond genesis
	qt.Assert(t, env.blockCount(t), qt.Equals, 1)
}

func TestProcessBatchEmptyQueue(t *testing.T) {
	env := newTestEnv(t)
	included, err := env.pipeline.ProcessBatch(context.Background())
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, included, qt.Equals, 0)
	qt.Assert(t, env.blockCount(t), qt.Equals, 1)
}

func TestProcessBatchKeepsOrderAndSize(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for i := 1; i <= 12; i++ {
		env.addTx(t, fmt.Sprintf("tx-%02d", i), fmt.Sprintf("VF1AAAAA0000000%02d", i), false)
	}

	// the default batch size caps a single block at 10 transactions
	included, err := env.pipeline.ProcessBatch(ctx)
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, included, qt.Equals, 10)
	latest, err := env.store.LatestBlock()
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, latest.Transactions, qt.HasLen, 10)
	for i, tx := range latest.Transactions {
		qt.Assert(t, tx.ID, qt.Equals, fmt.Sprintf("tx-%02d", i+1))
	}
	qt.Assert(t, env.queue.Len(), qt.Equals, 2)

	included, err = env.pipeline.ProcessBatch(ctx)
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, included, qt.Equals, 2)
	qt.Assert(t, env.blockCount(t), qt.Equals, 3)
}

// flakySource fails a configurable number of times per id before delegating.
type flakySource struct {
	inner    *txsource.Static
	failures map[string]int
}

func (s *flakySource) GetByID(ctx context.Context, id string) (*types.VehicleTransaction, error) {
	if s.failures[id] > 0 {
		s.failures[id]--
		return nil, errors.New("transaction service unavailable")
	}
	return s.inner.GetByID(ctx, id)
}

func TestProcessBatchRequeuesTransientFailures(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.addTx(t, "tx-good", "VF1AAAAA000000001", false)
	env.addTx(t, "tx-flaky", "VF1AAAAA000000002", false)

	flaky := &flakySource{inner: env.source, failures: map[string]int{"tx-flaky": 1}}
	pipeline := New(env.queue, env.queue, flaky, env.builder, env.auth)

	// first pass: the resolvable transaction is included, the failing
	// reference goes back to the queue instead of being dropped
	included, err := pipeline.ProcessBatch(ctx)
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, included, qt.Equals, 1)
	qt.Assert(t, env.queue.Len(), qt.Equals, 1)

	// second pass: the source answers and the entry is processed
	included, err = pipeline.ProcessBatch(ctx)
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, included, qt.Equals, 1)
	qt.Assert(t, env.queue.Len(), qt.Equals, 0)
	qt.Assert(t, env.blockCount(t), qt.Equals, 3)
}
