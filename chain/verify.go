package chain

import (
	"go.wheelz.io/wchain/crypto/ethereum"
	"go.wheelz.io/wchain/log"
	"go.wheelz.io/wchain/types"
)

// ValidPair reports whether curr correctly extends prev: the link must match
// and the recorded hash must equal the recomputed one.
func ValidPair(prev, curr *types.Block) bool {
	if curr.PreviousHash != prev.Hash {
		return false
	}
	hash, err := BlockHash(curr)
	if err != nil {
		return false
	}
	return hash == curr.Hash
}

// ValidGenesis reports whether b is a well-formed genesis block.
func ValidGenesis(b *types.Block) bool {
	if !b.IsGenesis() || len(b.Transactions) > 0 {
		return false
	}
	hash, err := BlockHash(b)
	if err != nil {
		return false
	}
	return hash == b.Hash
}

// Verifier re-checks the integrity of a stored chain. Verification is read
// only and can run at any time, any number of times.
type Verifier struct {
	store *Store
	keys  *ethereum.SignKeys
}

// NewVerifier returns a Verifier for the given store.
func NewVerifier(store *Store) *Verifier {
	return &Verifier{store: store}
}

// SetAuthKeys enables the authorized-sender check: every transaction
// signature must recover to one of the given authorized addresses.
func (v *Verifier) SetAuthKeys(keys *ethereum.SignKeys) { v.keys = keys }

// Verify walks the chain in timestamp order and checks the genesis block,
// every hash link and, when auth keys are configured, every transaction
// signature. An empty chain is not valid. A false return means the stored
// data is inconsistent; an error return means the store could not be read.
func (v *Verifier) Verify() (bool, error) {
	blocks, err := v.store.Blocks()
	if err != nil {
		return false, err
	}
	if len(blocks) == 0 {
		return false, nil
	}
	SortByTime(blocks)

	if !ValidGenesis(&blocks[0]) {
		log.Warnw("chain verification failed", "reason", "invalid genesis block", "id", blocks[0].ID)
		return false, nil
	}
	for i := 1; i < len(blocks); i++ {
		if !ValidPair(&blocks[i-1], &blocks[i]) {
			log.Warnw("chain verification failed", "reason", "broken link or hash mismatch",
				"id", blocks[i].ID, "previousHash", blocks[i].PreviousHash)
			return false, nil
		}
	}
	if v.keys != nil {
		for i := range blocks {
			for j := range blocks[i].Transactions {
				tx := &blocks[i].Transactions[j]
				ok, err := VerifySignature(v.keys, tx)
				if err != nil || !ok {
					log.Warnw("chain verification failed", "reason", "invalid transaction signature",
						"transaction", tx.ID, "block", blocks[i].ID)
					return false, nil
				}
			}
		}
	}
	return true, nil
}

// VerifySignature checks a transaction's dataSignature over its canonical
// {action,data} payload against the authorized keys.
func VerifySignature(keys *ethereum.SignKeys, tx *types.VehicleTransaction) (bool, error) {
	if tx.DataSignature.SignAlgorithm != types.SignAlgorithmSecp256k1 {
		return false, nil
	}
	payload, err := SignaturePayload(tx)
	if err != nil {
		return false, err
	}
	ok, _, err := keys.VerifySender(payload, tx.DataSignature.Signature)
	if err != nil {
		return false, err
	}
	return ok, nil
}
