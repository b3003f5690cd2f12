package chain

import (
	"encoding/json"
	"fmt"
	"time"

	"go.wheelz.io/wchain/crypto/hashing"
	"go.wheelz.io/wchain/types"
)

// hashPreimage is the canonical serialization a block hash commits to. The
// field order and the ISO millisecond timestamps are a wire contract shared
// with the transaction service; changing them invalidates every stored chain.
type hashPreimage struct {
	PreviousHash string                     `json:"previousHash"`
	Timestamp    string                     `json:"timestamp"`
	Transactions []types.VehicleTransaction `json:"transactions"`
}

// BlockPreimage returns the canonical bytes hashed to produce a block hash.
func BlockPreimage(previousHash string, timestamp time.Time, txs []types.VehicleTransaction) ([]byte, error) {
	if txs == nil {
		txs = []types.VehicleTransaction{}
	}
	return json.Marshal(hashPreimage{
		PreviousHash: previousHash,
		Timestamp:    timestamp.UTC().Format(types.ISOTimeLayout),
		Transactions: txs,
	})
}

// GenesisPreimage returns the bytes hashed to produce the genesis block hash.
// The genesis block commits to its creation time only.
func GenesisPreimage(timestamp time.Time) []byte {
	return []byte(fmt.Sprintf("Genesis Block - Created at %s", timestamp.UTC().Format(types.ISOTimeLayout)))
}

// BlockHash recomputes the hash a well-formed block should carry.
func BlockHash(b *types.Block) (string, error) {
	if b.IsGenesis() {
		return hashing.Hex(GenesisPreimage(b.Timestamp)), nil
	}
	preimage, err := BlockPreimage(b.PreviousHash, b.Timestamp, b.Transactions)
	if err != nil {
		return "", err
	}
	return hashing.Hex(preimage), nil
}

// signaturePayload mirrors the object signed by the transaction service.
type signaturePayload struct {
	Action types.TransactionAction `json:"action"`
	Data   json.RawMessage         `json:"data"`
}

// SignaturePayload returns the canonical bytes covered by a transaction's
// dataSignature.
func SignaturePayload(tx *types.VehicleTransaction) ([]byte, error) {
	data, err := tx.DataJSON()
	if err != nil {
		return nil, err
	}
	return json.Marshal(signaturePayload{Action: tx.Action, Data: data})
}
