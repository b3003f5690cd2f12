package types

import (
	"encoding/json"
	"fmt"
	"time"
)

// TransactionAction discriminates the payload shape of a vehicle transaction.
type TransactionAction string

const (
	ActionCreate TransactionAction = "create"
	ActionUpdate TransactionAction = "update"
	ActionDelete TransactionAction = "delete"
)

// TransactionStatus is the lifecycle state of a transaction as seen by the
// completion queue consumers.
type TransactionStatus string

const (
	StatusPending  TransactionStatus = "pending"
	StatusFinished TransactionStatus = "finished"
	StatusError    TransactionStatus = "error"
)

// SignAlgorithmSecp256k1 is the only signature algorithm currently accepted
// on transaction payloads.
const SignAlgorithmSecp256k1 = "secp256k1"

// Signature is the detached signature over a transaction's {action,data}
// payload, produced by the transaction service before enqueueing.
type Signature struct {
	Signature     string `json:"signature"`
	SignAlgorithm string `json:"signAlgorithm"`
}

// UpdateData addresses an existing vehicle by VIN and carries the changed
// sections.
type UpdateData struct {
	VIN     string         `json:"vin"`
	Changes VehicleChanges `json:"changes"`
}

// DeleteData addresses the vehicle to remove.
type DeleteData struct {
	VIN string `json:"vin"`
}

// TransactionData is a tagged union: exactly one variant is non-nil,
// matching the transaction action.
type TransactionData struct {
	Create *Vehicle
	Update *UpdateData
	Delete *DeleteData
}

// VehicleTransaction is an externally produced, signed and immutable input to
// the ledger. Its JSON rendering uses the fixed field order of the block hash
// preimage (id, timestamp, dataSignature, action, data, withAnomaly, userId,
// status), so marshaling a transaction is canonical by construction.
type VehicleTransaction struct {
	ID            string
	Timestamp     time.Time
	UserID        string
	Action        TransactionAction
	Data          TransactionData
	DataSignature Signature
	WithAnomaly   bool
	Status        TransactionStatus
}

type txEnvelope struct {
	ID            string            `json:"id"`
	Timestamp     string            `json:"timestamp"`
	DataSignature Signature         `json:"dataSignature"`
	Action        TransactionAction `json:"action"`
	Data          json.RawMessage   `json:"data"`
	WithAnomaly   bool              `json:"withAnomaly"`
	UserID        string            `json:"userId"`
	Status        TransactionStatus `json:"status"`
}

// DataJSON returns the action-shaped payload as canonical JSON.
func (tx *VehicleTransaction) DataJSON() ([]byte, error) {
	switch tx.Action {
	case ActionCreate:
		if tx.Data.Create == nil {
			return nil, fmt.Errorf("create transaction %s carries no vehicle payload", tx.ID)
		}
		return json.Marshal(tx.Data.Create)
	case ActionUpdate:
		if tx.Data.Update == nil {
			return nil, fmt.Errorf("update transaction %s carries no changes payload", tx.ID)
		}
		return json.Marshal(tx.Data.Update)
	case ActionDelete:
		if tx.Data.Delete == nil {
			return nil, fmt.Errorf("delete transaction %s carries no vin payload", tx.ID)
		}
		return json.Marshal(tx.Data.Delete)
	}
	return nil, fmt.Errorf("unknown transaction action %q", tx.Action)
}

func (tx VehicleTransaction) MarshalJSON() ([]byte, error) {
	data, err := tx.DataJSON()
	if err != nil {
		return nil, err
	}
	return json.Marshal(txEnvelope{
		ID:            tx.ID,
		Timestamp:     tx.Timestamp.UTC().Format(ISOTimeLayout),
		DataSignature: tx.DataSignature,
		Action:        tx.Action,
		Data:          data,
		WithAnomaly:   tx.WithAnomaly,
		UserID:        tx.UserID,
		Status:        tx.Status,
	})
}

func (tx *VehicleTransaction) UnmarshalJSON(b []byte) error {
	var env txEnvelope
	if err := json.Unmarshal(b, &env); err != nil {
		return err
	}
	ts, err := time.Parse(time.RFC3339, env.Timestamp)
	if err != nil {
		return fmt.Errorf("transaction %s has invalid timestamp %q: %w", env.ID, env.Timestamp, err)
	}
	tx.ID = env.ID
	tx.Timestamp = ts.UTC()
	tx.UserID = env.UserID
	tx.Action = env.Action
	tx.DataSignature = env.DataSignature
	tx.WithAnomaly = env.WithAnomaly
	tx.Status = env.Status
	tx.Data = TransactionData{}
	switch env.Action {
	case ActionCreate:
		v := &Vehicle{}
		if err := json.Unmarshal(env.Data, v); err != nil {
			return fmt.Errorf("transaction %s: %w", env.ID, err)
		}
		tx.Data.Create = v
	case ActionUpdate:
		u := &UpdateData{}
		if err := json.Unmarshal(env.Data, u); err != nil {
			return fmt.Errorf("transaction %s: %w", env.ID, err)
		}
		tx.Data.Update = u
	case ActionDelete:
		d := &DeleteData{}
		if err := json.Unmarshal(env.Data, d); err != nil {
			return fmt.Errorf("transaction %s: %w", env.ID, err)
		}
		tx.Data.Delete = d
	default:
		return fmt.Errorf("transaction %s has unknown action %q", env.ID, env.Action)
	}
	return nil
}

// VIN returns the vehicle identification number addressed by the transaction,
// whatever the action.
func (tx *VehicleTransaction) VIN() string {
	switch {
	case tx.Data.Create != nil:
		return tx.Data.Create.VIN
	case tx.Data.Update != nil:
		return tx.Data.Update.VIN
	case tx.Data.Delete != nil:
		return tx.Data.Delete.VIN
	}
	return ""
}

// TransactionCompleted is the completion notification emitted once a
// transaction has been durably classified.
type TransactionCompleted struct {
	TransactionID string            `json:"transactionId"`
	NewStatus     TransactionStatus `json:"newStatus"`
	CompletedAt   time.Time         `json:"completedAt"`
}

// QueuedTransaction is the raw entry shape carried by the inbound queue:
// just a reference, the full transaction is resolved against the
// transaction source.
type QueuedTransaction struct {
	TransactionID string `json:"transactionId"`
}
