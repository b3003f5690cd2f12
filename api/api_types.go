package api

// ChainInfo summarizes the current state of the ledger.
type ChainInfo struct {
	BlockCount      int    `json:"blockCount"`
	LatestHash      string `json:"latestHash,omitempty"`
	LatestTimestamp string `json:"latestTimestamp,omitempty"`
}

// VerifyResponse is the result of a full chain verification.
type VerifyResponse struct {
	Valid bool `json:"valid"`
}

// RebuildResponse reports a completed projection rebuild.
type RebuildResponse struct {
	AppliedTransactions int `json:"appliedTransactions"`
}

// HealthResponse reports the availability of every storage and broker the
// node depends on.
type HealthResponse struct {
	Status     string `json:"status"`
	ChainStore bool   `json:"chainStore"`
	StateStore bool   `json:"stateStore"`
	Queue      bool   `json:"queue"`
}
