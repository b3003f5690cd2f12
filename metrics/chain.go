package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Ledger collectors
var (
	// BlocksBuilt ...
	BlocksBuilt = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "wchain",
		Name:      "blocks_built",
		Help:      "Number of blocks appended to the ledger",
	})
	// TransactionsAccepted ...
	TransactionsAccepted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "wchain",
		Name:      "transactions_accepted",
		Help:      "Number of transactions included in blocks",
	})
	// TransactionsRejected ...
	TransactionsRejected = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "wchain",
		Name:      "transactions_rejected",
		Help:      "Number of transactions rejected by the intake pipeline",
	})
	// ProjectionRebuilds ...
	ProjectionRebuilds = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "wchain",
		Name:      "projection_rebuilds",
		Help:      "Number of full projection rebuilds",
	})
)

// RegisterChainCollectors registers the ledger collectors on the default
// prometheus registry.
func RegisterChainCollectors() {
	Register(BlocksBuilt)
	Register(TransactionsAccepted)
	Register(TransactionsRejected)
	Register(ProjectionRebuilds)
}
