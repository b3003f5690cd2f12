// Package config holds the configuration structs of the wchain node and the
// helpers to fill them from flags, environment and the config file.
package config

import (
	"fmt"

	"go.wheelz.io/wchain/db"
	"go.wheelz.io/wchain/queue/redisqueue"
)

// Queue backend types.
const (
	QueueTypeMem   = "mem"
	QueueTypeRedis = "redis"
)

// Config is the global configuration of a wchain node.
type Config struct {
	// DataDir is the directory where the chain and state databases live
	DataDir string
	// DBType is the key-value database backend used for the chain store
	DBType string
	// LogLevel is one of debug, info, warn, error, fatal
	LogLevel string
	// LogOutput is stdout, stderr or a file path
	LogOutput string
	// LogErrorFile logs warnings and errors to a separate file
	LogErrorFile string
	// SaveConfig overwrites the config file with the current CLI flags
	SaveConfig bool
	// PprofPort exposes the pprof http endpoints when non-zero
	PprofPort int

	API     APICfg
	Queue   QueueCfg
	Source  SourceCfg
	Worker  WorkerCfg
	Chain   ChainCfg
	Metrics MetricsCfg
}

// APICfg configures the REST API of the node.
type APICfg struct {
	Enabled    bool
	Route      string
	ListenHost string
	ListenPort int
	AdminToken string
	Ssl        struct {
		Domain  string
		DirCert string
	}
}

// QueueCfg configures the transaction intake queue.
type QueueCfg struct {
	// Type is mem or redis
	Type         string
	RedisURL     string
	InboundKey   string
	CompletedKey string
}

// SourceCfg configures the remote transaction source resolved by reference.
type SourceCfg struct {
	URL   string
	Token string
}

// WorkerCfg configures the block building worker.
type WorkerCfg struct {
	// IntervalSeconds is the pause between intake batches
	IntervalSeconds int
	BatchSize       int
}

// ChainCfg configures the ledger itself.
type ChainCfg struct {
	// SigningKey is the hex encoded private key of this writer node
	SigningKey string
	// AuthorizedAddrs is a comma-delimited list of addresses allowed to
	// sign transactions. Empty disables signature enforcement.
	AuthorizedAddrs string
	// CreateGenesis builds the genesis block when the chain store is empty
	CreateGenesis bool
}

// MetricsCfg configures the prometheus endpoint.
type MetricsCfg struct {
	Enabled         bool
	RefreshInterval int
}

// NewConfig returns a Config with the default values set.
func NewConfig() *Config {
	cfg := &Config{
		DBType:    db.TypePebble,
		LogLevel:  "info",
		LogOutput: "stdout",
	}
	cfg.API.Enabled = true
	cfg.API.Route = "/v1"
	cfg.API.ListenHost = "0.0.0.0"
	cfg.API.ListenPort = 9090
	cfg.Queue.Type = QueueTypeMem
	cfg.Queue.InboundKey = redisqueue.DefaultInboundKey
	cfg.Queue.CompletedKey = redisqueue.DefaultCompletedKey
	cfg.Worker.IntervalSeconds = 5
	cfg.Worker.BatchSize = 10
	cfg.Chain.CreateGenesis = true
	cfg.Metrics.RefreshInterval = 5
	return cfg
}

// ValidDBType reports whether the configured database backend exists.
func (c *Config) ValidDBType() bool {
	switch c.DBType {
	case db.TypePebble, db.TypeMongo:
		return true
	}
	return false
}

// ValidQueueType reports whether the configured queue backend exists.
func (c *Config) ValidQueueType() bool {
	switch c.Queue.Type {
	case QueueTypeMem, QueueTypeRedis:
		return true
	}
	return false
}

// Error helps to handle better config errors on startup
type Error struct {
	// Critical indicates if the error encountered is critical and the app must be stopped
	Critical bool
	// Message error message
	Message string
}

func (e Error) Error() string {
	return fmt.Sprintf("critical: %v, message: %s", e.Critical, e.Message)
}
