// Package commands implements the wchaincli subcommands. They operate
// directly on a node's data directory, so the node should be stopped before
// running the write commands.
package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"go.wheelz.io/wchain/chain"
	"go.wheelz.io/wchain/chain/indexer"
	"go.wheelz.io/wchain/db"
	"go.wheelz.io/wchain/db/metadb"
	"go.wheelz.io/wchain/log"
)

var dataDir string
var dbType string
var debug bool

// when running wchaincli in a test harness which has its own logger setup,
// SetupLogPackage should be false so that the CLI won't override the test
// harness's logger settings
var SetupLogPackage bool
var Stdout io.Writer
var Stderr io.Writer

func init() {
	Stdout = os.Stdout
	Stderr = os.Stderr
	RootCmd.CompletionOptions.DisableDefaultCmd = true
	SetupLogPackage = true
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	RootCmd.PersistentFlags().StringVarP(&dataDir, "dataDir", "d", home+"/.wchain",
		"directory where the node data is stored")
	RootCmd.PersistentFlags().StringVarP(&dbType, "dbType", "t", db.TypePebble,
		fmt.Sprintf("chain store backend (%s, %s)", db.TypePebble, db.TypeMongo))
	RootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "prints additional information")
	RootCmd.AddCommand(genesisCmd)
	RootCmd.AddCommand(infoCmd)
	RootCmd.AddCommand(verifyCmd)
	RootCmd.AddCommand(statsCmd)
	RootCmd.AddCommand(resetCmd)
	RootCmd.AddCommand(refreshStateCmd)
	RootCmd.AddCommand(processCmd)
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var RootCmd = &cobra.Command{
	Use:   "wchaincli",
	Short: "wchaincli inspects and maintains a wchain node data directory",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if SetupLogPackage {
			if debug {
				log.Init("debug", "stdout")
			} else {
				log.Init("error", "stdout")
			}
		}
	},
}

// openChainStore opens the chain database of the data directory. The caller
// must invoke the returned close function.
func openChainStore() (*chain.Store, func(), error) {
	mdb, err := metadb.New(dbType, filepath.Join(dataDir, "chaindb"))
	if err != nil {
		return nil, nil, fmt.Errorf("cannot open chain store: %w", err)
	}
	return chain.NewStore(mdb), func() { mdb.Close() }, nil
}

// openIndexer opens the chain store together with the vehicle state
// projection.
func openIndexer() (*indexer.Indexer, func(), error) {
	chainStore, closeChain, err := openChainStore()
	if err != nil {
		return nil, nil, err
	}
	stateStore, err := indexer.NewSQLStore(filepath.Join(dataDir, "state.sqlite"))
	if err != nil {
		closeChain()
		return nil, nil, fmt.Errorf("cannot open state store: %w", err)
	}
	idx := indexer.New(chainStore, stateStore)
	return idx, func() {
		stateStore.Close()
		closeChain()
	}, nil
}
