package commands

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"go.wheelz.io/wchain/chain"
	"go.wheelz.io/wchain/types"
)

var genesisCmd = &cobra.Command{
	Use:   "genesis",
	Short: "Create the genesis block on an empty chain store",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeStore, err := openChainStore()
		if err != nil {
			return err
		}
		defer closeStore()
		genesis, err := chain.NewBuilder(store).CreateGenesis()
		if errors.Is(err, chain.ErrAlreadyInitialized) {
			return fmt.Errorf("chain is already initialized, run reset first")
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(Stdout, "genesis block created: %s\n", genesis.Hash)
		return nil
	},
}

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Print the block count and the latest block of the chain",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeStore, err := openChainStore()
		if err != nil {
			return err
		}
		defer closeStore()
		count, err := store.Count()
		if err != nil {
			return err
		}
		fmt.Fprintf(Stdout, "blocks: %d\n", count)
		latest, err := store.LatestBlock()
		if errors.Is(err, chain.ErrNotInitialized) {
			fmt.Fprintln(Stdout, "chain is not initialized")
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(Stdout, "latest hash: %s\n", latest.Hash)
		fmt.Fprintf(Stdout, "latest timestamp: %s\n", latest.Timestamp.UTC().Format(types.ISOTimeLayout))
		return nil
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check the hash links of the whole stored chain",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeStore, err := openChainStore()
		if err != nil {
			return err
		}
		defer closeStore()
		valid, err := chain.NewVerifier(store).Verify()
		if err != nil {
			return err
		}
		if !valid {
			return fmt.Errorf("chain verification FAILED")
		}
		fmt.Fprintln(Stdout, "chain is valid")
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print the day-bucketed transaction and vehicle activity series",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeStore, err := openChainStore()
		if err != nil {
			return err
		}
		defer closeStore()
		blocks, err := store.Blocks()
		if err != nil {
			return err
		}
		stats := chain.ComputeStats(blocks)
		data, err := json.MarshalIndent(stats, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(Stdout, string(data))
		return nil
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete every block of the chain store",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeStore, err := openChainStore()
		if err != nil {
			return err
		}
		defer closeStore()
		count, err := store.Count()
		if err != nil {
			return err
		}
		if err := store.DeleteBlocks(); err != nil {
			return err
		}
		fmt.Fprintf(Stdout, "deleted %d blocks\n", count)
		return nil
	},
}
