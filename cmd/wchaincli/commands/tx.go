package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"go.wheelz.io/wchain/chain"
	"go.wheelz.io/wchain/chain/intake"
	"go.wheelz.io/wchain/types"
)

var processSize int

func init() {
	processCmd.Flags().IntVar(&processSize, "size", intake.DefaultBatchSize,
		"maximum transactions bundled into one block")
}

var processCmd = &cobra.Command{
	Use:   "process <transaction JSON files>",
	Short: "Append the transactions from the given JSON files to the chain",
	Long: `Append the transactions from the given JSON files to the chain.
Each file holds either a single transaction object or an array of them.
Transactions are bundled into blocks of at most --size, in argument order.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var txs []types.VehicleTransaction
		for _, path := range args {
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			var batch []types.VehicleTransaction
			if err := json.Unmarshal(data, &batch); err != nil {
				var single types.VehicleTransaction
				if err := json.Unmarshal(data, &single); err != nil {
					return fmt.Errorf("cannot parse %s: %w", path, err)
				}
				batch = []types.VehicleTransaction{single}
			}
			txs = append(txs, batch...)
		}
		if processSize < 1 {
			return fmt.Errorf("size must be at least 1")
		}

		store, closeStore, err := openChainStore()
		if err != nil {
			return err
		}
		defer closeStore()
		builder := chain.NewBuilder(store)
		blocks := 0
		for len(txs) > 0 {
			n := processSize
			if n > len(txs) {
				n = len(txs)
			}
			block, err := builder.CreateBlock(txs[:n])
			if err != nil {
				return err
			}
			fmt.Fprintf(Stdout, "block %s with %d transactions\n", block.Hash, n)
			txs = txs[n:]
			blocks++
		}
		fmt.Fprintf(Stdout, "appended %d blocks\n", blocks)
		return nil
	},
}
