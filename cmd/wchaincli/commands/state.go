package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"go.wheelz.io/wchain/chain"
)

var refreshStateCmd = &cobra.Command{
	Use:   "refresh-state",
	Short: "Verify the chain and rebuild the vehicle state projection from scratch",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		idx, closeIdx, err := openIndexer()
		if err != nil {
			return err
		}
		defer closeIdx()
		applied, err := idx.Rebuild(context.Background())
		if errors.Is(err, chain.ErrIntegrity) {
			return fmt.Errorf("chain verification FAILED, state untouched")
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(Stdout, "state rebuilt from %d transactions\n", applied)
		return nil
	},
}
