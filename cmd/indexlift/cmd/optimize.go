package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var optimizeCmd = &cobra.Command{
	Use:   "optimize <alias>",
	Short: "Compact an aliased index",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		manager, _, _, err := newManager(cmd.Context())
		if err != nil {
			return err
		}

		result, err := manager.Optimize(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		if !result.Succeeded() {
			return fmt.Errorf("optimize of %s failed on %d of %d shards",
				args[0], result.FailedShards, result.TotalShards)
		}

		printer.Success("optimized %s (%d shards)", args[0], result.SuccessfulShards)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(optimizeCmd)
}
