package cmd

import (
	"github.com/spf13/cobra"
)

var existsCmd = &cobra.Command{
	Use:   "exists <alias>",
	Short: "Check whether an aliased index exists",
	Long: `Probe the cluster for the alias. Probe failures report the index
as absent so scripts never act on an unreachable index.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		manager, _, _, err := newManager(cmd.Context())
		if err != nil {
			return err
		}

		if manager.ExistsIndex(cmd.Context(), args[0]) {
			printer.Info("true")
		} else {
			printer.Info("false")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(existsCmd)
}
