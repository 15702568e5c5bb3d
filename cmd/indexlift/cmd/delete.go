package cmd

import (
	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:   "delete <alias>",
	Short: "Delete an aliased index",
	Long: `Resolve the alias to its concrete index and remove the index
together with the alias binding.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		manager, _, _, err := newManager(cmd.Context())
		if err != nil {
			return err
		}

		if err := manager.DeleteIndex(cmd.Context(), args[0]); err != nil {
			return err
		}

		printer.Success("deleted index behind alias %s", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}
