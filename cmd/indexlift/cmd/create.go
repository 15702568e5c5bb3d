package cmd

import (
	"github.com/spf13/cobra"
)

var createCmd = &cobra.Command{
	Use:   "create <alias>",
	Short: "Provision an aliased index",
	Long: `Create a concrete index and bind the given alias to it. The alias
is what applications address; rebuilds later replace the concrete
index behind it without the applications noticing.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		manager, _, _, err := newManager(cmd.Context())
		if err != nil {
			return err
		}

		indexName, err := manager.CreateIndex(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		printer.Success("created index %s behind alias %s", indexName, args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(createCmd)
}
