package cmd

import (
	"strings"

	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show cluster metadata",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, _, client, err := newManager(cmd.Context())
		if err != nil {
			return err
		}

		info, err := client.ClusterInfo(cmd.Context())
		if err != nil {
			return err
		}

		printer.Title("cluster %s", info.Name)
		if len(info.Indexes) == 0 {
			printer.Muted("no indexes")
			return nil
		}

		for _, idx := range info.Indexes {
			if len(idx.Aliases) > 0 {
				printer.Info("%s  docs=%d  aliases=%s",
					idx.Name, idx.Docs, strings.Join(idx.Aliases, ","))
			} else {
				printer.Info("%s  docs=%d", idx.Name, idx.Docs)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
