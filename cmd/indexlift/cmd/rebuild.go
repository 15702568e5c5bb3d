package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/nabeel-codes/indexlift/internal/reindex"
	"github.com/nabeel-codes/indexlift/internal/source"
)

var (
	rebuildSourcePath string
	rebuildThreshold  int
	rebuildPageSize   int
)

var rebuildCmd = &cobra.Command{
	Use:   "rebuild <alias>",
	Short: "Rebuild an aliased index from its persistence source",
	Long: `Stream every record of the alias's collection into a fresh index,
then atomically swap the alias and delete the superseded index.
Readers keep hitting the old index until the swap, so the rebuild
causes no read outage.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		aliasName := args[0]

		_, resolver, client, err := newManager(cmd.Context())
		if err != nil {
			return err
		}

		srcPath := rebuildSourcePath
		if srcPath == "" {
			srcPath = cfg.Source.Path
		}
		store, err := source.OpenSQLite(srcPath)
		if err != nil {
			return err
		}
		defer store.Close()

		opts := reindex.Options{
			FlushThreshold: cfg.Reindex.FlushThreshold,
			PageSize:       cfg.Source.PageSize,
			LockDir:        cfg.Reindex.LockDir,
		}
		if rebuildThreshold > 0 {
			opts.FlushThreshold = rebuildThreshold
		}
		if rebuildPageSize > 0 {
			opts.PageSize = rebuildPageSize
		}

		reindexer := reindex.NewReindexer(client, resolver, store, logger, opts)

		outcome, err := reindexer.Rebuild(cmd.Context(), aliasName)
		if err != nil {
			if outcome != nil && outcome.Cancelled {
				printer.Warn("rebuild of %s cancelled after %d records, alias unchanged",
					aliasName, outcome.Records)
			}
			return err
		}

		if outcome.Records == 0 {
			printer.Muted("no records to index, alias %s unchanged", aliasName)
			return nil
		}

		printer.Success("rebuilt %s: %d records in %d bulk calls (%s -> %s, %s)",
			aliasName, outcome.Records, outcome.BulkCalls,
			outcome.OldIndex, outcome.NewIndex, outcome.Elapsed.Round(time.Millisecond))
		return nil
	},
}

func init() {
	rebuildCmd.Flags().StringVar(&rebuildSourcePath, "source", "",
		"SQLite source database (default from config)")
	rebuildCmd.Flags().IntVar(&rebuildThreshold, "threshold", 0,
		"bulk flush threshold (default from config)")
	rebuildCmd.Flags().IntVar(&rebuildPageSize, "page-size", 0,
		"source page size (default from config)")

	rootCmd.AddCommand(rebuildCmd)
}
