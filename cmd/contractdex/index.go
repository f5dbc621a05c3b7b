package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Manage the record search index",
}

var indexEnsureCmd = &cobra.Command{
	Use:   "ensure",
	Short: "Create the record index unless it exists",
	Long: `Create the record index unless it exists.

With --recreate the index is dropped first and rebuilt with the configured
vector dimension. Records are kept and reindexed by the store.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		s, err := bootstrap(cmd)
		if err != nil {
			return err
		}
		defer s.close()

		if recreate, _ := cmd.Flags().GetBool("recreate"); recreate {
			if err := s.app.RecreateIndex(s.ctx); err != nil {
				return fmt.Errorf("recreate index: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "index recreated")
			return nil
		}

		created, err := s.app.EnsureIndex(s.ctx)
		if err != nil {
			return fmt.Errorf("ensure index: %w", err)
		}
		if created {
			fmt.Fprintln(cmd.OutOrStdout(), "index created")
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), "index exists")
		}
		return nil
	},
}

func init() {
	indexEnsureCmd.Flags().Bool("recreate", false, "drop and rebuild the index, e.g. after a dimension change")
	indexCmd.AddCommand(indexEnsureCmd)
	rootCmd.AddCommand(indexCmd)
}
