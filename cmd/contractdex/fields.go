package main

import (
	"fmt"

	"github.com/spf13/cobra"

	domdep "github.com/kailas-cloud/contractdex/internal/domain/deployment"
	cataloguc "github.com/kailas-cloud/contractdex/internal/usecase/catalog"
)

// Flags for fields delete
var (
	fieldsNames  string
	fieldsIDs    []string
	fieldsRefs   []string
	fieldsAll    bool
	fieldsDryRun bool
)

var fieldsCmd = &cobra.Command{
	Use:   "fields",
	Short: "Inspect and remove derived record fields",
}

var fieldsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List fields that can be deleted",
	RunE: func(cmd *cobra.Command, _ []string) error {
		for _, f := range domdep.DeletableFields {
			fmt.Fprintln(cmd.OutOrStdout(), f)
		}
		return nil
	},
}

var fieldsDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Remove enrichment fields, embeddings or ids from records",
	Long: `Remove derived fields from records selected by --id, --ref or --all.
Records become eligible for the matching enrichment pass again.`,
	Example: `  contractdex fields delete --fields embeddings --all --dry-run
  contractdex fields delete --fields description,standards --id 0x12ab...`,
	RunE: runFieldsDelete,
}

func init() {
	fieldsDeleteCmd.Flags().StringVar(&fieldsNames, "fields", "", "Comma separated fields to delete (see 'fields list')")
	fieldsDeleteCmd.Flags().StringSliceVar(&fieldsIDs, "id", nil, "Record id (repeatable)")
	fieldsDeleteCmd.Flags().StringSliceVar(&fieldsRefs, "ref", nil, "Store reference (repeatable)")
	fieldsDeleteCmd.Flags().BoolVar(&fieldsAll, "all", false, "Apply to every record")
	fieldsDeleteCmd.Flags().BoolVar(&fieldsDryRun, "dry-run", false, "Resolve targets without writing")
	_ = fieldsDeleteCmd.MarkFlagRequired("fields")
	fieldsDeleteCmd.MarkFlagsMutuallyExclusive("id", "ref", "all")
	fieldsDeleteCmd.MarkFlagsOneRequired("id", "ref", "all")

	fieldsCmd.AddCommand(fieldsListCmd, fieldsDeleteCmd)
	rootCmd.AddCommand(fieldsCmd)
}

func runFieldsDelete(cmd *cobra.Command, _ []string) error {
	fields, err := domdep.ParseDeletableFields(fieldsNames)
	if err != nil {
		return err
	}

	s, err := bootstrap(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	rep, err := s.app.Catalog.DeleteFields(s.ctx, cataloguc.DeleteRequest{
		Fields: fields,
		IDs:    fieldsIDs,
		Refs:   fieldsRefs,
		All:    fieldsAll,
		DryRun: fieldsDryRun,
	})
	if err != nil {
		return fmt.Errorf("delete fields: %w", err)
	}
	return printJSON(cmd.OutOrStdout(), rep)
}
