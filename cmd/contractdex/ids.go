package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	identityuc "github.com/kailas-cloud/contractdex/internal/usecase/identity"
)

// Flags for ids
var (
	idsForce    bool
	idsPageSize int
	idsSample   int
)

var idsCmd = &cobra.Command{
	Use:   "ids",
	Short: "Manage content-addressed record ids",
}

var idsAssignCmd = &cobra.Command{
	Use:   "assign",
	Short: "Compute and store ids for records that lack one",
	RunE:  runIDsAssign,
}

var idsVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Recompute ids for a sample of records and compare with the stored ones",
	RunE:  runIDsVerify,
}

func init() {
	idsAssignCmd.Flags().BoolVar(&idsForce, "force", false, "Recompute ids that are already set")
	idsAssignCmd.Flags().IntVar(&idsPageSize, "page-size", 0, "Records per page")
	idsVerifyCmd.Flags().IntVar(&idsSample, "sample", 100, "Records to check (0 = all)")

	idsCmd.AddCommand(idsAssignCmd, idsVerifyCmd)
	rootCmd.AddCommand(idsCmd)
}

func runIDsAssign(cmd *cobra.Command, _ []string) error {
	s, err := bootstrap(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	rep, err := s.app.Identity.Assign(s.ctx, identityuc.AssignOptions{Force: idsForce, PageSize: idsPageSize})
	if err != nil {
		return fmt.Errorf("assign ids: %w", err)
	}
	return printJSON(cmd.OutOrStdout(), rep)
}

func runIDsVerify(cmd *cobra.Command, _ []string) error {
	s, err := bootstrap(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	rep, err := s.app.Identity.Verify(s.ctx, idsSample)
	if err != nil {
		return fmt.Errorf("verify ids: %w", err)
	}
	if err := printJSON(cmd.OutOrStdout(), rep); err != nil {
		return err
	}
	if !rep.OK() {
		return errors.New("stored ids do not match their facts")
	}
	return nil
}
