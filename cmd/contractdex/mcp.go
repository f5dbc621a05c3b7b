package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	mcpTransport "github.com/kailas-cloud/contractdex/internal/transport/mcp"
	"github.com/kailas-cloud/contractdex/internal/version"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve search tools over MCP on stdin/stdout",
	Long: `Runs a Model Context Protocol server on stdin/stdout exposing the
search_contracts, vector_search_contracts and get_contract_details tools.
Logs go to stderr. The same server is mounted at /mcp by "serve".`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		s, err := bootstrap(cmd)
		if err != nil {
			return err
		}
		defer s.close()

		srv := mcpTransport.NewServer(s.app.Search, s.app.Catalog, version.Version, s.logger)
		s.logger.Info("Serving MCP on stdio")
		if err := srv.ServeStdio(s.ctx, os.Stdin, os.Stdout); err != nil && s.ctx.Err() == nil {
			return fmt.Errorf("mcp server: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
