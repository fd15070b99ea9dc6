package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/captable-cli/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "captable-cli",
	Short: "Capitalization table extraction from SEC filings",
	Long:  "Fetches the latest 10-K/10-Q for a ticker, extracts the capital structure via Claude, derives leverage and capitalization ratios, and persists JSON/CSV/XLSX artifacts.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
