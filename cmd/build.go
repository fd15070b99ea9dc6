package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/captable-cli/internal/model"
)

var buildForceRefresh bool

var buildCmd = &cobra.Command{
	Use:   "build <ticker>",
	Short: "Build the capitalization table for a ticker",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		ticker := args[0]

		e, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		result, err := e.Builder.Build(ctx, ticker, buildForceRefresh)
		if err != nil {
			zap.L().Error("build failed", zap.String("ticker", ticker), zap.Error(err))
			return err
		}

		printResult(cmd, result)
		return nil
	},
}

func printResult(cmd *cobra.Command, result *model.BuildResult) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "ticker: %s\n", result.Ticker)
	fmt.Fprintf(out, "status: %s\n", result.Status)
	fmt.Fprintf(out, "cached: %t\n", result.Cached)
	if result.Warning != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", result.Warning)
	}
	for _, loc := range result.ArtifactLocations {
		fmt.Fprintf(out, "artifact: %s\n", loc)
	}
	if result.Status == model.StatusWarning && result.RawOutput != "" {
		fmt.Fprintln(out, "raw model output follows:")
		fmt.Fprintln(out, result.RawOutput)
	}
}

func init() {
	buildCmd.Flags().BoolVar(&buildForceRefresh, "force-refresh", false, "ignore cached filings and results, re-fetch everything")
	rootCmd.AddCommand(buildCmd)
}
