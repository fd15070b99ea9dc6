package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/captable-cli/internal/model"
)

var (
	batchTickersFile string
	batchConcurrency int
	batchForce       bool
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Build capitalization tables for a list of tickers",
	Long:  "Reads one ticker per line from --tickers (lines starting with # are skipped) and builds each independently. A failed ticker is logged and does not abort the run.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		tickers, err := readTickers(batchTickersFile)
		if err != nil {
			return err
		}
		if len(tickers) == 0 {
			return eris.Errorf("no tickers found in %s", batchTickersFile)
		}

		e, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		concurrency := batchConcurrency
		if concurrency <= 0 {
			concurrency = cfg.Batch.MaxConcurrentTickers
		}
		if concurrency <= 0 {
			concurrency = 4
		}

		runID := uuid.NewString()
		logger := zap.L().With(zap.String("run_id", runID))
		logger.Info("starting batch run",
			zap.Int("tickers", len(tickers)),
			zap.Int("concurrency", concurrency))

		var ok, warned, failed atomic.Int64

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(concurrency)
		for _, ticker := range tickers {
			g.Go(func() error {
				result, err := e.Builder.Build(gctx, ticker, batchForce)
				if err != nil {
					failed.Add(1)
					logger.Error("ticker build failed",
						zap.String("ticker", ticker), zap.Error(err))
					return nil
				}
				if result.Status == model.StatusWarning {
					warned.Add(1)
				} else {
					ok.Add(1)
				}
				logger.Info("ticker built",
					zap.String("ticker", result.Ticker),
					zap.String("status", string(result.Status)),
					zap.Bool("cached", result.Cached))
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "batch %s done: %d ok, %d warning, %d failed of %d\n",
			runID, ok.Load(), warned.Load(), failed.Load(), len(tickers))
		if failed.Load() == int64(len(tickers)) {
			return eris.New("every ticker in the batch failed")
		}
		return nil
	},
}

// readTickers loads one ticker per line, skipping blanks and comments.
func readTickers(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "open tickers file %s", path)
	}
	defer f.Close()

	var tickers []string
	seen := make(map[string]bool)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ticker := strings.ToUpper(line)
		if seen[ticker] {
			continue
		}
		seen[ticker] = true
		tickers = append(tickers, ticker)
	}
	if err := scanner.Err(); err != nil {
		return nil, eris.Wrapf(err, "read tickers file %s", path)
	}
	return tickers, nil
}

func init() {
	batchCmd.Flags().StringVar(&batchTickersFile, "tickers", "tickers.txt", "file with one ticker per line")
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 0, "max tickers built in parallel (default from config)")
	batchCmd.Flags().BoolVar(&batchForce, "force-refresh", false, "ignore cached filings and results")
	rootCmd.AddCommand(batchCmd)
}
