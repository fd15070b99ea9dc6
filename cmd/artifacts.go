package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var artifactsCmd = &cobra.Command{
	Use:   "artifacts <ticker>",
	Short: "List the persisted artifacts for a ticker",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		ticker := strings.ToUpper(args[0])

		gw, err := initGateway(ctx)
		if err != nil {
			return err
		}
		defer gw.Close()

		entries, err := gw.List(ctx, ticker+"/")
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "no artifacts stored for %s\n", ticker)
			return nil
		}

		for _, e := range entries {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", e.LastModified.UTC().Format("2006-01-02 15:04:05"), e.Key)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(artifactsCmd)
}
