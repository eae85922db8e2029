package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/cofure/cofure"
	"github.com/cofure/cofure/pkg/config"
	"github.com/cofure/cofure/pkg/exchange/binance"
	"github.com/cofure/cofure/pkg/report"
)

// Command line flags
var (
	configFile string

	// Preview command flags
	previewSize int
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "cofure",
		Short:   "Daily crypto market digest bot",
		Version: "1.0.0",
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Config file path (e.g. ./cofure.yml)")

	rootCmd.AddCommand(buildRunCmd())
	rootCmd.AddCommand(buildPreviewCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the bot: scheduler, transport and HTTP gateway",
		RunE:  runBot,
	}
}

func buildPreviewCmd() *cobra.Command {
	previewCmd := &cobra.Command{
		Use:   "preview",
		Short: "Fetch a market snapshot and print it as a table",
		RunE:  runPreview,
	}

	previewCmd.Flags().IntVarP(&previewSize, "size", "n", 5, "Number of instruments to show")

	return previewCmd
}

func runBot(cmd *cobra.Command, _ []string) error {
	settings, err := config.Load(configFile)
	if err != nil {
		return err
	}

	bot, err := cofure.New(settings)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return bot.Run(ctx)
}

func runPreview(cmd *cobra.Command, _ []string) error {
	settings, err := config.Load(configFile)
	if err != nil {
		return err
	}

	market, err := binance.NewFutures(cofure.DefaultLog,
		binance.WithCredentials(settings.Binance.APIKey, settings.Binance.APISecret),
		binance.WithSelectionPolicy(settings.Report.Policy),
	)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	snapshot, err := market.Snapshot(ctx, previewSize)
	if err != nil {
		return err
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"#", "Symbol", "Change %", "Funding %", "Volume (USDT)", "Trend"})

	for i, stat := range snapshot {
		table.Append([]string{
			strconv.Itoa(i + 1),
			stat.Symbol,
			fmt.Sprintf("%+.2f", stat.PercentChange),
			fmt.Sprintf("%.3f", stat.FundingRate),
			report.FormatVolume(stat.QuoteVolume),
			report.TrendLabel(stat.Trend),
		})
	}

	table.Render()

	return nil
}
