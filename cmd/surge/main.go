package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bobmcallan/surge/internal/app"
	"github.com/bobmcallan/surge/internal/common"
	"github.com/bobmcallan/surge/internal/models"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdout).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "surge",
		Short:         "Momentum stock screener",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to surge.toml (default: SURGE_CONFIG or config/surge.toml)")

	// withApp runs fn against a freshly wired App and closes it afterwards
	withApp := func(fn func(ctx context.Context, a *app.App) (interface{}, error)) func(*cobra.Command, []string) error {
		return func(c *cobra.Command, _ []string) error {
			a, err := app.NewApp(configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			v, err := fn(c.Context(), a)
			if err != nil {
				return err
			}
			return writeJSON(out, v)
		}
	}

	var (
		symbols   []string
		criteria  models.Criteria
		chartPath string
	)
	screenCmd := &cobra.Command{
		Use:   "screen",
		Short: "Run one screen and print the ranked matches",
		RunE: withApp(func(ctx context.Context, a *app.App) (interface{}, error) {
			req := models.ScreenRequest{Symbols: symbols}
			if criteria != (models.Criteria{}) {
				req.Criteria = &criteria
			}
			result, err := a.ScreenerService.Screen(ctx, req)
			if err != nil {
				return nil, err
			}
			if chartPath != "" {
				png, err := a.ScreenerService.RenderScoreChart(result)
				if err != nil {
					return nil, fmt.Errorf("render chart: %w", err)
				}
				if err := os.WriteFile(chartPath, png, 0644); err != nil {
					return nil, fmt.Errorf("write chart: %w", err)
				}
			}
			return result, nil
		}),
	}
	screenCmd.Flags().StringSliceVar(&symbols, "symbols", nil, "symbols to screen (default: the configured universe)")
	screenCmd.Flags().Float64Var(&criteria.MaxPrice, "max-price", 0, "only prices below this")
	screenCmd.Flags().Float64Var(&criteria.MinAbsChangePercent, "min-change", 0, "minimum absolute percent change")
	screenCmd.Flags().Int64Var(&criteria.MinVolume, "min-volume", 0, "volume must exceed this")
	screenCmd.Flags().Float64Var(&criteria.MinGapUp, "min-gap-up", 0, "minimum gap up percent")
	screenCmd.Flags().Float64Var(&criteria.MinRelativeVolume, "min-rel-volume", 0, "minimum relative volume")
	screenCmd.Flags().Float64Var(&criteria.MaxFloat, "max-float", 0, "maximum float")
	screenCmd.Flags().Float64Var(&criteria.MinMarketCap, "min-market-cap", 0, "minimum market cap")
	screenCmd.Flags().StringVar(&chartPath, "chart", "", "also write the score chart PNG to this path")

	var newsQuery models.NewsQuery
	newsCmd := &cobra.Command{
		Use:   "news",
		Short: "Print the classified news catalyst feed",
		RunE: withApp(func(ctx context.Context, a *app.App) (interface{}, error) {
			return a.NewsService.GetNews(ctx, newsQuery)
		}),
	}
	newsCmd.Flags().StringSliceVar(&newsQuery.Symbols, "symbols", nil, "restrict to these symbols")
	newsCmd.Flags().StringSliceVar(&newsQuery.Topics, "topics", nil, "topics (default: technology, financial_markets)")
	newsCmd.Flags().IntVar(&newsQuery.Limit, "limit", 0, "maximum number of items")

	analyzeCmd := &cobra.Command{
		Use:   "analyze SYMBOL",
		Short: "Print the analysis card for one symbol",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			symbol := args[0]
			return withApp(func(ctx context.Context, a *app.App) (interface{}, error) {
				return a.AnalysisService.Analyze(ctx, symbol)
			})(c, args)
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(c *cobra.Command, _ []string) error {
			common.LoadVersionFromFile()
			return writeJSON(out, common.GetVersionInfo())
		},
	}

	rootCmd.AddCommand(screenCmd, newsCmd, analyzeCmd, versionCmd)
	return rootCmd
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
