package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ecbconv/ecbconv/app"
	"github.com/ecbconv/ecbconv/app/outfmt"
	"github.com/ecbconv/ecbconv/config"
	"github.com/ecbconv/ecbconv/log"
	"github.com/ecbconv/ecbconv/metrics"
)

// Flags shared by all commands.
type globalOptions struct {
	ConfigFile    string
	ForceDownload bool
	NoCache       bool
	MetricsFile   string
	Places        int32
}

type convertOptions struct {
	From        string
	To          string
	Amount      float64
	LastUpdated bool
}

func cmdName() string {
	binName := os.Args[0]
	return filepath.Base(binName)
}

// runEnv is everything a command needs for one run.
type runEnv struct {
	cfg     *config.Config
	metrics *metrics.Metrics
	opts    app.Options
}

func setupRun(cmd *cobra.Command, gopts *globalOptions) (*runEnv, error) {
	if gopts.Places < 0 {
		return nil, fmt.Errorf("--places must not be negative, got %d", gopts.Places)
	}

	cfgPath := gopts.ConfigFile
	if cfgPath == "" {
		cfgPath = config.DefaultPath(os.Getenv)
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	if err := log.Setup(cfg.Logger); err != nil {
		return nil, err
	}
	if gopts.MetricsFile != "" {
		cfg.Metrics.File = gopts.MetricsFile
	}
	log.Fverbosef(cmd.ErrOrStderr(), "Using feed %s\n", cfg.Feed.URL)

	env := &runEnv{cfg: cfg, metrics: metrics.NewMetrics()}
	env.opts = app.Options{
		ForceDownload: gopts.ForceDownload,
		NoCache:       gopts.NoCache,
		Getenv:        os.Getenv,
		ErrPrinter:    &log.WriterErrorPrinter{W: cmd.ErrOrStderr()},
		Metrics:       env.metrics,
	}
	return env, nil
}

// finish writes the metrics textfile, if one is configured.
func (e *runEnv) finish() {
	if e.cfg.Metrics.File == "" {
		return
	}
	if err := e.metrics.WriteTextfile(e.cfg.Metrics.File); err != nil {
		log.Component("cmd").Warnf("Write metrics to %s: %v", e.cfg.Metrics.File, err)
	}
}

func runRootCmd(cmd *cobra.Command, gopts *globalOptions, copts *convertOptions) error {
	env, err := setupRun(cmd, gopts)
	if err != nil {
		return err
	}
	defer env.finish()

	mgr, release, err := app.NewRateManager(env.cfg, env.opts)
	if err != nil {
		return err
	}
	defer release()

	return app.RunConvert(context.Background(), app.ConvertRequest{
		Amount:          copts.Amount,
		From:            copts.From,
		To:              copts.To,
		Places:          gopts.Places,
		ShowLastUpdated: copts.LastUpdated,
	}, mgr, cmd.OutOrStdout())
}

func runRatesCmd(cmd *cobra.Command, gopts *globalOptions, format string) error {
	writer, ok := outfmt.NewWriter(format, cmd.OutOrStdout())
	if !ok {
		return fmt.Errorf("unknown format %q, expected text or csv", format)
	}
	env, err := setupRun(cmd, gopts)
	if err != nil {
		return err
	}
	defer env.finish()

	mgr, release, err := app.NewRateManager(env.cfg, env.opts)
	if err != nil {
		return err
	}
	defer release()

	return app.RunListRates(context.Background(), mgr, gopts.Places, writer)
}

func newRatesCmd(gopts *globalOptions) *cobra.Command {
	var format string
	ratesCmd := &cobra.Command{
		Use:   "rates",
		Short: "Print the current reference rates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRatesCmd(cmd, gopts, format)
		},
	}
	ratesCmd.Flags().StringVar(&format, "format", "text", "Output format: text or csv")
	return ratesCmd
}

// NewRootCmd builds the command tree. Each call has its own flag state.
func NewRootCmd() *cobra.Command {
	gopts := &globalOptions{}
	copts := &convertOptions{}

	rootCmd := &cobra.Command{
		Use:   cmdName() + " -f FROM -t TO -s AMOUNT",
		Short: "Currency converter using ECB reference rates",
		Long: `A cli tool which converts an amount between currencies using the euro
foreign exchange reference rates published by the European Central Bank.

Rates are cached in $XDG_DATA_HOME (or ~/.local/share), and are only
downloaded again once the ECB is expected to have published newer ones
(working days, after 15:30 UTC). Bank holidays are not taken into account.
`,
		Args:          cobra.NoArgs,
		Version:       app.AppVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRootCmd(cmd, gopts, copts)
		},
	}

	// Persistent flags, which are global to the app cli
	pflags := rootCmd.PersistentFlags()
	pflags.BoolVarP(&log.VerboseEnabled, "verbose", "v", false,
		"Print verbose output")
	pflags.StringVar(&gopts.ConfigFile, "config", "",
		"Config file (default $XDG_CONFIG_HOME/ecbconv/ecbconv.ini)")
	pflags.BoolVar(&gopts.ForceDownload, "force-download", false,
		"Download exchange rates, even if they are cached")
	pflags.BoolVar(&gopts.NoCache, "no-cache", false,
		"Do not read or write the local rate cache")
	pflags.StringVar(&gopts.MetricsFile, "metrics-file", "",
		"Write prometheus metrics for this run to the given textfile")
	pflags.Int32Var(&gopts.Places, "places", 4,
		"Decimal places to print")

	flags := rootCmd.Flags()
	flags.StringVarP(&copts.From, "from", "f", "", "Currency to convert from, e.g. USD")
	flags.StringVarP(&copts.To, "to", "t", "", "Currency to convert to, e.g. GBP")
	flags.Float64VarP(&copts.Amount, "sum", "s", 0, "Amount to convert")
	flags.BoolVar(&copts.LastUpdated, "last-updated", false,
		"Also print when the rates used were published")
	rootCmd.MarkFlagRequired("from")
	rootCmd.MarkFlagRequired("to")

	rootCmd.AddCommand(newRatesCmd(gopts))
	return rootCmd
}

// Execute runs the root command with os.Args, and exits non-zero on error.
// This is called by main.main().
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		errPrinter := &log.StderrErrorPrinter{}
		errPrinter.Ln("Error:", app.DescribeError(err))
		os.Exit(1)
	}
}
