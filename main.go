package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"windfarm-impact/internal/emissions/application"
	"windfarm-impact/internal/emissions/infrastructure/postgres"
	"windfarm-impact/internal/emissions/interfaces/export"
	"windfarm-impact/internal/observability/metrics"
)

// Version is set at build time.
var Version = "dev"

var (
	configPath string
	logger     = logrus.New()
)

var rootCmd = &cobra.Command{
	Use:   "impact",
	Short: "Estimate the grid emissions impact of a proposed wind farm.",
	Long: `impact joins an hourly wind generation profile with the regional grid fuel
mix and locational marginal prices, allocates the displaced generation to the
marginal fuel hour by hour, and reports avoided CO2 emissions.

Configuration is read from the file given by --config (YAML, or TOML when the
file ends in .toml), then from IMPACT_* environment variables, then from flags.`,
	SilenceUsage: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Allocate every hour and export the report.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd.Flags())
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		m := metrics.New()
		writer, err := export.NewDirWriter(cfg.Output.Dir, cfg.Output.Formats,
			export.WithMetrics(m), export.WithLogger(logger))
		if err != nil {
			return err
		}
		opts := []application.RunOption{
			application.WithLogger(logger),
			application.WithMetrics(m, cfg.Output.MetricsFile),
			application.WithReportWriter(writer),
		}

		if cfg.Database.DSN != "" {
			db, err := sql.Open("pgx", cfg.Database.DSN)
			if err != nil {
				return fmt.Errorf("db open: %w", err)
			}
			defer db.Close()
			if err := db.PingContext(ctx); err != nil {
				return fmt.Errorf("db ping: %w", err)
			}
			repo, err := postgres.NewRunRepository(db)
			if err != nil {
				return err
			}
			if err := repo.EnsureSchema(ctx); err != nil {
				return fmt.Errorf("db schema: %w", err)
			}
			opts = append(opts, application.WithRepository(repo))
		}

		svc, err := newService(cfg, opts...)
		if err != nil {
			return err
		}
		outcome, err := svc.Run(ctx)
		if err != nil {
			return err
		}
		printSummary(cmd, outcome)
		return nil
	},
}

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Build the normalized grid and price tables from raw sources.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd.Flags())
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		svc, err := newService(cfg, application.WithLogger(logger))
		if err != nil {
			return err
		}
		out, err := svc.Fetch(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "grid table: %s (%d records, %d snapshots dropped)\n", out.GridFile, out.GridRecords, out.DroppedSnapshots)
		fmt.Fprintf(cmd.OutOrStdout(), "price table: %s (%d records)\n", out.PriceFile, out.PriceRecords)
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "impact %s\n", Version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "configuration file (defaults to $IMPACT_CONFIG)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("grid-source", "", "grid fuel mix source (isone, eia)")
	rootCmd.PersistentFlags().Int("year", 0, "EIA data year")

	runCmd.Flags().String("mode", "", "allocation mode (marginal-rate, avoided-mass)")
	runCmd.Flags().Float64("threshold", 0, "curtailment threshold price ($/MWh)")
	runCmd.Flags().Bool("strict", false, "abort on the first failed hour")
	runCmd.Flags().Bool("refresh", false, "ignore cached grid and price tables")
	runCmd.Flags().String("output", "", "report output directory")
	runCmd.Flags().StringSlice("formats", nil, "report formats (csv, xlsx, pdf, png)")
	runCmd.Flags().String("metrics-file", "", "write Prometheus metrics to this textfile")

	rootCmd.AddCommand(runCmd, fetchCmd, versionCmd)
}

// loadConfig layers flags that were set explicitly over file and environment.
func loadConfig(flags *pflag.FlagSet) (application.Config, error) {
	cfg, err := application.LoadConfig(configPath)
	if err != nil {
		return cfg, err
	}
	if flags.Changed("log-level") {
		cfg.LogLevel, _ = flags.GetString("log-level")
	}
	if flags.Changed("grid-source") {
		cfg.Input.GridSource, _ = flags.GetString("grid-source")
	}
	if flags.Changed("year") {
		cfg.Input.Year, _ = flags.GetInt("year")
	}
	if flags.Changed("mode") {
		cfg.Engine.Mode, _ = flags.GetString("mode")
	}
	if flags.Changed("threshold") {
		cfg.Engine.ThresholdPrice, _ = flags.GetFloat64("threshold")
	}
	if flags.Changed("strict") {
		cfg.Engine.Strict, _ = flags.GetBool("strict")
	}
	if flags.Changed("refresh") {
		cfg.Cache.Refresh, _ = flags.GetBool("refresh")
	}
	if flags.Changed("output") {
		cfg.Output.Dir, _ = flags.GetString("output")
	}
	if flags.Changed("formats") {
		cfg.Output.Formats, _ = flags.GetStringSlice("formats")
	}
	if flags.Changed("metrics-file") {
		cfg.Output.MetricsFile, _ = flags.GetString("metrics-file")
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return cfg, err
	}
	logger.SetLevel(level)
	return cfg, nil
}

func newService(cfg application.Config, opts ...application.RunOption) (*application.RunService, error) {
	sources, err := application.BuildSources(cfg, logger)
	if err != nil {
		return nil, err
	}
	return application.NewRunService(cfg, sources, opts...)
}

func printSummary(cmd *cobra.Command, outcome *application.RunOutcome) {
	s := outcome.Report.Summary
	fmt.Fprintf(cmd.OutOrStdout(), "run %s (%s)\n", outcome.Run.ID, outcome.Run.Mode)
	fmt.Fprintf(cmd.OutOrStdout(), "hours: %d allocated, %d failed, %d curtailed\n", s.Hours-s.FailedHours, s.FailedHours, s.CurtailedHours)
	fmt.Fprintf(cmd.OutOrStdout(), "new generation: %.0f MWh (capacity factor %.3f)\n", s.NewGenerationMWh, s.CapacityFactor)
	fmt.Fprintf(cmd.OutOrStdout(), "marginal emissions rate: %.3f -> %.3f lbs/MWh (%.2f%%)\n", s.MeanRateBefore, s.MeanRateAfter, s.RateChangePct)
	fmt.Fprintf(cmd.OutOrStdout(), "avoided emissions: %.1f t CO2\n", s.AvoidedEmissionsTonnes)
	for _, f := range outcome.Files {
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", f)
	}
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		logger.WithError(err).Error("impact failed")
		os.Exit(1)
	}
}
