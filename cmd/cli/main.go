package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"allday/adapters/api"
	"allday/adapters/excel"
	"allday/app"
	"allday/domain/core"
	"allday/domain/market"
	"allday/domain/stats"
	"allday/internal/significance"
	"allday/internal/testkit"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "allday",
		Short: "NFL All Day marketplace statistics and pack simulation",
	}

	rootCmd.AddCommand(
		newMaterializeCmd(),
		newSimulateCmd(),
		newServeCmd(),
		newCompareCmd(),
		newLookupCmd(),
		newMigrateCmd(),
		newGenerateCmd(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func resolveSeed(seed int64) uint64 {
	if seed == 0 {
		return uint64(time.Now().UnixNano())
	}
	return uint64(seed)
}

func newMaterializeCmd() *cobra.Command {
	var seed int64
	var skipBanks bool

	cmd := &cobra.Command{
		Use:   "materialize",
		Short: "Compute every result table and test family for the current snapshot",
		Long: `Load the snapshot, compute every derived table and significance family,
persist them when DATABASE_URL is set, and build one sample bank per pack type.

Example: allday materialize --seed 12345`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := newRuntime(ctx)
			if err != nil {
				return err
			}
			defer rt.Close()

			snap, err := rt.loadSnapshot(ctx)
			if err != nil {
				return err
			}
			svc, err := rt.materializer()
			if err != nil {
				return err
			}
			s := resolveSeed(rt.bankSeed(seed))
			res, err := svc.Materialize(ctx, app.MaterializeRequest{Snapshot: snap, Seed: s})
			if err != nil {
				return err
			}

			out := struct {
				*app.MaterializeResult
				Banks []app.BankInfo `json:"banks,omitempty"`
			}{MaterializeResult: res}
			if !skipBanks {
				if out.Banks, err = rt.packs().Build(ctx, snap, s); err != nil {
					return err
				}
			}
			return printJSON(out)
		},
	}

	cmd.Flags().Int64Var(&seed, "seed", 0, "Seed for the sample banks (0 uses BANK_SEED, then the clock)")
	cmd.Flags().BoolVar(&skipBanks, "skip-banks", false, "Do not build sample banks")

	return cmd
}

func newSimulateCmd() *cobra.Command {
	var seed int64
	var packType string
	var draws int

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Build sample banks and draw bundles from them",
		Long: `Build one sample bank per configured pack type, print the expected value
of each pack and draw bundles from the bank of one pack type.

Example: allday simulate --pack-type Premium --draws 5 --seed 42`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := newRuntime(ctx)
			if err != nil {
				return err
			}
			defer rt.Close()

			snap, err := rt.loadSnapshot(ctx)
			if err != nil {
				return err
			}
			packs := rt.packs()
			banks, err := packs.Build(ctx, snap, resolveSeed(rt.bankSeed(seed)))
			if err != nil {
				return err
			}

			out := struct {
				Banks  []app.BankInfo  `json:"banks"`
				Values []app.PackValue `json:"values"`
				Draws  []*app.Draw     `json:"draws,omitempty"`
			}{Banks: banks, Values: packs.Values()}
			for i := 0; i < draws; i++ {
				d, err := packs.Draw(packType)
				if err != nil {
					return err
				}
				out.Draws = append(out.Draws, d)
			}
			return printJSON(out)
		},
	}

	cmd.Flags().Int64Var(&seed, "seed", 0, "Seed for the sample banks (0 uses BANK_SEED, then the clock)")
	cmd.Flags().StringVar(&packType, "pack-type", "Standard", "Pack type to draw from")
	cmd.Flags().IntVar(&draws, "draws", 1, "Number of bundles to draw")

	return cmd
}

func newServeCmd() *cobra.Command {
	var seed int64
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Materialize, build sample banks and serve them over HTTP",
		Long: `Materialize the snapshot, build the sample banks and serve results and
draws until interrupted. The snapshot is reloaded every CACHE_TTL; banks
are rebuilt only when the inputs changed.

Example: allday serve --addr :8080`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := newRuntime(ctx)
			if err != nil {
				return err
			}
			defer rt.Close()
			gin.SetMode(rt.cfg.Server.GinMode)

			svc, err := rt.materializer()
			if err != nil {
				return err
			}
			packs := rt.packs()
			s := resolveSeed(rt.bankSeed(seed))

			var inputs core.Hash
			refresh := func() error {
				snap, err := rt.loadSnapshot(ctx)
				if err != nil {
					return err
				}
				if _, err := svc.Materialize(ctx, app.MaterializeRequest{Snapshot: snap, Seed: s}); err != nil {
					return err
				}
				if snap.InputsHash == inputs {
					return nil
				}
				if _, err := packs.Build(ctx, snap, s); err != nil {
					return err
				}
				inputs = snap.InputsHash
				return nil
			}
			if err := refresh(); err != nil {
				return err
			}

			go func() {
				ticker := time.NewTicker(rt.cfg.Cache.TTL)
				defer ticker.Stop()
				for {
					select {
					case <-ctx.Done():
						return
					case <-ticker.C:
						if err := refresh(); err != nil {
							rt.logger.Error("refresh failed: %v", err)
						}
					}
				}
			}()

			if addr == "" {
				addr = ":" + rt.cfg.Server.Port
			}
			return api.NewServer(svc, packs, rt.logger).Run(ctx, addr)
		},
	}

	cmd.Flags().Int64Var(&seed, "seed", 0, "Seed for the sample banks (0 uses BANK_SEED, then the clock)")
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default :$PORT)")

	return cmd
}

func newCompareCmd() *cobra.Command {
	var dateRange, playType, how, metric, positionType string

	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Run the price-driver tests for one slice of the market",
		Long: `Compare flagged and unflagged sales for every driver metric of one
date range, play type, scoring variant, aggregate metric and position type.

Example: allday compare --range "2022 Full Season" --play-type Pass --how game_td --metric Price --position-type "By Position"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			variant := market.ScoringVariant(how)
			if !slices.Contains(market.ScoringVariants(), variant) {
				return fmt.Errorf("unknown scoring variant %q", how)
			}
			if !slices.Contains(stats.AggMetrics(), stats.AggMetric(metric)) {
				return fmt.Errorf("unknown metric %q", metric)
			}
			if !slices.Contains(market.PositionTypes(), market.PositionType(positionType)) {
				return fmt.Errorf("unknown position type %q", positionType)
			}

			rt, err := newRuntime(ctx)
			if err != nil {
				return err
			}
			defer rt.Close()
			snap, err := rt.loadSnapshot(ctx)
			if err != nil {
				return err
			}
			svc, err := rt.materializer()
			if err != nil {
				return err
			}
			svc.Use(snap)

			out := make(map[string]interface{})
			for _, driver := range significance.DriverMetrics(variant) {
				family, err := svc.PriceDrivers(app.DriverQuery{
					DateRange:    dateRange,
					PlayType:     playType,
					How:          variant,
					Metric:       stats.AggMetric(metric),
					PositionType: market.PositionType(positionType),
					Driver:       driver,
				})
				if err != nil {
					return err
				}
				out[driver.Name()] = family
			}
			return printJSON(out)
		},
	}

	cmd.Flags().StringVar(&dateRange, "range", "All Time", "Date range name")
	cmd.Flags().StringVar(&playType, "play-type", app.AllPlayTypes, "Play type, or All")
	cmd.Flags().StringVar(&how, "how", string(market.ScoredTDInMoment), "Scoring variant")
	cmd.Flags().StringVar(&metric, "metric", string(stats.MetricPrice), "Aggregate metric (Price or Sales Count)")
	cmd.Flags().StringVar(&positionType, "position-type", string(market.ByGroup), "Position type")

	return cmd
}

func newLookupCmd() *cobra.Command {
	var kind string

	cmd := &cobra.Command{
		Use:   "lookup [result-key]",
		Short: "Print one materialized result, or list keys",
		Long: `Print a result by its canonical key. Without a key, list the keys of one
kind. Results come from Postgres when DATABASE_URL is set; otherwise the
snapshot is materialized in-process first.

Example: allday lookup "summary--date_range=All_dates--mode=overall"
Example: allday lookup --kind challenge`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := newRuntime(ctx)
			if err != nil {
				return err
			}
			defer rt.Close()
			svc, err := rt.materializer()
			if err != nil {
				return err
			}
			if !rt.cfg.Persists() {
				snap, err := rt.loadSnapshot(ctx)
				if err != nil {
					return err
				}
				if _, err := svc.Materialize(ctx, app.MaterializeRequest{Snapshot: snap}); err != nil {
					return err
				}
			}

			if len(args) == 0 {
				keys, err := svc.Keys(ctx, kind)
				if err != nil {
					return err
				}
				return printJSON(keys)
			}
			res, err := svc.Lookup(ctx, args[0])
			if errors.Is(err, core.ErrResultNotFound) {
				return fmt.Errorf("no result for %q; list keys with --kind", args[0])
			}
			if err != nil {
				return err
			}
			return printJSON(res)
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "", "Result kind to list when no key is given")

	return cmd
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Long: `Apply every pending migration to the database at DATABASE_URL.

Example: DATABASE_URL=postgres://localhost/allday?sslmode=disable allday migrate`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()
			return rt.migrate(cmd.Context())
		},
	}
}

func newGenerateCmd() *cobra.Command {
	var out string
	var moments int
	var sales float64
	var seed int64

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write a synthetic transactions snapshot",
		Long: `Generate deterministic marketplace sales for the first weeks of the 2022
season and write them as CSV or XLSX, chosen by the output extension.

Example: allday generate --out data/current_allday_data.csv --moments 500 --seed 7`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if moments <= 0 {
				return fmt.Errorf("moments must be > 0")
			}
			cfg := testkit.DefaultMarketConfig()
			cfg.MomentCount = moments
			cfg.AvgSalesPerMoment = sales
			cfg.Seed = seed

			rows := testkit.NewMarketGenerator(cfg).Generate()
			flags := []string{market.FlagWonGame, market.FlagInPack, string(market.PlayByPlayTD)}
			if err := excel.WriteTransactions(out, rows, flags); err != nil {
				return fmt.Errorf("error writing %s: %w", out, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d sales of %d moments to %s\n", len(rows), moments, out)
			return nil
		},
	}

	cmd.Flags().StringVar(&out, "out", "current_allday_data.csv", "Output file (.csv or .xlsx)")
	cmd.Flags().IntVar(&moments, "moments", 200, "Number of moments")
	cmd.Flags().Float64Var(&sales, "sales", 12, "Average sales per moment")
	cmd.Flags().Int64Var(&seed, "seed", 42, "RNG seed (deterministic)")

	return cmd
}
