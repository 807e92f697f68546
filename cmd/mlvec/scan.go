package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/viant/mlvec/internal/config"
	"github.com/viant/mlvec/internal/logging"
	"github.com/viant/mlvec/scan"
	"github.com/viant/mlvec/vector"
	"github.com/viant/mlvec/vector/drivers"
)

// demoVectors are stored under user keys "0".."3" before the scan runs.
var demoVectors = [][]float32{
	{1.1, 2.1, 3.1, 4.1},     // similar to the query
	{5.0, 6.0, 7.0, 8.0},     // different from the query
	{0.9, 1.9, 2.9, 3.9},     // very similar to the query
	{10.0, 20.0, 30.0, 40.0}, // very different from the query
}

var demoQuery = []float32{1, 2, 3, 4}

func newScanCmd(cfg *config.Config) *cobra.Command {
	var (
		minVersion string
		nearest    int
		keep       bool
	)
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Run the vector scan demo against a record store",
		Long: `Inserts demo records holding 4-dimensional float32 vectors, scans them with
the query [1 2 3 4] and prints every match with its distance. Test records
are removed before and after the scan.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			var flushLog func()
			ctx, flushLog = setupLogger(ctx, cmd, cfg.Debug)
			defer flushLog()

			if minVersion != "" {
				if err := cfg.MinServerVersion.UnmarshalText([]byte(minVersion)); err != nil {
					return err
				}
			}
			return runScanDemo(ctx, cmd, cfg, nearest, keep)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&cfg.Driver, "driver", cfg.Driver, "record store: sqlite, redis or memory")
	flags.StringVar(&cfg.DSN, "dsn", cfg.DSN, "SQLite data source name")
	flags.StringVar(&cfg.RedisAddr, "redis-addr", cfg.RedisAddr, "Redis address")
	flags.StringVarP(&cfg.Namespace, "namespace", "n", cfg.Namespace, "namespace to scan")
	flags.StringVarP(&cfg.Set, "set", "s", cfg.Set, "set to scan")
	flags.StringVarP(&cfg.Bin, "bin", "b", cfg.Bin, "bin holding the vector blob")
	flags.StringVarP(&cfg.Metric, "metric", "m", cfg.Metric, "distance metric: l2, cosine or dot")
	flags.StringVar(&minVersion, "min-server-version", "", "refuse stores reporting an older version")
	flags.IntVarP(&nearest, "nearest", "k", 0, "print only the k closest matches")
	flags.BoolVar(&keep, "keep", false, "leave the demo records in the store")
	return cmd
}

func runScanDemo(ctx context.Context, cmd *cobra.Command, cfg *config.Config, nearest int, keep bool) error {
	logger := logging.FromCtx(ctx)
	metric, err := vector.ParseMetric(cfg.Metric)
	if err != nil {
		return err
	}
	store, err := drivers.New(drivers.Kind(cfg.Driver),
		drivers.WithDSN(cfg.DSN),
		drivers.WithRedisAddr(cfg.RedisAddr),
	)
	if err != nil {
		return err
	}
	defer store.Close()

	// Start clean.
	if err := removeDemoRecords(ctx, store, cfg); err != nil {
		return err
	}
	if !keep {
		defer func() {
			if err := removeDemoRecords(context.Background(), store, cfg); err != nil {
				logger.Warn().Err(err).Msg("failed to remove demo records")
			}
		}()
	}

	logger.Info().Msg("inserting test records with vector data")
	for i, values := range demoVectors {
		blob, err := vector.EncodeEmbedding(values)
		if err != nil {
			return err
		}
		rec := vector.Record{
			Key:  vector.Key{Namespace: cfg.Namespace, Set: cfg.Set, UserKey: strconv.Itoa(i)},
			Bin:  cfg.Bin,
			Blob: blob,
		}
		if err := store.Put(ctx, rec); err != nil {
			return fmt.Errorf("insert record %d: %w", i, err)
		}
	}
	logger.Info().Int("count", len(demoVectors)).Msg("inserted test records")

	query, err := vector.NewFloat32(demoQuery)
	if err != nil {
		return err
	}
	scanner := scan.New(store, scan.WithMinServerVersion(cfg.MinServerVersion))
	req := scan.Request{
		Namespace: cfg.Namespace,
		Set:       cfg.Set,
		Bin:       cfg.Bin,
		Vector:    query,
		Type:      vector.Float32,
		Metric:    metric,
	}
	out := cmd.OutOrStdout()

	logger.Info().Msg("executing vector scan")
	if nearest > 0 {
		matches, err := scanner.Nearest(ctx, req, nearest)
		if err != nil {
			return err
		}
		for _, m := range matches {
			printMatch(out, cfg.Namespace, m.Digest, m.Set, m.Distance)
		}
		logger.Info().Int("matched", len(matches)).Msg("vector scan completed")
		return nil
	}

	stats, err := scanner.Run(ctx, req, func(namespace string, digest scan.Digest, set string, distance float64) bool {
		printMatch(out, namespace, digest, set, distance)
		return true
	})
	if err != nil {
		return err
	}
	logger.Info().
		Int("scanned", stats.Scanned).
		Int("matched", stats.Matched).
		Int("skipped", stats.Skipped).
		Msg("vector scan completed")
	return nil
}

func printMatch(out io.Writer, namespace string, digest scan.Digest, set string, distance float64) {
	if set == "" {
		set = "(null)"
	}
	fmt.Fprintf(out, "namespace=%s set=%s digest=%s distance=%.6f\n", namespace, set, digest, distance)
}

func removeDemoRecords(ctx context.Context, store vector.Store, cfg *config.Config) error {
	for i := range demoVectors {
		key := vector.Key{Namespace: cfg.Namespace, Set: cfg.Set, UserKey: strconv.Itoa(i)}
		if err := store.Remove(ctx, key); err != nil {
			return err
		}
	}
	return nil
}
