package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/coffeemap/internal/cache"
	"github.com/JakeFAU/coffeemap/internal/config"
	"github.com/JakeFAU/coffeemap/internal/emit"
	"github.com/JakeFAU/coffeemap/internal/feed"
	"github.com/JakeFAU/coffeemap/internal/pipeline"
	"github.com/JakeFAU/coffeemap/internal/places"
)

// newRunCmd creates and configures the 'run' subcommand.
func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Crawl, resolve, and write café KML files",
		Long: `Starts the crawl feed, resolves every café page to a place (cache first,
then the place search API), updates the KML cache, and writes the unique
places as <prefix>_chunk_<n>.kml files of at most --batch-size placemarks.`,
		Args: cobra.NoArgs,
		RunE: runRunCommand,
	}
	f := cmd.Flags()
	f.String("api-key", "", "place search API key (or COFFEEMAP_PLACES_API_KEY)")
	f.Int("batch-size", 1000, "placemarks per output file")
	f.Int("depth", 3, "maximum crawl depth")
	f.Int("rate", 10, "crawl requests per second")
	f.String("cache-dir", "existing_kml", "directory holding previously resolved KML")
	f.String("output-dir", "output", "directory the chunk files are written to")
	f.String("prefix", "ECT", "output file name prefix")
	f.String("feed", config.FeedKatana, "crawl feed: katana, colly or file")
	f.String("input", "-", "JSONL crawl output for --feed file ('-' for stdin)")
	f.String("seed-url", "https://europeancoffeetrip.com/cafe", "crawl start URL")
	f.Int("log-every", 100, "log every Nth progress snapshot (0 logs only the summary)")
	f.String("metrics", "", "serve Prometheus metrics on this address")
	f.Bool("dev", false, "development logging")
	return cmd
}

func runRunCommand(cmd *cobra.Command, _ []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	defer closeApp(appInstance)

	ctx := cmd.Context()
	cfg := appInstance.GetConfig()
	logger := appInstance.GetLogger()

	ix, err := cache.Load(cfg.Output.CacheDir, logger)
	if err != nil {
		return fmt.Errorf("load cache: %w", err)
	}

	client, err := places.New(places.Config{
		Endpoint:          cfg.Places.Endpoint,
		APIKey:            cfg.Places.APIKey,
		Timeout:           cfg.Places.Timeout,
		RequestsPerSecond: cfg.Places.RequestsPerSecond,
		MaxRetries:        cfg.Places.MaxRetries,
	}, nil, logger)
	if err != nil {
		return fmt.Errorf("init place lookup: %w", err)
	}

	source, closeInput, err := buildSource(ctx, cfg.Feed, cmd.InOrStdin(), logger)
	if err != nil {
		return err
	}
	defer closeInput()
	defer source.Close()

	engine := pipeline.NewEngine(
		source,
		pipeline.NewResolver(client, logger),
		ix,
		&emit.Emitter{
			Dir:       cfg.Output.Dir,
			Prefix:    cfg.Output.Prefix,
			BatchSize: cfg.Output.BatchSize,
			Logger:    logger,
		},
		appInstance.GetProgress(),
		pipeline.Config{CacheDir: cfg.Output.CacheDir},
		logger,
	)

	report, err := engine.Run(ctx)
	logger.Info("Run finished",
		zap.Int64("resolved", report.Counters.Resolved()),
		zap.Int64("failed", report.Counters.Failed()),
		zap.Int("unique_places", len(report.Unique)),
		zap.Strings("chunks", report.Chunks),
	)
	if err != nil {
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			logger.Warn("Run interrupted; partial results were written")
		}
		return fmt.Errorf("run: %w", err)
	}
	return nil
}

func buildSource(ctx context.Context, cfg config.FeedConfig, stdin io.Reader, logger *zap.Logger) (*feed.Source, func(), error) {
	noop := func() {}
	switch cfg.Mode {
	case config.FeedKatana:
		src, err := feed.NewKatanaSource(ctx, feed.KatanaConfig{
			Binary:            cfg.KatanaPath,
			SeedURL:           cfg.SeedURL,
			MatchPattern:      cfg.MatchPattern,
			MaxDepth:          cfg.MaxDepth,
			RequestsPerSecond: cfg.RequestsPerSecond,
		}, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("start katana feed: %w", err)
		}
		return src, noop, nil
	case config.FeedColly:
		src, err := feed.NewCollySource(ctx, feed.CollyConfig{
			SeedURL:           cfg.SeedURL,
			MatchPattern:      cfg.MatchPattern,
			MaxDepth:          cfg.MaxDepth,
			RequestsPerSecond: cfg.RequestsPerSecond,
			UserAgent:         cfg.UserAgent,
		}, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("start colly feed: %w", err)
		}
		return src, noop, nil
	case config.FeedFile:
		if cfg.Input == "-" {
			return feed.NewReaderSource(ctx, stdin), noop, nil
		}
		f, err := os.Open(cfg.Input)
		if err != nil {
			return nil, nil, fmt.Errorf("open feed input: %w", err)
		}
		return feed.NewReaderSource(ctx, f), func() { _ = f.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown feed mode %q", cfg.Mode)
	}
}
