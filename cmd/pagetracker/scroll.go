package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Sternrassler/pagetracker/internal/config"
	"github.com/Sternrassler/pagetracker/pkg/grid"
	"github.com/Sternrassler/pagetracker/pkg/httpfetch"
	"github.com/Sternrassler/pagetracker/pkg/logging"
	"github.com/Sternrassler/pagetracker/pkg/metrics"
	"github.com/Sternrassler/pagetracker/pkg/pagination"
	"github.com/Sternrassler/pagetracker/pkg/ratelimit"
	"github.com/Sternrassler/pagetracker/pkg/store"
	"github.com/Sternrassler/pagetracker/pkg/tracker"
)

// record is one list element, printed as received.
type record = json.RawMessage

type scrollOptions struct {
	configPath   string
	url          string
	pageSize     int
	redisAddr    string
	metricsAddr  string
	logLevel     string
	step         int
	maxItems     int
	forceRefresh bool
}

func newScrollCommand() *cobra.Command {
	var opts scrollOptions

	cmd := &cobra.Command{
		Use:   "scroll",
		Short: "Scroll through a remote list and print its items as NDJSON",
		Long: `Scroll through a remote list and print every loaded item as one JSON line.

The list is scrolled step rows at a time. Each position is reported to the
tracker, which requests the next page when the position comes within
page-size items of the end of the loaded data.

Configuration is read from --config (or .pagetracker.yaml), then
PAGETRACKER_* environment variables, then flags.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolveConfig(cmd, opts)
			if err != nil {
				return err
			}

			logging.Setup(logging.Config{
				Level:  cfg.Logging.Level,
				Pretty: cfg.Logging.Pretty,
				Output: cmd.ErrOrStderr(),
			})

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runScroll(ctx, cfg, opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.configPath, "config", "", "Config file path (default: .pagetracker.yaml)")
	cmd.Flags().StringVar(&opts.url, "url", "", "URL of the first page")
	cmd.Flags().IntVar(&opts.pageSize, "page-size", tracker.DefaultPageSize, "Items before the end of the loaded data that trigger the next fetch")
	cmd.Flags().StringVar(&opts.redisAddr, "redis", "", "Redis address for the page cache (disabled when empty)")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	cmd.Flags().IntVar(&opts.step, "step", 1, "Rows scrolled per step")
	cmd.Flags().IntVar(&opts.maxItems, "max-items", 0, "Stop after printing this many items (0: no limit)")
	cmd.Flags().BoolVar(&opts.forceRefresh, "force-refresh", false, "Bypass and prune cached pages on the first load")

	return cmd
}

// resolveConfig loads the config file and environment, then applies the
// flags the user set explicitly.
func resolveConfig(cmd *cobra.Command, opts scrollOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("url") {
		cfg.Source.URL = opts.url
	}
	if flags.Changed("page-size") {
		cfg.Tracker.PageSize = opts.pageSize
	}
	if flags.Changed("redis") {
		cfg.Cache.RedisAddr = opts.redisAddr
	}
	if flags.Changed("metrics-addr") {
		cfg.Metrics.Addr = opts.metricsAddr
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = opts.logLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if opts.step <= 0 {
		return nil, fmt.Errorf("%w: step must be positive, got %d", config.ErrInvalidConfig, opts.step)
	}
	if opts.maxItems < 0 {
		return nil, fmt.Errorf("%w: max items cannot be negative", config.ErrInvalidConfig)
	}

	return cfg, nil
}

// runScroll pages through the list described by cfg and writes items to out.
func runScroll(ctx context.Context, cfg *config.Config, opts scrollOptions, out io.Writer) error {
	logger := logging.NewLogger(logging.ComponentCLI)

	if cfg.Metrics.Addr != "" {
		srv := metrics.NewServer(cfg.Metrics.Addr)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error().Err(err).Str("addr", cfg.Metrics.Addr).Msg("Metrics server failed")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
		logger.Info().Str("addr", cfg.Metrics.Addr).Msg("Serving metrics")
	}

	var redisClient *redis.Client
	if cfg.Cache.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr: cfg.Cache.RedisAddr,
			DB:   cfg.Cache.RedisDB,
		})
		defer redisClient.Close()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connect to redis at %s: %w", cfg.Cache.RedisAddr, err)
		}
		logger.Info().Str("addr", cfg.Cache.RedisAddr).Msg("Connected to Redis")
	}

	fetcher, err := newFetcher(cfg, redisClient)
	if err != nil {
		return err
	}

	// scroll keeps presenter reachable for as long as the tracker is driven
	presenter := &statusPresenter{logger: logger}
	weakPresenter := tracker.Weak(presenter)
	tcfg := tracker.Config{PageSize: cfg.Tracker.PageSize}

	var tr *tracker.Tracker[record, struct{}]
	if redisClient != nil {
		s := store.New(redisClient, store.Options{TTL: cfg.Cache.TTL})
		repo := store.NewRepository[record, struct{}](s, listName(cfg.Source.URL), httpfetch.Func[record, struct{}](fetcher), struct{}{})
		tr = tracker.NewFromRepository[record, struct{}](repo, weakPresenter, tcfg)
	} else {
		tr = tracker.New(httpfetch.Func[record, struct{}](fetcher), struct{}{}, weakPresenter, tcfg)
	}
	defer tr.Close()

	if _, err := tr.Reset(ctx, opts.forceRefresh); err != nil {
		return fmt.Errorf("load first page: %w", err)
	}

	return scroll(ctx, tr, presenter, opts, out, logger)
}

func newFetcher(cfg *config.Config, redisClient *redis.Client) (*httpfetch.Fetcher[record], error) {
	fcfg := httpfetch.DefaultConfig(cfg.Source.URL)
	fcfg.Envelope = pagination.ParseEnvelope(cfg.Source.ItemsField, cfg.Source.NextField)
	fcfg.UserAgent = cfg.Source.UserAgent
	fcfg.Headers = cfg.Source.Headers
	fcfg.Timeout = cfg.Source.Timeout
	fcfg.Retry.MaxAttempts = cfg.Source.MaxRetries + 1

	if cfg.RateLimit.Enabled && redisClient != nil {
		fcfg.Limiter = ratelimit.NewLimiter(redisClient, hostOf(cfg.Source.URL), ratelimit.Options{
			BlockThreshold:    cfg.RateLimit.BlockThreshold,
			ThrottleThreshold: cfg.RateLimit.ThrottleThreshold,
			ThrottleDelay:     cfg.RateLimit.ThrottleDelay,
		}, logging.NewLogger(logging.ComponentHTTP))
	}

	f, err := httpfetch.New[record](fcfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", config.ErrInvalidConfig, err)
	}
	return f, nil
}

// scroll moves a single-section view down opts.step rows at a time and
// reports every position to the tracker. Items are printed as soon as they
// are loaded.
func scroll(ctx context.Context, tr *tracker.Tracker[record, struct{}], presenter *statusPresenter, opts scrollOptions, out io.Writer, logger zerolog.Logger) error {
	printed := 0
	row := 0

	for {
		items := tr.Items()
		for ; printed < len(items); printed++ {
			if opts.maxItems > 0 && printed >= opts.maxItems {
				logger.Info().Int("items", printed).Msg("Item limit reached")
				return nil
			}
			if err := writeRecord(out, items[printed]); err != nil {
				return err
			}
		}
		if opts.maxItems > 0 && printed >= opts.maxItems {
			logger.Info().Int("items", printed).Msg("Item limit reached")
			return nil
		}

		total := len(items)
		if row >= total {
			if !tr.HasMore() {
				logger.Info().
					Int("items", total).
					Int("pages", len(tr.Pages())).
					Msg("End of data")
				return nil
			}
			// scrolled past the loaded rows without reaching the trigger
			if _, err := tr.LoadNextPage(ctx); err != nil {
				return err
			}
			continue
		}

		tr.Track(grid.At(0, row), grid.Static{total})
		if err := tr.Wait(ctx); err != nil {
			return err
		}
		if err := presenter.Err(); err != nil {
			return err
		}

		row += opts.step
	}
}

func writeRecord(out io.Writer, item record) error {
	var buf bytes.Buffer
	if err := json.Compact(&buf, item); err != nil {
		return fmt.Errorf("compact item: %w", err)
	}
	buf.WriteByte('\n')
	if _, err := out.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("write item: %w", err)
	}
	return nil
}

// listName identifies the list in cache keys: host and path of the first
// page, without the query.
func listName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return u.Host + u.Path
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "default"
	}
	return u.Host
}

// statusPresenter logs loading state and keeps the last error of a
// background fetch for the scroll loop.
type statusPresenter struct {
	logger zerolog.Logger

	mu    sync.Mutex
	loads int
	err   error
}

func (p *statusPresenter) StartLoading() {
	p.mu.Lock()
	p.loads++
	loads := p.loads
	p.mu.Unlock()

	p.logger.Debug().Int("load", loads).Msg("Loading page")
}

func (p *statusPresenter) EndLoading(err error) {
	p.mu.Lock()
	p.err = err
	p.mu.Unlock()

	if err != nil {
		p.logger.Warn().Err(err).Msg("Page load failed")
	}
}

// Err returns the error of the latest finished load.
func (p *statusPresenter) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

func (p *statusPresenter) Loads() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loads
}
