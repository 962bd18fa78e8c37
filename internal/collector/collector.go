package collector

import (
	"context"
	"fmt"

	"pricecollector/config"
	"pricecollector/internal/ingest"
	"pricecollector/internal/metrics"
	"pricecollector/internal/schedule"
	"pricecollector/internal/snapshot"
	"pricecollector/internal/universe"
	"pricecollector/pkg/storage/sqlstore"
	"pricecollector/pkg/yahoo"

	"go.uber.org/zap"
)

// Collector holds the wired ingestion runner and the resources it owns.
type Collector struct {
	Runner *ingest.Runner

	cfg    *config.Config
	logger *zap.Logger
	mirror *sqlstore.Client
}

// New wires the symbol list, Yahoo provider, snapshot file store and the
// optional mirror and metrics sinks from cfg.
func New(cfg *config.Config, logger *zap.Logger) (*Collector, error) {
	delim, err := cfg.Store.DelimiterRune()
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Store.Location()
	if err != nil {
		return nil, err
	}

	source := &universe.FileSource{
		Path:   cfg.Symbols.Path,
		Column: cfg.Symbols.Column,
		Logger: logger,
	}

	token := config.ResolveSecret(cfg, logger)
	providerOpts := []yahoo.Option{
		yahoo.WithChartURL(cfg.Provider.ChartURL),
		yahoo.WithCookieURL(cfg.Provider.CookieURL),
		yahoo.WithCrumbURL(cfg.Provider.CrumbURL),
		yahoo.WithWorkers(cfg.Provider.Workers),
		yahoo.WithLogger(logger),
	}
	if token != cfg.Secret.Default {
		providerOpts = append(providerOpts, yahoo.WithToken(token))
	}
	provider := yahoo.NewRESTClient(cfg.Provider.Timeout, providerOpts...)

	store := snapshot.NewFileStore(cfg.Store.Path, delim, logger)
	merger := snapshot.Merger{
		MissingMarker: cfg.Store.MissingMarker,
		TimeLayout:    cfg.Store.TimeLayout,
		Location:      loc,
	}

	c := &Collector{cfg: cfg, logger: logger}
	var opts []ingest.Option

	if cfg.Mirror.Enabled {
		client, err := sqlstore.Open(cfg.Mirror, cfg.Log.Environment)
		if err != nil {
			// the file table stays authoritative; run without the mirror
			logger.Warn("snapshot mirror unavailable", zap.String("driver", cfg.Mirror.Driver), zap.Error(err))
		} else {
			c.mirror = client
			opts = append(opts, ingest.WithMirror(client))
		}
	}

	opts = append(opts, ingest.WithRecorder(metrics.New(cfg.Metrics.Textfile)))

	c.Runner = ingest.NewRunner(source, provider, store, merger, logger, opts...)
	return c, nil
}

// RunOnce performs a single ingestion cycle.
func (c *Collector) RunOnce(ctx context.Context) ingest.Outcome {
	return c.Runner.Run(ctx)
}

// Schedule runs the ingestion cycle on spec until ctx is cancelled.
func (c *Collector) Schedule(ctx context.Context, spec string, runAtStart bool) error {
	s := &schedule.Scheduler{
		Spec:       spec,
		RunAtStart: runAtStart,
		Logger:     c.logger,
		Job: func(ctx context.Context) {
			c.Runner.Run(ctx)
		},
	}
	if err := s.Run(ctx); err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}
	return nil
}

func (c *Collector) Close() error {
	if c.mirror != nil {
		return c.mirror.Close()
	}
	return nil
}
