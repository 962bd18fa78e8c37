package ingest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"pricecollector/internal/apperror"
	"pricecollector/internal/snapshot"
	"pricecollector/internal/universe"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SymbolSource supplies the symbols to track.
type SymbolSource interface {
	Symbols(ctx context.Context) ([]string, error)
}

// PriceProvider returns the latest prices for symbols. Symbols it has no
// data for are left out of the snapshot rather than failing the call.
type PriceProvider interface {
	Latest(ctx context.Context, symbols []string) (snapshot.PriceSnapshot, error)
}

// Store owns the persisted snapshot table.
type Store interface {
	Load() (snapshot.Table, error)
	Persist(snapshot.Table) error
}

// Mirror receives a copy of every committed snapshot.
type Mirror interface {
	SaveSnapshot(ctx context.Context, runID string, snap snapshot.PriceSnapshot) error
}

// Recorder observes finished runs.
type Recorder interface {
	Record(o Outcome) error
}

// Runner performs one sequential ingestion pass: symbols, prices, merge, persist.
// It never retries; a failed run leaves the stored table as it was.
type Runner struct {
	source   SymbolSource
	provider PriceProvider
	store    Store
	merger   snapshot.Merger
	logger   *zap.Logger

	mirror   Mirror
	recorder Recorder
	now      func() time.Time
	newID    func() string
}

type Option func(*Runner)

func WithMirror(m Mirror) Option     { return func(r *Runner) { r.mirror = m } }
func WithRecorder(rc Recorder) Option { return func(r *Runner) { r.recorder = rc } }
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}
func WithRunID(fn func() string) Option { return func(r *Runner) { r.newID = fn } }

func NewRunner(source SymbolSource, provider PriceProvider, store Store, merger snapshot.Merger,
	logger *zap.Logger, opts ...Option) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Runner{
		source:   source,
		provider: provider,
		store:    store,
		merger:   merger,
		logger:   logger,
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// run carries the state of a single pass.
type run struct {
	*Runner
	log     *zap.Logger
	state   State
	outcome Outcome
}

// Run executes one ingestion cycle and reports how it ended.
func (r *Runner) Run(ctx context.Context) Outcome {
	id := r.newID()
	cur := &run{
		Runner: r,
		log:    r.logger.With(zap.String("run_id", id)),
		state:  StateInit,
		outcome: Outcome{
			RunID:   id,
			Started: r.now(),
		},
	}

	cur.execute(ctx)

	cur.outcome.Finished = r.now()
	cur.report()

	if r.recorder != nil {
		if err := r.recorder.Record(cur.outcome); err != nil {
			cur.log.Warn("failed to record run metrics", zap.Error(err))
		}
	}
	return cur.outcome
}

func (c *run) execute(ctx context.Context) {
	// Init -> FetchingSymbols
	c.transition(StateFetchingSymbols)
	symbols, err := c.source.Symbols(ctx)
	if err != nil {
		c.fail(apperror.Configuration, "symbols.load", err)
		return
	}
	symbols = dedupe(symbols)
	if len(symbols) == 0 {
		c.fail(apperror.Configuration, "symbols.load", fmt.Errorf("symbol universe is empty"))
		return
	}
	c.outcome.Symbols = len(symbols)

	// FetchingSymbols -> FetchingPrices
	c.transition(StateFetchingPrices)
	snap, err := c.provider.Latest(ctx, symbols)
	if err != nil {
		c.fail(apperror.Provider, "prices.fetch", err)
		return
	}
	if snap.Captured.IsZero() {
		snap.Captured = c.now()
	}
	if len(snap.Order) == 0 {
		snap.Order = symbols
	}
	c.outcome.Missing = snap.Missing()
	if len(c.outcome.Missing) > 0 {
		c.log.Warn("snapshot is missing symbols",
			zap.Int("missing", len(c.outcome.Missing)),
			zap.Strings("symbols", c.outcome.Missing))
	}

	// FetchingPrices -> Persisting
	c.transition(StatePersisting)
	table, err := c.store.Load()
	if err != nil {
		c.fail(apperror.StoreCorrupt, "store.load", err)
		return
	}
	merged := c.merger.Merge(table, snap)
	if err := c.store.Persist(merged); err != nil {
		c.fail(apperror.Persistence, "store.persist", err)
		return
	}
	c.outcome.Columns = len(merged.Symbols)
	c.outcome.Rows = len(merged.Rows)

	// Persisting -> Done; the row is committed, later failures are warnings only
	c.transition(StateDone)
	c.outcome.State = StateDone
	c.outcome.Reason = fmt.Sprintf("appended snapshot of %d/%d symbols",
		len(snap.Prices), len(symbols))

	if c.mirror != nil {
		if err := c.mirror.SaveSnapshot(ctx, c.outcome.RunID, snap); err != nil {
			c.log.Warn("failed to mirror snapshot", zap.Error(err))
			c.outcome.Warnings = append(c.outcome.Warnings, "mirror: "+err.Error())
		}
	}
}

func (c *run) transition(next State) {
	c.log.Debug("state transition", zap.String("from", string(c.state)), zap.String("to", string(next)))
	c.state = next
}

// fail moves the run to Failed. Errors that already carry a Code keep it.
func (c *run) fail(code apperror.Code, op string, err error) {
	if apperror.CodeOf(err) == apperror.Unknown {
		err = apperror.Wrap(code, op, err)
	}
	c.outcome.State = StateFailed
	c.outcome.FailedIn = c.state
	c.outcome.Code = apperror.CodeOf(err)
	c.outcome.Err = err
	c.outcome.Reason = err.Error()
	c.state = StateFailed
}

func (c *run) report() {
	o := c.outcome
	if o.OK() {
		c.log.Info("ingestion run completed",
			zap.String("reason", o.Reason),
			zap.Int("columns", o.Columns),
			zap.Int("rows", o.Rows),
			zap.Duration("duration", o.Duration()))
		return
	}
	c.log.Error("ingestion run failed",
		zap.String("kind", string(o.Code)),
		zap.String("stage", string(o.FailedIn)),
		zap.Error(o.Err),
		zap.Duration("duration", o.Duration()))
}

func dedupe(symbols []string) []string {
	set := universe.NewSymbolSet()
	for _, s := range symbols {
		if s = strings.TrimSpace(s); s != "" {
			set.Add(s)
		}
	}
	return set.GetAll()
}
