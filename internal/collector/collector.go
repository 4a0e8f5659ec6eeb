package collector

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"sshwatch/internal/config"
	"sshwatch/internal/exclude"
	"sshwatch/internal/model"
	"sshwatch/internal/parse"
	"sshwatch/internal/stats"
	"sshwatch/internal/storage"
)

// LineSource feeds the collector raw log lines. tail.Reader is the real
// implementation; tests inject their own.
type LineSource interface {
	Poll() ([]string, error)
	Close() error
}

// Counters are cumulative pipeline diagnostics since process start.
type Counters struct {
	Recorded   uint64 `json:"recorded"`
	ParseSkips uint64 `json:"parse_skips"`
	Excluded   uint64 `json:"excluded"`
	Accepted   uint64 `json:"accepted"`
	PollErrors uint64 `json:"poll_errors"`
}

// Collector owns the poll -> parse -> filter -> aggregate -> emit pipeline.
// Exactly one goroutine runs the tick loop; everything it mutates is private
// to that loop, and the outside world only ever sees frozen snapshots.
type Collector struct {
	cfg     *config.Config
	source  LineSource
	parser  *parse.Parser
	filter  *exclude.Filter
	stats   *stats.Store
	archive storage.Store
	logger  *slog.Logger

	subs   []func(model.Snapshot)
	latest atomic.Value

	recorded   atomic.Uint64
	parseSkips atomic.Uint64
	excluded   atomic.Uint64
	accepted   atomic.Uint64
	pollErrors atomic.Uint64
}

func New(cfg *config.Config, source LineSource, filter *exclude.Filter, statsStore *stats.Store, archive storage.Store, logger *slog.Logger) *Collector {
	return &Collector{
		cfg:     cfg,
		source:  source,
		parser:  parse.NewParser(),
		filter:  filter,
		stats:   statsStore,
		archive: archive,
		logger:  logger,
	}
}

// Subscribe registers a snapshot consumer. Must be called before Run; each
// subscriber is invoked once per tick, in registration order.
func (c *Collector) Subscribe(fn func(model.Snapshot)) {
	c.subs = append(c.subs, fn)
}

// Latest returns the most recently emitted snapshot, or a zeroed snapshot if
// no tick has completed yet.
func (c *Collector) Latest() model.Snapshot {
	if v := c.latest.Load(); v != nil {
		return v.(model.Snapshot)
	}
	return model.Snapshot{
		TopUsers: []model.UserCount{},
		TopIPs:   []model.IPCount{},
		Hourly:   []model.HourCount{},
	}
}

func (c *Collector) Stats() Counters {
	return Counters{
		Recorded:   c.recorded.Load(),
		ParseSkips: c.parseSkips.Load(),
		Excluded:   c.excluded.Load(),
		Accepted:   c.accepted.Load(),
		PollErrors: c.pollErrors.Load(),
	}
}

// Run drives the pipeline until ctx is cancelled. Cancellation is checked
// between ticks only, so an in-flight tick always completes before return.
func (c *Collector) Run(ctx context.Context) {
	interval := c.cfg.Collector.TickInterval
	if interval <= 0 {
		interval = 3 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			c.tick(now)
		}
	}
}

// tick drains every currently available line, folds the survivors into the
// aggregate store, and emits one snapshot regardless of whether anything new
// arrived. A failure on one line never aborts the rest of the tick.
func (c *Collector) tick(now time.Time) {
	lines, err := c.source.Poll()
	if err != nil {
		c.pollErrors.Add(1)
		if c.logger != nil {
			c.logger.Warn("log poll failed", "path", c.cfg.Tail.Path, "err", err)
		}
	}
	for _, line := range lines {
		attempt, ok := c.parser.Parse(line, now)
		if !ok {
			c.parseSkips.Add(1)
			continue
		}
		if c.filter.Excluded(attempt.SourceIP) {
			c.excluded.Add(1)
			continue
		}
		if !attempt.Outcome.Counted() {
			c.accepted.Add(1)
			continue
		}
		c.stats.Record(attempt)
		c.recorded.Add(1)
		if c.archive != nil {
			if err := c.archive.SaveAttempt(context.Background(), attempt); err != nil && c.logger != nil {
				c.logger.Warn("archive attempt failed", "err", err)
			}
		}
	}

	snap := c.stats.Snapshot(c.cfg.Collector.TopN, now)
	c.latest.Store(snap)
	for _, fn := range c.subs {
		fn(snap)
	}
	if c.archive != nil {
		if err := c.archive.SaveSnapshot(context.Background(), snap); err != nil && c.logger != nil {
			c.logger.Warn("archive snapshot failed", "err", err)
		}
	}
}
