package query

import (
	"context"
	"sync"
	"time"

	"estate-search/internal/common/logger"
	"estate-search/internal/common/metrics"
	"estate-search/internal/common/observability"
	"estate-search/internal/models"
)

// DefaultTimeout bounds one query when Config.Timeout is unset.
const DefaultTimeout = 5 * time.Second

type Config struct {
	Backend string
	Timeout time.Duration
}

// Outcome is the result of the most recent query.
type Outcome struct {
	Filters   models.FilterSet
	Result    *models.SearchResult
	Err       error
	Duration  time.Duration
	Completed time.Time
}

// Subscriber is the part of the filter store the Consumer follows.
type Subscriber interface {
	Subscribe(fn func(models.FilterSet)) (unsubscribe func())
}

// Consumer re-runs the search on every store mutation. Queries run
// synchronously on the mutating goroutine, so results are current as soon
// as the mutation returns.
type Consumer struct {
	config   *Config
	searcher Searcher
	obs      *observability.Observability
	logger   logger.Logger

	mu     sync.Mutex
	latest *Outcome
	runs   int
}

func NewConsumer(config *Config, searcher Searcher, obs *observability.Observability, log logger.Logger) *Consumer {
	if obs == nil {
		obs = observability.NewNoop()
	}
	return &Consumer{
		config:   config,
		searcher: searcher,
		obs:      obs,
		logger:   log.WithFields(map[string]interface{}{"component": "query-consumer", "backend": config.Backend}),
	}
}

// Attach runs the search on every mutation of s until the returned function
// is called.
func (c *Consumer) Attach(s Subscriber) (detach func()) {
	return s.Subscribe(func(f models.FilterSet) {
		c.Run(context.Background(), f)
	})
}

// Run executes one search for f and records it as the latest outcome.
func (c *Consumer) Run(ctx context.Context, f models.FilterSet) Outcome {
	timeout := c.config.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	result, err := c.searcher.Search(ctx, f)
	duration := time.Since(start)

	status := "ok"
	if err != nil {
		status = ErrorCode(err)
		c.logger.Warn("Search failed", map[string]interface{}{
			"error":      err.Error(),
			"code":       status,
			"durationMs": duration.Milliseconds(),
		})
	}
	metrics.SearchQueries.WithLabelValues(c.config.Backend, status).Inc()
	c.obs.RecordQuery(ctx, c.config.Backend, duration, status)

	out := Outcome{
		Filters:   f,
		Result:    result,
		Err:       err,
		Duration:  duration,
		Completed: time.Now(),
	}

	c.mu.Lock()
	c.latest = &out
	c.runs++
	c.mu.Unlock()
	return out
}

// Latest returns the most recent outcome and whether any query has run.
func (c *Consumer) Latest() (Outcome, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.latest == nil {
		return Outcome{}, false
	}
	return *c.latest, true
}

// Runs returns how many queries have been executed.
func (c *Consumer) Runs() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.runs
}
