package aggregator

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/weather-dashboard/internal/models"
	"github.com/kjstillabower/weather-dashboard/internal/observability"
)

// ErrNoData is returned by Render when the tracked list is non-empty but no city has data.
var ErrNoData = errors.New("no weather data available")

// CurrentFetcher is the slice of the weather client the aggregator needs.
type CurrentFetcher interface {
	FetchCurrent(ctx context.Context, city string) (models.WeatherRecord, error)
}

// OutcomeRecorder receives per-city results, e.g. for health error-rate tracking.
type OutcomeRecorder interface {
	RecordSuccess()
	RecordError()
}

// reasoner is implemented by fetch errors that carry a display cause.
type reasoner interface {
	Reason() string
}

// Outcome is the settled result of one city's fetch. Err == nil means success.
type Outcome struct {
	City   string
	Record models.WeatherRecord
	Err    error
}

// OK reports whether the fetch succeeded.
func (o Outcome) OK() bool { return o.Err == nil }

// Aggregator fans a batch of city fetches out and joins them into settled outcomes.
type Aggregator struct {
	fetcher  CurrentFetcher
	recorder OutcomeRecorder
	logger   *zap.Logger
}

// New returns an Aggregator. recorder and logger may be nil.
func New(fetcher CurrentFetcher, recorder OutcomeRecorder, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{fetcher: fetcher, recorder: recorder, logger: logger}
}

// Run fetches current weather for every city concurrently and waits for all of them.
// Outcomes are returned in request order and each is labelled with its requesting city,
// whatever order the fetches complete in. A failure never cancels or hides a sibling.
// Outcomes of a batch whose ctx was cancelled are not passed to the recorder.
func (a *Aggregator) Run(ctx context.Context, cities []string) []Outcome {
	start := time.Now()
	observability.AggregationBatchesTotal.Inc()
	logger := observability.LoggerFromContext(ctx, a.logger)

	outcomes := make([]Outcome, len(cities))
	var wg sync.WaitGroup
	for i, city := range cities {
		wg.Add(1)
		go func(i int, city string) {
			defer wg.Done()
			rec, err := a.fetcher.FetchCurrent(ctx, city)
			outcomes[i] = Outcome{City: city, Record: rec, Err: err}
		}(i, city)
	}
	wg.Wait()

	cancelled := errors.Is(ctx.Err(), context.Canceled)
	for _, o := range outcomes {
		result := "success"
		if !o.OK() {
			result = "failure"
		}
		observability.AggregationOutcomesTotal.WithLabelValues(result).Inc()
		if a.recorder == nil || cancelled {
			continue
		}
		if o.OK() {
			a.recorder.RecordSuccess()
		} else {
			a.recorder.RecordError()
		}
	}

	failures := Failures(outcomes)
	for _, o := range failures {
		fields := []zap.Field{zap.String("city", o.City), zap.Error(o.Err)}
		var r reasoner
		if errors.As(o.Err, &r) {
			fields = append(fields, zap.String("reason", r.Reason()))
		}
		logger.Warn("city fetch failed", fields...)
	}

	duration := time.Since(start)
	observability.AggregationBatchDuration.Observe(duration.Seconds())
	logger.Info("batch settled",
		zap.Int("cities", len(cities)),
		zap.Int("failed", len(failures)),
		zap.Duration("duration", duration))
	return outcomes
}

// Render keeps the successful outcomes whose city is still in tracked, in outcome order.
// Outcomes for cities no longer tracked are discarded. Render returns ErrNoData only when
// the batch covered at least one tracked city and every such fetch failed. Tracked cities
// the batch never fetched do not count toward that.
func Render(outcomes []Outcome, tracked []string) ([]Outcome, error) {
	current := make(map[string]struct{}, len(tracked))
	for _, c := range tracked {
		current[c] = struct{}{}
	}

	rendered := make([]Outcome, 0, len(outcomes))
	covered := 0
	for _, o := range outcomes {
		if _, ok := current[o.City]; !ok {
			observability.AggregationOutcomesTotal.WithLabelValues("discarded").Inc()
			continue
		}
		covered++
		if o.OK() {
			rendered = append(rendered, o)
		}
	}
	if covered > 0 && len(rendered) == 0 {
		observability.AggregationEmptyTotal.Inc()
		return rendered, ErrNoData
	}
	return rendered, nil
}

// Failures returns the failed outcomes, in outcome order.
func Failures(outcomes []Outcome) []Outcome {
	var out []Outcome
	for _, o := range outcomes {
		if !o.OK() {
			out = append(out, o)
		}
	}
	return out
}
