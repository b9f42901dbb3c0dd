package dashboard

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/weather-dashboard/internal/aggregator"
	"github.com/kjstillabower/weather-dashboard/internal/cities"
	"github.com/kjstillabower/weather-dashboard/internal/models"
	"github.com/kjstillabower/weather-dashboard/internal/observability"
	"github.com/kjstillabower/weather-dashboard/internal/units"
)

const msgNoData = "No weather data available."

// defaultBatchTimeout bounds a batch started by a list change.
const defaultBatchTimeout = 10 * time.Second

// Card is one rendered city on the dashboard.
type Card struct {
	City        string `json:"city"`
	DisplayName string `json:"displayName"`
	Description string `json:"description"`
	IconURL     string `json:"iconUrl"`
	Temp        string `json:"temp"`
	FeelsLike   string `json:"feelsLike"`
	TempMin     string `json:"tempMin"`
	TempMax     string `json:"tempMax"`
	HumidityPct int    `json:"humidityPct"`
}

// View is the dashboard page model.
type View struct {
	Unit    units.Unit `json:"unit"`
	Cities  []string   `json:"cities"`
	Cards   []Card     `json:"cards"`
	Error   string     `json:"error,omitempty"`
	Loading bool       `json:"loading"`
}

// Dashboard owns the tracked city list, the unit preference and the last applied batch.
// AddCity, RemoveCity and SetUnit are the only mutation entry points.
type Dashboard struct {
	list   *cities.List
	agg    *aggregator.Aggregator
	logger *zap.Logger

	batchTimeout time.Duration

	gen atomic.Uint64

	mu       sync.RWMutex
	unit     units.Unit
	records  []models.WeatherRecord
	recCity  []string
	noData   bool
	applied  uint64
	anyBatch bool

	subsMu  sync.Mutex
	subs    map[int]func(View)
	nextSub int
}

// New returns a Dashboard over list. Call Refresh once to load the initial batch.
func New(list *cities.List, agg *aggregator.Aggregator, unit units.Unit, logger *zap.Logger) *Dashboard {
	if logger == nil {
		logger = zap.NewNop()
	}
	if unit != units.Celsius {
		unit = units.Fahrenheit
	}
	observability.TrackedCities.Set(float64(list.Len()))
	return &Dashboard{
		list:   list,
		agg:    agg,
		logger:       logger,
		batchTimeout: defaultBatchTimeout,
		unit:         unit,
		subs:         make(map[int]func(View)),
	}
}

// SetBatchTimeout sets the deadline for batches started by AddCity and RemoveCity.
func (d *Dashboard) SetBatchTimeout(t time.Duration) {
	if t > 0 {
		d.batchTimeout = t
	}
}

// Cities returns the tracked list, most recent first.
func (d *Dashboard) Cities() []string {
	return d.list.Snapshot()
}

// Unit returns the current unit preference.
func (d *Dashboard) Unit() units.Unit {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.unit
}

// AddCity tracks name and refreshes. Rejected names leave the list and results untouched.
func (d *Dashboard) AddCity(ctx context.Context, name string) (string, error) {
	added, err := d.list.Add(name)
	if err != nil {
		return "", err
	}
	observability.TrackedCities.Set(float64(d.list.Len()))
	observability.LoggerFromContext(ctx, d.logger).Info("city added", zap.String("city", added))
	d.refreshAfterChange(ctx)
	return added, nil
}

// RemoveCity stops tracking every exact match of name. Removing an untracked city is a
// no-op and does not refresh. Returns whether anything was removed.
func (d *Dashboard) RemoveCity(ctx context.Context, name string) bool {
	if !d.list.Remove(name) {
		return false
	}
	observability.TrackedCities.Set(float64(d.list.Len()))
	observability.LoggerFromContext(ctx, d.logger).Info("city removed", zap.String("city", name))
	d.refreshAfterChange(ctx)
	return true
}

// SetUnit changes the display unit. It never fetches; already-fetched data is re-rendered.
func (d *Dashboard) SetUnit(u units.Unit) bool {
	d.mu.Lock()
	changed := d.unit != u
	d.unit = u
	d.mu.Unlock()
	if changed {
		observability.UnitChangesTotal.WithLabelValues(string(u)).Inc()
		d.notify()
	}
	return changed
}

// refreshAfterChange runs the batch for a list change. The batch is shared by every
// viewer, so it is detached from the caller's cancellation and bounded by batchTimeout.
func (d *Dashboard) refreshAfterChange(ctx context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.batchTimeout)
	defer cancel()
	if err := d.Refresh(ctx); err != nil && !errors.Is(err, aggregator.ErrNoData) {
		observability.LoggerFromContext(ctx, d.logger).Warn("refresh failed", zap.Error(err))
	}
}

// Refresh runs one batch over a snapshot of the tracked list and applies it.
// Returns aggregator.ErrNoData when no tracked city has data. A batch whose ctx was
// cancelled is discarded and ctx.Err() is returned.
func (d *Dashboard) Refresh(ctx context.Context) error {
	gen := d.gen.Add(1)
	outcomes := d.agg.Run(ctx, d.list.Snapshot())
	if err := ctx.Err(); errors.Is(err, context.Canceled) {
		observability.LoggerFromContext(ctx, d.logger).Debug("cancelled batch discarded", zap.Uint64("batch", gen))
		return err
	}
	return d.apply(gen, outcomes)
}

// apply replaces the result set with outcomes, filtered against the tracked list as it
// is now rather than when the batch started. A batch older than the one already applied
// is dropped.
func (d *Dashboard) apply(gen uint64, outcomes []aggregator.Outcome) error {
	d.mu.Lock()
	if gen < d.applied {
		d.mu.Unlock()
		d.logger.Debug("stale batch discarded", zap.Uint64("batch", gen), zap.Uint64("applied", d.applied))
		return nil
	}
	rendered, err := aggregator.Render(outcomes, d.list.Snapshot())
	d.records = make([]models.WeatherRecord, 0, len(rendered))
	d.recCity = make([]string, 0, len(rendered))
	for _, o := range rendered {
		d.records = append(d.records, o.Record)
		d.recCity = append(d.recCity, o.City)
	}
	d.noData = errors.Is(err, aggregator.ErrNoData)
	d.applied = gen
	d.anyBatch = true
	d.mu.Unlock()

	d.notify()
	return err
}

// View renders the last applied batch in the current unit.
func (d *Dashboard) View() View {
	tracked := d.list.Snapshot()
	current := make(map[string]struct{}, len(tracked))
	for _, c := range tracked {
		current[c] = struct{}{}
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	v := View{
		Unit:   d.unit,
		Cities: tracked,
		Cards:  make([]Card, 0, len(d.records)),
	}
	for i, r := range d.records {
		if _, ok := current[d.recCity[i]]; !ok {
			continue
		}
		v.Cards = append(v.Cards, Card{
			City:        d.recCity[i],
			DisplayName: r.CityName,
			Description: r.Description,
			IconURL:     models.IconURL(r.IconID),
			Temp:        units.Format(r.TempF, d.unit),
			FeelsLike:   units.Format(r.FeelsLikeF, d.unit),
			TempMin:     units.Format(r.TempMinF, d.unit),
			TempMax:     units.Format(r.TempMaxF, d.unit),
			HumidityPct: r.HumidityPct,
		})
	}
	if d.noData && len(tracked) > 0 {
		v.Error = msgNoData
	}
	v.Loading = !d.anyBatch && len(tracked) > 0
	return v
}

// Subscribe registers fn to receive the view after every applied batch and unit change.
// The returned func unregisters it.
func (d *Dashboard) Subscribe(fn func(View)) func() {
	d.subsMu.Lock()
	id := d.nextSub
	d.nextSub++
	d.subs[id] = fn
	d.subsMu.Unlock()
	return func() {
		d.subsMu.Lock()
		delete(d.subs, id)
		d.subsMu.Unlock()
	}
}

func (d *Dashboard) notify() {
	d.subsMu.Lock()
	fns := make([]func(View), 0, len(d.subs))
	for _, fn := range d.subs {
		fns = append(fns, fn)
	}
	d.subsMu.Unlock()
	if len(fns) == 0 {
		return
	}
	v := d.View()
	for _, fn := range fns {
		fn(v)
	}
}
