// Package profiler - timing and counter statistics for long running inference
// loops, reported periodically through the process logger.
package profiler

import (
	"context"
	"runtime"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"github.com/nvr-ai/go-alpr/logger"
)

// Options configures a Profiler.
type Options struct {
	// ReportInterval specifies how often to emit status reports (default: 10s).
	// A negative interval disables periodic reports.
	ReportInterval time.Duration
	// MaxSamples specifies how many recent samples each tracker keeps (default: 600).
	MaxSamples int
	// Logger receives the reports. Nil uses the process logger.
	Logger *zap.Logger
}

// tracker keeps a sliding window of samples plus lifetime extremes.
type tracker struct {
	values []float64
	min    float64
	max    float64
	count  int64
}

func (t *tracker) add(v float64, limit int) {
	if t.count == 0 || v < t.min {
		t.min = v
	}
	if t.count == 0 || v > t.max {
		t.max = v
	}
	t.count++
	t.values = append(t.values, v)
	if len(t.values) > limit {
		t.values = t.values[len(t.values)-limit:]
	}
}

// Summary describes one metric or operation.
type Summary struct {
	Count int64   `json:"count"`
	Mean  float64 `json:"mean"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	P95   float64 `json:"p95"`
}

func (t *tracker) summary() Summary {
	s := Summary{Count: t.count, Min: t.min, Max: t.max}
	if len(t.values) == 0 {
		return s
	}
	sorted := append([]float64(nil), t.values...)
	sort.Float64s(sorted)
	s.Mean = stat.Mean(sorted, nil)
	s.P95 = stat.Quantile(0.95, stat.Empirical, sorted, nil)
	return s
}

// Stats is a snapshot of a Profiler. Operation timings are in milliseconds.
type Stats struct {
	Uptime     time.Duration      `json:"uptime"`
	Goroutines int                `json:"goroutines"`
	HeapAlloc  uint64             `json:"heap_alloc"`
	Operations map[string]Summary `json:"operations"`
	Metrics    map[string]Summary `json:"metrics"`
}

// Profiler tracks operation durations and custom metrics. It is safe for
// concurrent use.
type Profiler struct {
	interval   time.Duration
	maxSamples int
	log        *zap.Logger

	mu         sync.RWMutex
	start      time.Time
	operations map[string]*tracker
	metrics    map[string]*tracker

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a profiler. Call Start to enable periodic reports.
func New(opts Options) *Profiler {
	if opts.ReportInterval == 0 {
		opts.ReportInterval = 10 * time.Second
	}
	if opts.MaxSamples <= 0 {
		opts.MaxSamples = 600
	}
	log := opts.Logger
	if log == nil {
		log = logger.Log()
	}
	return &Profiler{
		interval:   opts.ReportInterval,
		maxSamples: opts.MaxSamples,
		log:        log.Named("profiler"),
		start:      time.Now(),
		operations: make(map[string]*tracker),
		metrics:    make(map[string]*tracker),
	}
}

// Start emits a report every interval until ctx is done or Stop is called.
// Calling Start on a running profiler is a no-op.
func (p *Profiler) Start(ctx context.Context) {
	if p.interval < 0 {
		return
	}
	p.mu.Lock()
	if p.cancel != nil {
		p.mu.Unlock()
		return
	}
	ctx, p.cancel = context.WithCancel(ctx)
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.Report()
			}
		}
	}()
}

// Stop ends periodic reports and waits for the reporter to exit.
func (p *Profiler) Stop() {
	p.mu.Lock()
	cancel := p.cancel
	p.cancel = nil
	p.mu.Unlock()

	if cancel != nil {
		cancel()
		p.wg.Wait()
	}
}

// StartOperation begins timing an operation.
//
// Arguments:
// - name: The name of the operation to track
//
// Returns:
// - A function to call when the operation completes
func (p *Profiler) StartOperation(name string) func() {
	start := time.Now()
	return func() {
		p.RecordDuration(name, time.Since(start))
	}
}

// RecordDuration records one completed operation.
func (p *Profiler) RecordDuration(name string, d time.Duration) {
	p.record(p.operations, name, float64(d)/float64(time.Millisecond))
}

// RecordMetric records a custom metric value.
func (p *Profiler) RecordMetric(name string, value float64) {
	p.record(p.metrics, name, value)
}

func (p *Profiler) record(into map[string]*tracker, name string, v float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	t, ok := into[name]
	if !ok {
		t = &tracker{values: make([]float64, 0, 16)}
		into[name] = t
	}
	t.add(v, p.maxSamples)
}

// Snapshot returns the current statistics.
func (p *Profiler) Snapshot() Stats {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	p.mu.RLock()
	defer p.mu.RUnlock()

	s := Stats{
		Uptime:     time.Since(p.start),
		Goroutines: runtime.NumGoroutine(),
		HeapAlloc:  mem.HeapAlloc,
		Operations: make(map[string]Summary, len(p.operations)),
		Metrics:    make(map[string]Summary, len(p.metrics)),
	}
	for name, t := range p.operations {
		s.Operations[name] = t.summary()
	}
	for name, t := range p.metrics {
		s.Metrics[name] = t.summary()
	}
	return s
}

// Report logs the current statistics, one entry per tracker.
func (p *Profiler) Report() {
	s := p.Snapshot()
	p.log.Info("status",
		zap.Duration("uptime", s.Uptime.Truncate(time.Millisecond)),
		zap.Int("goroutines", s.Goroutines),
		zap.Uint64("heap_alloc", s.HeapAlloc))

	for _, name := range sortedKeys(s.Operations) {
		o := s.Operations[name]
		p.log.Info("operation",
			zap.String("name", name),
			zap.Int64("count", o.Count),
			zap.Float64("mean_ms", o.Mean),
			zap.Float64("p95_ms", o.P95),
			zap.Float64("max_ms", o.Max))
	}
	for _, name := range sortedKeys(s.Metrics) {
		m := s.Metrics[name]
		p.log.Info("metric",
			zap.String("name", name),
			zap.Int64("count", m.Count),
			zap.Float64("mean", m.Mean),
			zap.Float64("min", m.Min),
			zap.Float64("max", m.Max))
	}
}

func sortedKeys(m map[string]Summary) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
