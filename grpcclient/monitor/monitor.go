/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package monitor

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/acronis/go-rpcinvoker/config"
	"github.com/acronis/go-rpcinvoker/log"
	"github.com/acronis/go-rpcinvoker/service"
)

// ParamIntervalSeconds is the reference parameter holding the flush interval in seconds.
const ParamIntervalSeconds = "monitorinterval"

// DefaultInterval is used when ParamIntervalSeconds is not set.
const DefaultInterval = 60 * time.Second

// Stats contains aggregated observations for one service method since the last flush.
type Stats struct {
	ServiceName    string
	MethodName     string
	RemoteAddress  string
	Calls          int
	Failures       int
	Fallbacks      int
	Rejected       int
	Attempts       int
	MaxConcurrency int32
	TotalElapsed   time.Duration
	MaxElapsed     time.Duration
}

// Monitor aggregates call observations and flushes them periodically to the log.
// Every observation is also forwarded to the optional Prometheus collector.
type Monitor struct {
	logger log.FieldLogger
	prom   *PrometheusMetrics

	mu    sync.Mutex
	stats map[string]*Stats
}

var _ Sink = (*Monitor)(nil)
var _ service.Worker = (*Monitor)(nil)

// NewMonitor creates a new Monitor. Both arguments may be nil.
func NewMonitor(logger log.FieldLogger, prom *PrometheusMetrics) *Monitor {
	if logger == nil {
		logger = log.NewDisabledLogger()
	}
	return &Monitor{logger: logger, prom: prom, stats: make(map[string]*Stats)}
}

// IncInFlightCalls implements Sink.
func (m *Monitor) IncInFlightCalls(serviceName, methodName string) {
	if m.prom != nil {
		m.prom.IncInFlightCalls(serviceName, methodName)
	}
}

// DecInFlightCalls implements Sink.
func (m *Monitor) DecInFlightCalls(serviceName, methodName string) {
	if m.prom != nil {
		m.prom.DecInFlightCalls(serviceName, methodName)
	}
}

// ObserveCall implements Sink.
func (m *Monitor) ObserveCall(obs CallObservation) {
	if m.prom != nil {
		m.prom.ObserveCall(obs)
	}
	elapsed := time.Since(obs.StartTime)

	m.mu.Lock()
	defer m.mu.Unlock()
	key := obs.ServiceName + ":" + obs.MethodName
	st, ok := m.stats[key]
	if !ok {
		st = &Stats{ServiceName: obs.ServiceName, MethodName: obs.MethodName}
		m.stats[key] = st
	}
	st.Calls++
	switch obs.Outcome {
	case OutcomeFailure:
		st.Failures++
	case OutcomeFallback:
		st.Fallbacks++
	case OutcomeRejected:
		st.Rejected++
	}
	st.Attempts += obs.Attempts
	if obs.RemoteAddress != "" {
		st.RemoteAddress = obs.RemoteAddress
	}
	if obs.Concurrency > st.MaxConcurrency {
		st.MaxConcurrency = obs.Concurrency
	}
	st.TotalElapsed += elapsed
	if elapsed > st.MaxElapsed {
		st.MaxElapsed = elapsed
	}
}

// Snapshot returns the observations aggregated since the last flush, sorted by service and method.
func (m *Monitor) Snapshot() []Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Monitor) snapshotLocked() []Stats {
	res := make([]Stats, 0, len(m.stats))
	for _, st := range m.stats {
		res = append(res, *st)
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].ServiceName != res[j].ServiceName {
			return res[i].ServiceName < res[j].ServiceName
		}
		return res[i].MethodName < res[j].MethodName
	})
	return res
}

// Flush logs the aggregated observations and resets them.
func (m *Monitor) Flush() []Stats {
	m.mu.Lock()
	flushed := m.snapshotLocked()
	m.stats = make(map[string]*Stats)
	m.mu.Unlock()

	for i := range flushed {
		st := &flushed[i]
		var avg time.Duration
		if st.Calls > 0 {
			avg = st.TotalElapsed / time.Duration(st.Calls)
		}
		m.logger.Info("rpc client call stats",
			log.String("service", st.ServiceName),
			log.String("method", st.MethodName),
			log.String("remote_address", st.RemoteAddress),
			log.Int("calls", st.Calls),
			log.Int("failures", st.Failures),
			log.Int("fallbacks", st.Fallbacks),
			log.Int("rejected", st.Rejected),
			log.Int("attempts", st.Attempts),
			log.Int32("max_concurrency", st.MaxConcurrency),
			log.Duration("avg_elapsed", avg),
			log.Duration("max_elapsed", st.MaxElapsed),
		)
	}
	return flushed
}

// Run implements service.Worker. Each run flushes the aggregated observations.
func (m *Monitor) Run(_ context.Context) error {
	m.Flush()
	return nil
}

// NewWorkerUnit returns a service.Unit that flushes the monitor every interval.
// The last flush happens when the unit is stopped. Prometheus metrics (if any) are registered
// via the unit's MustRegisterMetrics.
func (m *Monitor) NewWorkerUnit(interval time.Duration) *service.WorkerUnit {
	pw := service.NewPeriodicWorkerWithOpts(m, interval, m.logger, service.PeriodicWorkerOpts{
		InitialDelay: interval,
		RunOnStop:    true,
	})
	opts := service.WorkerUnitOpts{}
	if m.prom != nil {
		opts.MetricsRegisterer = m.prom
	}
	return service.NewWorkerUnitWithOpts(pw, opts)
}

// IntervalFromParams reads the flush interval (in seconds) from reference parameters.
func IntervalFromParams(params config.DataProvider) (time.Duration, error) {
	if params == nil || !params.IsSet(ParamIntervalSeconds) {
		return DefaultInterval, nil
	}
	secs, err := params.GetInt(ParamIntervalSeconds)
	if err != nil {
		return 0, err
	}
	if secs <= 0 {
		return 0, params.WrapKeyErr(ParamIntervalSeconds, fmt.Errorf("should be > 0"))
	}
	return time.Duration(secs) * time.Second, nil
}
