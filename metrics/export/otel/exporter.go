package otel

import (
	"context"
	"errors"
	"fmt"

	identity "github.com/MrEthical07/goIdentity"
	"github.com/MrEthical07/goIdentity/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

// Source is what each collection reads. *identity.Manager implements it.
type Source interface {
	MetricsSnapshot() identity.MetricsSnapshot
	AuditDropped() uint64
	AuditFailed() uint64
	State() identity.SessionState
	EnrollmentState() identity.EnrollmentStatus
}

type observedCounter struct {
	id         identity.MetricID
	instrument metric.Int64ObservableCounter
}

type observedHistogram struct {
	id      identity.MetricID
	buckets [8]metric.Int64ObservableGauge
	count   metric.Int64ObservableGauge
}

// OTelExporter bridges manager metrics to an OpenTelemetry meter.
type OTelExporter struct {
	source        Source
	registration  metric.Registration
	counters      []observedCounter
	histograms    []observedHistogram
	auditDropped  metric.Int64ObservableCounter
	auditFailed   metric.Int64ObservableCounter
	authenticated metric.Int64ObservableGauge
	loading       metric.Int64ObservableGauge
	enrollment    metric.Int64ObservableGauge
	enrollStates  []metric.ObserveOption
}

// NewOTelExporter registers observable instruments on meter that read m's
// counters on each collection.
func NewOTelExporter(meter metric.Meter, m *identity.Manager) (*OTelExporter, error) {
	return NewOTelExporterFromSource(meter, m)
}

// NewOTelExporterFromSource registers instruments that read source.
func NewOTelExporterFromSource(meter metric.Meter, source Source) (*OTelExporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	exporter := &OTelExporter{
		source:     source,
		counters:   make([]observedCounter, 0, len(internaldefs.CounterDefs)),
		histograms: make([]observedHistogram, 0, len(internaldefs.HistogramDefs)),
	}

	observables := make([]metric.Observable, 0, len(internaldefs.CounterDefs)+len(internaldefs.HistogramDefs)*9+5)

	for _, def := range internaldefs.CounterDefs {
		ins, err := meter.Int64ObservableCounter(def.Name, metric.WithDescription(def.Help))
		if err != nil {
			return nil, fmt.Errorf("create observable counter %s: %w", def.Name, err)
		}
		exporter.counters = append(exporter.counters, observedCounter{id: def.ID, instrument: ins})
		observables = append(observables, ins)
	}

	for _, def := range internaldefs.HistogramDefs {
		h := observedHistogram{id: def.ID}
		for i := 0; i < len(internaldefs.HistogramBoundSuffix); i++ {
			name := def.Name + "_bucket_le_" + internaldefs.HistogramBoundSuffix[i]
			ins, err := meter.Int64ObservableGauge(name, metric.WithDescription("Cumulative histogram bucket count."))
			if err != nil {
				return nil, fmt.Errorf("create histogram bucket gauge %s: %w", name, err)
			}
			h.buckets[i] = ins
			observables = append(observables, ins)
		}
		countName := def.Name + "_count"
		countIns, err := meter.Int64ObservableGauge(countName, metric.WithDescription("Histogram total sample count."))
		if err != nil {
			return nil, fmt.Errorf("create histogram count gauge %s: %w", countName, err)
		}
		h.count = countIns
		observables = append(observables, countIns)
		exporter.histograms = append(exporter.histograms, h)
	}

	var err error
	if exporter.auditDropped, err = meter.Int64ObservableCounter(
		internaldefs.AuditDefs.Dropped.Name,
		metric.WithDescription(internaldefs.AuditDefs.Dropped.Help),
	); err != nil {
		return nil, fmt.Errorf("create audit dropped counter: %w", err)
	}
	if exporter.auditFailed, err = meter.Int64ObservableCounter(
		internaldefs.AuditDefs.Failed.Name,
		metric.WithDescription(internaldefs.AuditDefs.Failed.Help),
	); err != nil {
		return nil, fmt.Errorf("create audit failure counter: %w", err)
	}
	if exporter.authenticated, err = meter.Int64ObservableGauge(
		internaldefs.SessionAuthenticatedName,
		metric.WithDescription(internaldefs.SessionAuthenticatedHelp),
	); err != nil {
		return nil, fmt.Errorf("create session gauge: %w", err)
	}
	if exporter.loading, err = meter.Int64ObservableGauge(
		internaldefs.SessionLoadingName,
		metric.WithDescription(internaldefs.SessionLoadingHelp),
	); err != nil {
		return nil, fmt.Errorf("create loading gauge: %w", err)
	}
	if exporter.enrollment, err = meter.Int64ObservableGauge(
		internaldefs.EnrollmentStateName,
		metric.WithDescription(internaldefs.EnrollmentStateHelp),
	); err != nil {
		return nil, fmt.Errorf("create enrollment gauge: %w", err)
	}
	for _, state := range internaldefs.EnrollmentStates {
		exporter.enrollStates = append(exporter.enrollStates,
			metric.WithAttributes(attribute.String(internaldefs.EnrollmentStateLabel, state)))
	}
	observables = append(observables,
		exporter.auditDropped, exporter.auditFailed,
		exporter.authenticated, exporter.loading, exporter.enrollment)

	registration, err := meter.RegisterCallback(func(_ context.Context, observer metric.Observer) error {
		snapshot := exporter.source.MetricsSnapshot()
		for _, c := range exporter.counters {
			observer.ObserveInt64(c.instrument, int64(snapshot.Counters[c.id]))
		}
		for _, h := range exporter.histograms {
			nonCumulative := internaldefs.NormalizeBuckets(snapshot.Histograms[h.id])
			cumulative := internaldefs.CumulativeBuckets(nonCumulative)
			for i := 0; i < len(cumulative); i++ {
				observer.ObserveInt64(h.buckets[i], int64(cumulative[i]))
			}
			observer.ObserveInt64(h.count, int64(cumulative[len(cumulative)-1]))
		}
		observer.ObserveInt64(exporter.auditDropped, int64(exporter.source.AuditDropped()))
		observer.ObserveInt64(exporter.auditFailed, int64(exporter.source.AuditFailed()))

		state := exporter.source.State()
		observer.ObserveInt64(exporter.authenticated, internaldefs.Flag(state.User != nil))
		observer.ObserveInt64(exporter.loading, internaldefs.Flag(state.Loading))
		current := exporter.source.EnrollmentState().State
		for i, s := range internaldefs.EnrollmentStates {
			observer.ObserveInt64(exporter.enrollment, internaldefs.Flag(s == current), exporter.enrollStates[i])
		}
		return nil
	}, observables...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}

	exporter.registration = registration
	return exporter, nil
}

// Close unregisters the collection callback.
func (e *OTelExporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
