package otel

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/folioauth"
	"github.com/MrEthical07/folioauth/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

type metricsSource interface {
	MetricsSnapshot() folioauth.MetricsSnapshot
	AuditDropped() uint64
}

// point is one observation: instrument, snapshot id and the attributes it is reported with.
type point struct {
	counter metric.Int64ObservableCounter
	id      folioauth.MetricID
	attrs   metric.ObserveOption
}

type histogram struct {
	id      folioauth.MetricID
	buckets metric.Int64ObservableGauge
	count   metric.Int64ObservableCounter
	les     []metric.ObserveOption
}

// OTelExporter publishes engine metrics as observable instruments on a caller-owned meter.
type OTelExporter struct {
	source       metricsSource
	registration metric.Registration
	points       []point
	histograms   []histogram
	auditDropped metric.Int64ObservableCounter
}

// NewOTelExporter registers one callback on meter that reads engine's snapshot per collection.
func NewOTelExporter(meter metric.Meter, engine *folioauth.Engine) (*OTelExporter, error) {
	return NewOTelExporterFromSource(meter, engine)
}

func NewOTelExporterFromSource(meter metric.Meter, source metricsSource) (*OTelExporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	e := &OTelExporter{source: source}
	var instruments []metric.Observable

	for _, f := range internaldefs.Families {
		c, err := meter.Int64ObservableCounter(f.Name, metric.WithDescription(f.Help))
		if err != nil {
			return nil, fmt.Errorf("create counter %s: %w", f.Name, err)
		}
		instruments = append(instruments, c)
		for _, s := range f.Series {
			var attrs attribute.Set
			if f.Label != "" {
				attrs = attribute.NewSet(attribute.String(f.Label, s.Value))
			}
			e.points = append(e.points, point{counter: c, id: s.ID, attrs: metric.WithAttributeSet(attrs)})
		}
	}

	labels := internaldefs.BucketLabels()
	for _, def := range internaldefs.Histograms {
		h := histogram{id: def.ID}
		var err error
		h.buckets, err = meter.Int64ObservableGauge(def.Name+"_bucket",
			metric.WithDescription(def.Help+" Cumulative count per upper bound."),
			metric.WithUnit("{request}"))
		if err != nil {
			return nil, fmt.Errorf("create bucket gauge %s: %w", def.Name, err)
		}
		h.count, err = meter.Int64ObservableCounter(def.Name+"_count", metric.WithDescription(def.Help+" Sample count."))
		if err != nil {
			return nil, fmt.Errorf("create count %s: %w", def.Name, err)
		}
		for _, le := range labels {
			h.les = append(h.les, metric.WithAttributes(attribute.String("le", le)))
		}
		instruments = append(instruments, h.buckets, h.count)
		e.histograms = append(e.histograms, h)
	}

	var err error
	e.auditDropped, err = meter.Int64ObservableCounter(internaldefs.AuditDroppedName,
		metric.WithDescription("Audit events dropped by a full dispatcher buffer."))
	if err != nil {
		return nil, fmt.Errorf("create audit dropped counter: %w", err)
	}
	instruments = append(instruments, e.auditDropped)

	e.registration, err = meter.RegisterCallback(e.observe, instruments...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}
	return e, nil
}

func (e *OTelExporter) observe(_ context.Context, o metric.Observer) error {
	snap := e.source.MetricsSnapshot()
	for _, p := range e.points {
		o.ObserveInt64(p.counter, int64(snap.Counters[p.id]), p.attrs)
	}
	for _, h := range e.histograms {
		cum := internaldefs.Cumulative(snap.Histograms[h.id])
		for i, le := range h.les {
			o.ObserveInt64(h.buckets, int64(cum[i]), le)
		}
		o.ObserveInt64(h.count, int64(cum[len(cum)-1]))
	}
	o.ObserveInt64(e.auditDropped, int64(e.source.AuditDropped()))
	return nil
}

// Close unregisters the callback.
func (e *OTelExporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
