package prometheus

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/MrEthical07/folioauth"
	"github.com/MrEthical07/folioauth/metrics/export/internaldefs"
)

type metricsSource interface {
	MetricsSnapshot() folioauth.MetricsSnapshot
	AuditDropped() uint64
}

// PrometheusExporter renders engine metrics in Prometheus text exposition format.
type PrometheusExporter struct {
	source metricsSource
}

// NewPrometheusExporter reads from engine on every scrape.
func NewPrometheusExporter(engine *folioauth.Engine) *PrometheusExporter {
	return &PrometheusExporter{source: engine}
}

// NewPrometheusExporterFromSource reads from any snapshot source.
func NewPrometheusExporterFromSource(source metricsSource) *PrometheusExporter {
	return &PrometheusExporter{source: source}
}

// Handler serves Render with the Prometheus text content type.
func (p *PrometheusExporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		_, _ = io.WriteString(w, p.Render())
	})
}

// Render returns the current metrics. It returns "" when metrics are disabled and nothing was
// dropped.
func (p *PrometheusExporter) Render() string {
	if p == nil || p.source == nil {
		return ""
	}

	snap := p.source.MetricsSnapshot()
	dropped := p.source.AuditDropped()
	if len(snap.Counters) == 0 && len(snap.Histograms) == 0 && dropped == 0 {
		return ""
	}

	var b strings.Builder
	for _, f := range internaldefs.Families {
		header(&b, f.Name, f.Help, "counter")
		for _, s := range f.Series {
			if f.Label == "" {
				fmt.Fprintf(&b, "%s %d\n", f.Name, snap.Counters[s.ID])
				continue
			}
			fmt.Fprintf(&b, "%s{%s=%q} %d\n", f.Name, f.Label, s.Value, snap.Counters[s.ID])
		}
	}

	labels := internaldefs.BucketLabels()
	for _, h := range internaldefs.Histograms {
		header(&b, h.Name, h.Help, "histogram")
		cum := internaldefs.Cumulative(snap.Histograms[h.ID])
		for i, le := range labels {
			fmt.Fprintf(&b, "%s_bucket{le=%q} %d\n", h.Name, le, cum[i])
		}
		// buckets only, no running sum
		fmt.Fprintf(&b, "%s_sum 0\n%s_count %d\n", h.Name, h.Name, cum[len(cum)-1])
	}

	header(&b, internaldefs.AuditDroppedName, "Audit events dropped by a full dispatcher buffer.", "counter")
	fmt.Fprintf(&b, "%s %d\n", internaldefs.AuditDroppedName, dropped)

	return b.String()
}

var helpEscaper = strings.NewReplacer(`\`, `\\`, "\n", `\n`)

func header(b *strings.Builder, name, help, typ string) {
	fmt.Fprintf(b, "# HELP %s %s\n# TYPE %s %s\n", name, helpEscaper.Replace(help), name, typ)
}
