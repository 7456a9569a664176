package prometheus

import (
	"net/http"
	"strconv"
	"strings"

	identity "github.com/MrEthical07/goIdentity"
	"github.com/MrEthical07/goIdentity/metrics/export/internaldefs"
)

// Source is what a scrape reads. *identity.Manager implements it.
type Source interface {
	MetricsSnapshot() identity.MetricsSnapshot
	AuditDropped() uint64
	AuditFailed() uint64
	State() identity.SessionState
	EnrollmentState() identity.EnrollmentStatus
}

// PrometheusExporter renders manager metrics in Prometheus text exposition format.
type PrometheusExporter struct {
	source Source
}

// NewPrometheusExporter reads from m on every scrape.
func NewPrometheusExporter(m *identity.Manager) *PrometheusExporter {
	return &PrometheusExporter{source: m}
}

// NewPrometheusExporterFromSource reads from any [Source].
func NewPrometheusExporterFromSource(source Source) *PrometheusExporter {
	return &PrometheusExporter{source: source}
}

// Handler returns an http.Handler that serves Prometheus metrics.
func (p *PrometheusExporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		_, _ = w.Write([]byte(p.Render()))
	})
}

// Render writes the current metrics. Output is empty while the manager has
// metrics disabled and nothing was dropped or rejected by the audit sink.
func (p *PrometheusExporter) Render() string {
	if p == nil || p.source == nil {
		return ""
	}

	snapshot := p.source.MetricsSnapshot()
	dropped := p.source.AuditDropped()
	failed := p.source.AuditFailed()
	if len(snapshot.Counters) == 0 && len(snapshot.Histograms) == 0 && dropped == 0 && failed == 0 {
		return ""
	}

	var b strings.Builder
	b.Grow(8192)

	for _, def := range internaldefs.CounterDefs {
		writeCounter(&b, def.Name, def.Help, snapshot.Counters[def.ID])
	}

	for _, def := range internaldefs.HistogramDefs {
		nonCumulative := internaldefs.NormalizeBuckets(snapshot.Histograms[def.ID])
		cumulative := internaldefs.CumulativeBuckets(nonCumulative)
		writeHistogram(&b, def.Name, def.Help, cumulative)
	}

	writeCounter(&b, internaldefs.AuditDefs.Dropped.Name, internaldefs.AuditDefs.Dropped.Help, dropped)
	writeCounter(&b, internaldefs.AuditDefs.Failed.Name, internaldefs.AuditDefs.Failed.Help, failed)

	state := p.source.State()
	writeGauge(&b, internaldefs.SessionAuthenticatedName, internaldefs.SessionAuthenticatedHelp, internaldefs.Flag(state.User != nil))
	writeGauge(&b, internaldefs.SessionLoadingName, internaldefs.SessionLoadingHelp, internaldefs.Flag(state.Loading))
	writeEnrollment(&b, p.source.EnrollmentState().State)

	return b.String()
}

func writeHeader(b *strings.Builder, name, help, kind string) {
	b.WriteString("# HELP ")
	b.WriteString(name)
	b.WriteByte(' ')
	b.WriteString(escapeHelp(help))
	b.WriteByte('\n')
	b.WriteString("# TYPE ")
	b.WriteString(name)
	b.WriteByte(' ')
	b.WriteString(kind)
	b.WriteByte('\n')
}

func writeCounter(b *strings.Builder, name, help string, value uint64) {
	writeHeader(b, name, help, "counter")
	b.WriteString(name)
	b.WriteByte(' ')
	b.WriteString(strconv.FormatUint(value, 10))
	b.WriteByte('\n')
}

func writeGauge(b *strings.Builder, name, help string, value int64) {
	writeHeader(b, name, help, "gauge")
	b.WriteString(name)
	b.WriteByte(' ')
	b.WriteString(strconv.FormatInt(value, 10))
	b.WriteByte('\n')
}

// writeEnrollment emits one series per enrollment state; only the current
// one reads 1.
func writeEnrollment(b *strings.Builder, current string) {
	name := internaldefs.EnrollmentStateName
	writeHeader(b, name, internaldefs.EnrollmentStateHelp, "gauge")
	for _, s := range internaldefs.EnrollmentStates {
		b.WriteString(name)
		b.WriteByte('{')
		b.WriteString(internaldefs.EnrollmentStateLabel)
		b.WriteString("=\"")
		b.WriteString(s)
		b.WriteString("\"} ")
		b.WriteString(strconv.FormatInt(internaldefs.Flag(s == current), 10))
		b.WriteByte('\n')
	}
}

func writeHistogram(b *strings.Builder, name, help string, cumulative [8]uint64) {
	writeHeader(b, name, help, "histogram")

	for i, le := range internaldefs.HistogramBounds {
		b.WriteString(name)
		b.WriteString("_bucket{le=\"")
		b.WriteString(le)
		b.WriteString("\"} ")
		b.WriteString(strconv.FormatUint(cumulative[i], 10))
		b.WriteByte('\n')
	}

	count := cumulative[len(cumulative)-1]
	b.WriteString(name)
	b.WriteString("_count ")
	b.WriteString(strconv.FormatUint(count, 10))
	b.WriteByte('\n')

	// Snapshots carry bucket counts only.
	b.WriteString(name)
	b.WriteString("_sum 0\n")
}

func escapeHelp(help string) string {
	help = strings.ReplaceAll(help, "\\", "\\\\")
	help = strings.ReplaceAll(help, "\n", "\\n")
	return help
}
