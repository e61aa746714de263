package prometheus

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/sessiongate/sessiongate"
	"github.com/sessiongate/sessiongate/metrics/export/internaldefs"
)

// Source is the read side of an engine's metrics.
type Source interface {
	MetricsSnapshot() sessiongate.MetricsSnapshot
	AuditDropped() uint64
}

// Exporter renders a Source on demand.
type Exporter struct {
	source Source
}

// NewExporter returns an exporter reading from source, usually a
// *sessiongate.Engine.
func NewExporter(source Source) *Exporter {
	return &Exporter{source: source}
}

// Handler serves Render output.
func (p *Exporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		_, _ = w.Write([]byte(p.Render()))
	})
}

// Render returns the current metrics. It returns "" when metrics are
// disabled on the engine.
func (p *Exporter) Render() string {
	if p == nil || p.source == nil {
		return ""
	}

	snapshot := p.source.MetricsSnapshot()
	dropped := p.source.AuditDropped()
	if len(snapshot.Counters) == 0 && len(snapshot.Histograms) == 0 && dropped == 0 {
		return ""
	}

	var b strings.Builder
	b.Grow(4096)

	for _, def := range internaldefs.CounterDefs {
		writeCounter(&b, def.Name, def.Help, snapshot.Counters[def.ID])
	}
	for _, def := range internaldefs.HistogramDefs {
		buckets, ok := snapshot.Histograms[def.ID]
		if !ok {
			continue
		}
		writeHistogram(&b, def.Name, def.Help, internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(buckets)))
	}
	writeCounter(&b, internaldefs.AuditDropped.Name, internaldefs.AuditDropped.Help, dropped)

	return b.String()
}

func writeHeader(b *strings.Builder, name, help, kind string) {
	fmt.Fprintf(b, "# HELP %s %s\n# TYPE %s %s\n", name, escapeHelp(help), name, kind)
}

func writeCounter(b *strings.Builder, name, help string, value uint64) {
	writeHeader(b, name, help, "counter")
	fmt.Fprintf(b, "%s %d\n", name, value)
}

// writeHistogram emits bucket counts only; the engine does not track a
// latency sum, so _sum is always 0.
func writeHistogram(b *strings.Builder, name, help string, cumulative [8]uint64) {
	writeHeader(b, name, help, "histogram")
	for i, le := range internaldefs.HistogramBounds {
		fmt.Fprintf(b, "%s_bucket{le=%q} %d\n", name, le, cumulative[i])
	}
	fmt.Fprintf(b, "%s_count %d\n%s_sum 0\n", name, cumulative[len(cumulative)-1], name)
}

var helpEscaper = strings.NewReplacer(`\`, `\\`, "\n", `\n`)

func escapeHelp(help string) string {
	return helpEscaper.Replace(help)
}
