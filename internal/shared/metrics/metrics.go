// Package metrics keeps process-wide analysis counters and renders them in
// the Prometheus text exposition format.
package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/gin-gonic/gin"
)

var (
	analysesStarted   atomic.Uint64
	analysesCompleted atomic.Uint64
	archiveFailures   atomic.Uint64

	failuresByKind = newLabeledCounter()

	analysisDuration = newHistogram([]float64{250, 500, 1000, 2000, 5000, 10000, 30000, 60000, 120000})
	llmDuration      = newHistogram([]float64{250, 500, 1000, 2000, 5000, 10000, 30000, 60000, 120000})
)

// IncAnalysisStarted counts a submission that passed request parsing.
func IncAnalysisStarted() { analysesStarted.Add(1) }

// IncAnalysisCompleted counts a persisted analysis.
func IncAnalysisCompleted() { analysesCompleted.Add(1) }

// IncAnalysisFailed counts a failed analysis under the given kind label.
func IncAnalysisFailed(kind string) { failuresByKind.Inc(kind) }

// IncArchiveFailed counts uploads that could not be archived.
func IncArchiveFailed() { archiveFailures.Add(1) }

// ObserveAnalysisDurationMs records end-to-end pipeline time.
func ObserveAnalysisDurationMs(ms float64) { analysisDuration.Observe(clamp(ms)) }

// ObserveLLMDurationMs records provider round-trip time.
func ObserveLLMDurationMs(ms float64) { llmDuration.Observe(clamp(ms)) }

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Data(http.StatusOK, "text/plain; version=0.0.4; charset=utf-8", []byte(Render()))
	}
}

// Render renders all metrics in Prometheus text format.
func Render() string {
	var buf bytes.Buffer
	writeCounter(&buf, "jobjeeves_analyses_started_total", "Analyses submitted", analysesStarted.Load())
	writeCounter(&buf, "jobjeeves_analyses_completed_total", "Analyses persisted", analysesCompleted.Load())
	writeLabeledCounter(&buf, "jobjeeves_analyses_failed_total", "Analyses failed by kind", "kind", failuresByKind.Snapshot())
	writeCounter(&buf, "jobjeeves_archive_failures_total", "Uploads that could not be archived", archiveFailures.Load())
	writeHistogram(&buf, "jobjeeves_analysis_duration_ms", "End-to-end analysis duration in milliseconds", analysisDuration.Snapshot())
	writeHistogram(&buf, "jobjeeves_llm_duration_ms", "LLM provider call duration in milliseconds", llmDuration.Snapshot())
	return buf.String()
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

type labeledCounter struct {
	mu     sync.Mutex
	values map[string]uint64
}

func newLabeledCounter() *labeledCounter {
	return &labeledCounter{values: make(map[string]uint64)}
}

func (l *labeledCounter) Inc(label string) {
	if label == "" {
		label = "unknown"
	}
	l.mu.Lock()
	l.values[label]++
	l.mu.Unlock()
}

func (l *labeledCounter) Snapshot() map[string]uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]uint64, len(l.values))
	for k, v := range l.values {
		out[k] = v
	}
	return out
}

type histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

type histogramSnapshot struct {
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

func newHistogram(buckets []float64) *histogram {
	return &histogram{buckets: buckets, counts: make([]uint64, len(buckets))}
}

// Observe stores value in the first bucket whose bound it does not exceed;
// cumulative counts are computed on render.
func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	idx := sort.SearchFloat64s(h.buckets, value)
	if idx < len(h.counts) {
		h.counts[idx]++
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
}

func writeCounter(buf *bytes.Buffer, name, help string, value uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n# TYPE %s counter\n%s %d\n", name, help, name, name, value)
}

func writeLabeledCounter(buf *bytes.Buffer, name, help, label string, values map[string]uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n# TYPE %s counter\n", name, help, name)
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(buf, "%s{%s=%q} %d\n", name, label, k, values[k])
	}
}

func writeHistogram(buf *bytes.Buffer, name, help string, snap histogramSnapshot) {
	fmt.Fprintf(buf, "# HELP %s %s\n# TYPE %s histogram\n", name, help, name)
	var cumulative uint64
	for i, bound := range snap.buckets {
		cumulative += snap.counts[i]
		fmt.Fprintf(buf, "%s_bucket{le=\"%s\"} %d\n", name, formatFloat(bound), cumulative)
	}
	fmt.Fprintf(buf, "%s_bucket{le=\"+Inf\"} %d\n", name, snap.count)
	fmt.Fprintf(buf, "%s_sum %s\n", name, formatFloat(snap.sum))
	fmt.Fprintf(buf, "%s_count %d\n", name, snap.count)
}

func formatFloat(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
