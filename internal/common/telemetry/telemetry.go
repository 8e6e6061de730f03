// File path: internal/common/telemetry/telemetry.go
package telemetry

import (
	"context"
	"expvar"
	"sync"
	"time"

	"github.com/FilipDolejsi/JuriCode/internal/common"
)

type spanKey struct{}

type span struct {
	name  string
	start time.Time
}

var (
	initOnce sync.Once

	auditRunTotal      *expvar.Int
	auditFailureTotal  *expvar.Int
	auditStageLatency  *expvar.Map
	corpusSearchTotal  *expvar.Int
	corpusSearchMS     *expvar.Int
	graphBuildTotal    *expvar.Int
	graphNodesTotal    *expvar.Int
	hostRequestTotal   *expvar.Int
	hostRequestFailure *expvar.Int
)

func ensureInit() {
	initOnce.Do(func() {
		auditRunTotal = expvar.NewInt("juricode_audit_runs_total")
		auditFailureTotal = expvar.NewInt("juricode_audit_failures_total")
		auditStageLatency = expvar.NewMap("juricode_audit_stage_latency_ms")
		corpusSearchTotal = expvar.NewInt("juricode_corpus_search_total")
		corpusSearchMS = expvar.NewInt("juricode_corpus_search_latency_ms")
		graphBuildTotal = expvar.NewInt("juricode_graph_builds_total")
		graphNodesTotal = expvar.NewInt("juricode_graph_nodes_total")
		hostRequestTotal = expvar.NewInt("juricode_host_requests_total")
		hostRequestFailure = expvar.NewInt("juricode_host_request_failures_total")
	})
}

// StartSpan records a debug trace span around an operation. The returned
// function finishes the span and logs its duration with optional attributes.
func StartSpan(ctx context.Context, name string) (context.Context, func(attrs ...interface{})) {
	ensureInit()
	sp := &span{name: name, start: time.Now()}
	ctx = context.WithValue(ctx, spanKey{}, sp)
	logger := common.Logger()
	logger.Debug("trace: start", "span", name)
	return ctx, func(attrs ...interface{}) {
		duration := time.Since(sp.start)
		logger.Debug("trace: end", append([]interface{}{"span", name, "dur", duration}, attrs...)...)
	}
}

// RecordAuditRun counts one full multi-category audit run.
func RecordAuditRun(failed bool) {
	ensureInit()
	auditRunTotal.Add(1)
	if failed {
		auditFailureTotal.Add(1)
	}
}

// RecordStage accumulates per-stage latency keyed by stage name.
func RecordStage(stage string, elapsed time.Duration) {
	ensureInit()
	auditStageLatency.Add(stage, elapsed.Milliseconds())
}

// RecordCorpusSearch counts one vector similarity query against the corpus.
func RecordCorpusSearch(elapsed time.Duration) {
	ensureInit()
	corpusSearchTotal.Add(1)
	corpusSearchMS.Add(elapsed.Milliseconds())
}

// RecordGraphBuild counts one knowledge-graph build and its node yield.
func RecordGraphBuild(nodes int) {
	ensureInit()
	graphBuildTotal.Add(1)
	graphNodesTotal.Add(int64(nodes))
}

// RecordHostRequest counts one Git-hosting API round trip.
func RecordHostRequest(err error) {
	ensureInit()
	hostRequestTotal.Add(1)
	if err != nil {
		hostRequestFailure.Add(1)
	}
}
