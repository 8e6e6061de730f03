// File path: internal/audit/pipeline_test.go
package audit

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/FilipDolejsi/JuriCode/internal/corpus"
	"github.com/FilipDolejsi/JuriCode/internal/githost"
	"github.com/FilipDolejsi/JuriCode/internal/llm"
	"github.com/FilipDolejsi/JuriCode/internal/selector"
)

// scriptedProvider replays queued ChatJSON responses in order.
type scriptedProvider struct {
	jsonResponses []string
	jsonCalls     int
	chatResponse  string
	failAtCall    int
}

func (s *scriptedProvider) Chat(ctx context.Context, messages []llm.Message) (string, error) {
	if s.chatResponse == "" {
		return "chat-response", nil
	}
	return s.chatResponse, nil
}

func (s *scriptedProvider) ChatJSON(ctx context.Context, messages []llm.Message) (string, error) {
	s.jsonCalls++
	if s.failAtCall > 0 && s.jsonCalls == s.failAtCall {
		return "", fmt.Errorf("completion service unavailable")
	}
	if len(s.jsonResponses) == 0 {
		return "{}", nil
	}
	next := s.jsonResponses[0]
	s.jsonResponses = s.jsonResponses[1:]
	return next, nil
}

func (s *scriptedProvider) Embed(ctx context.Context, input []string) ([][]float32, error) {
	out := make([][]float32, len(input))
	for i := range input {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

func (s *scriptedProvider) Name() string { return "scripted" }

type fakeRetriever struct {
	passages      []corpus.Passage
	calls         int
	lastQuery     string
	lastThreshold float64
	lastK         int
}

func (f *fakeRetriever) Retrieve(ctx context.Context, query string, threshold float64, k int) ([]corpus.Passage, error) {
	f.calls++
	f.lastQuery = query
	f.lastThreshold = threshold
	f.lastK = k
	return f.passages, nil
}

type fakeContentSelector struct {
	records      []selector.FileRecord
	stakeholders []selector.Stakeholder
	err          error
}

func (f *fakeContentSelector) Select(ctx context.Context, criterion selector.Criterion, ref githost.RepositoryRef) ([]selector.FileRecord, []selector.Stakeholder, error) {
	if f.err != nil {
		return nil, nil, f.err
	}
	return f.records, f.stakeholders, nil
}

var pipelineRef = githost.RepositoryRef{Owner: "acme", Name: "scoring"}

const detectionApplicable = `{"applicable":true,"analysis":"README mentions credit scoring"}`
const detectionNotApplicable = `{"applicable":false,"analysis":"plain utility library"}`
const forensicHighRisk = `{"classification":"High Risk","risk_score":0.82,"citation":"Annex III(5)(b)","offending_file":"main.py","summary":"Credit scoring without human oversight."}`

func newTestPipeline(t *testing.T, provider *scriptedProvider, retriever *fakeRetriever, sel ContentSelector) *Pipeline {
	t.Helper()
	pipeline, err := NewPipeline(provider, retriever, sel)
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}
	return pipeline
}

func TestPipelineRunsStagesInOrder(t *testing.T) {
	provider := &scriptedProvider{jsonResponses: []string{detectionApplicable, forensicHighRisk}}
	retriever := &fakeRetriever{passages: []corpus.Passage{{Content: "Annex III(5)(b): credit scoring systems"}}}
	sel := &fakeContentSelector{
		records: []selector.FileRecord{{Path: "README.md", Content: "# credit scoring"}},
		stakeholders: []selector.Stakeholder{{
			File: "README.md", Author: "Alice",
			Timestamp: time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
		}},
	}
	pipeline := newTestPipeline(t, provider, retriever, sel)

	var stages []string
	result, err := pipeline.Run(context.Background(), pipelineRef, CategoryRisk, func(stage string) {
		stages = append(stages, stage)
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	wantStages := []string{StageDetection, StageRetrieval, StageForensic, StageSynthesis}
	if len(stages) != len(wantStages) {
		t.Fatalf("expected stages %v, got %v", wantStages, stages)
	}
	for i, stage := range wantStages {
		if stages[i] != stage {
			t.Fatalf("stage %d: expected %s, got %s", i, stage, stages[i])
		}
	}
	if result.Verdict.Classification != ClassificationHighRisk {
		t.Fatalf("unexpected classification %q", result.Verdict.Classification)
	}
	if !strings.Contains(result.Report, "Annex III(5)(b)") {
		t.Fatalf("report missing citation: %q", result.Report)
	}
	if !strings.Contains(result.Report, "Alice") {
		t.Fatalf("report missing stakeholder attribution: %q", result.Report)
	}
	if retriever.calls != 1 {
		t.Fatalf("expected one retrieval call, got %d", retriever.calls)
	}
	if retriever.lastThreshold != 0.40 || retriever.lastK != 2 {
		t.Fatalf("unexpected retrieval parameters: threshold=%f k=%d", retriever.lastThreshold, retriever.lastK)
	}
	if retriever.lastQuery != "README mentions credit scoring" {
		t.Fatalf("expected detection analysis as query, got %q", retriever.lastQuery)
	}
}

func TestPipelineShortCircuitsWhenNotApplicable(t *testing.T) {
	provider := &scriptedProvider{jsonResponses: []string{
		detectionNotApplicable,
		`{"classification":"Compliant","risk_score":0.05,"citation":"Article 6","summary":"Outside Annex III scope."}`,
	}}
	retriever := &fakeRetriever{passages: []corpus.Passage{{Content: "should not be used"}}}
	sel := &fakeContentSelector{records: []selector.FileRecord{{Path: "README.md", Content: "# tools"}}}
	pipeline := newTestPipeline(t, provider, retriever, sel)

	result, err := pipeline.Run(context.Background(), pipelineRef, CategoryRisk, nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if retriever.calls != 0 {
		t.Fatalf("expected corpus query to be skipped, got %d calls", retriever.calls)
	}
	if len(result.Passages) != 1 || !strings.Contains(result.Passages[0].Content, "Article 6") {
		t.Fatalf("expected default citation passage, got %+v", result.Passages)
	}
}

func TestPipelineAbortsWholeCategoryOnStageError(t *testing.T) {
	provider := &scriptedProvider{jsonResponses: []string{detectionApplicable}, failAtCall: 2}
	retriever := &fakeRetriever{}
	sel := &fakeContentSelector{records: []selector.FileRecord{{Path: "README.md", Content: "# x"}}}
	pipeline := newTestPipeline(t, provider, retriever, sel)

	result, err := pipeline.Run(context.Background(), pipelineRef, CategoryRisk, nil)
	if err == nil {
		t.Fatalf("expected stage error to abort the run, got result %+v", result)
	}
	if !strings.Contains(err.Error(), "forensic comparison stage") {
		t.Fatalf("expected forensic stage error, got %v", err)
	}
}

func TestPipelineRejectsMalformedVerdict(t *testing.T) {
	provider := &scriptedProvider{jsonResponses: []string{detectionApplicable, "this is not a verdict"}}
	pipeline := newTestPipeline(t, provider, &fakeRetriever{}, &fakeContentSelector{})

	if _, err := pipeline.Run(context.Background(), pipelineRef, CategoryRisk, nil); err == nil {
		t.Fatalf("expected malformed verdict to abort the run")
	}
}

func TestPipelineAttributesUnknownStakeholder(t *testing.T) {
	provider := &scriptedProvider{jsonResponses: []string{detectionApplicable, forensicHighRisk}}
	retriever := &fakeRetriever{passages: []corpus.Passage{{Content: "rule"}}}
	pipeline := newTestPipeline(t, provider, retriever, &fakeContentSelector{})

	result, err := pipeline.Run(context.Background(), pipelineRef, CategoryRisk, nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(result.Report, "Primary stakeholder: Unknown") {
		t.Fatalf("expected Unknown attribution, got %q", result.Report)
	}
}
