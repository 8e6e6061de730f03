// File path: internal/audit/pipeline.go
package audit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	lgraph "github.com/tmc/langgraphgo/graph"

	"github.com/FilipDolejsi/JuriCode/internal/common"
	"github.com/FilipDolejsi/JuriCode/internal/common/telemetry"
	"github.com/FilipDolejsi/JuriCode/internal/corpus"
	"github.com/FilipDolejsi/JuriCode/internal/githost"
	"github.com/FilipDolejsi/JuriCode/internal/llm"
	"github.com/FilipDolejsi/JuriCode/internal/selector"
)

// Stage names, in execution order. No backward transitions, no retries.
const (
	StageDetection = "detection"
	StageRetrieval = "retrieval"
	StageForensic  = "forensic"
	StageSynthesis = "synthesis"
)

// PassageRetriever is the corpus lookup consumed by the retrieval stage.
type PassageRetriever interface {
	Retrieve(ctx context.Context, query string, threshold float64, k int) ([]corpus.Passage, error)
}

// ContentSelector abstracts the file selection so tests can substitute
// fixtures for the hosting API.
type ContentSelector interface {
	Select(ctx context.Context, criterion selector.Criterion, ref githost.RepositoryRef) ([]selector.FileRecord, []selector.Stakeholder, error)
}

// Result is the full outcome of one category pipeline run.
type Result struct {
	Category     Category               `json:"category"`
	Detection    string                 `json:"detection"`
	Passages     []corpus.Passage       `json:"passages"`
	Verdict      Verdict                `json:"verdict"`
	Report       string                 `json:"report"`
	Stakeholders []selector.Stakeholder `json:"stakeholders,omitempty"`
}

// Pipeline runs the four-phase audit state machine for one category:
// Detection, Similarity Retrieval, Forensic Comparison, Synthesis. Stages are
// strictly sequential; any stage error aborts the whole category run.
type Pipeline struct {
	provider  llm.Provider
	retriever PassageRetriever
	selector  ContentSelector
}

func NewPipeline(provider llm.Provider, retriever PassageRetriever, sel ContentSelector) (*Pipeline, error) {
	if provider == nil {
		return nil, errors.New("pipeline requires an llm provider")
	}
	if retriever == nil {
		return nil, errors.New("pipeline requires a passage retriever")
	}
	if sel == nil {
		return nil, errors.New("pipeline requires a content selector")
	}
	return &Pipeline{provider: provider, retriever: retriever, selector: sel}, nil
}

type runState struct {
	cfg         categoryConfig
	contextText string
	detection   detectionOutcome
	result      *Result
	progress    func(stage string)
}

// Run executes the pipeline for one category. The optional progress callback
// fires at the start of each stage.
func (p *Pipeline) Run(ctx context.Context, ref githost.RepositoryRef, category Category, progress func(stage string)) (*Result, error) {
	logger := common.Logger()
	cfg, err := category.config()
	if err != nil {
		return nil, err
	}
	ctx, finish := telemetry.StartSpan(ctx, "audit."+string(category))
	defer finish()

	records, stakeholders, err := p.selector.Select(ctx, cfg.Criterion, ref)
	if err != nil {
		return nil, fmt.Errorf("select content: %w", err)
	}
	state := &runState{
		cfg:         cfg,
		contextText: selector.BuildContext(records),
		result:      &Result{Category: category, Stakeholders: stakeholders},
		progress:    progress,
	}
	logger.Info("audit: pipeline starting", "category", string(category), "repo", ref.String(), "files", len(records))

	g := lgraph.NewMessageGraph()
	g.AddNode(StageDetection, p.detectionNode(state))
	g.AddNode(StageRetrieval, p.retrievalNode(state))
	g.AddNode(StageForensic, p.forensicNode(state))
	g.AddNode(StageSynthesis, p.synthesisNode(state))
	g.AddNode(lgraph.END, func(_ context.Context, messages []llms.MessageContent) ([]llms.MessageContent, error) {
		return messages, nil
	})
	g.AddEdge(StageDetection, StageRetrieval)
	g.AddEdge(StageRetrieval, StageForensic)
	g.AddEdge(StageForensic, StageSynthesis)
	g.AddEdge(StageSynthesis, lgraph.END)
	g.SetEntryPoint(StageDetection)

	runnable, err := g.Compile()
	if err != nil {
		return nil, fmt.Errorf("compile pipeline graph: %w", err)
	}
	initial := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, cfg.DetectionPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, "Analyze this codebase:\n"+state.contextText),
	}
	if _, err := runnable.Invoke(ctx, initial); err != nil {
		logger.Warn("audit: pipeline aborted", "category", string(category), "error", err)
		return nil, err
	}
	logger.Info("audit: pipeline complete", "category", string(category), "classification", state.result.Verdict.Classification)
	return state.result, nil
}

func (p *Pipeline) detectionNode(state *runState) func(context.Context, []llms.MessageContent) ([]llms.MessageContent, error) {
	return func(ctx context.Context, messages []llms.MessageContent) ([]llms.MessageContent, error) {
		state.report(StageDetection)
		start := time.Now()
		raw, err := p.provider.ChatJSON(ctx, []llm.Message{
			{Role: "system", Content: state.cfg.DetectionPrompt},
			{Role: "user", Content: "Analyze this codebase:\n" + state.contextText},
		})
		telemetry.RecordStage(StageDetection, time.Since(start))
		if err != nil {
			return nil, fmt.Errorf("detection stage: %w", err)
		}
		state.detection = parseDetection(raw)
		state.result.Detection = state.detection.Analysis
		return append(messages, llms.TextParts(llms.ChatMessageTypeAI, state.detection.Analysis)), nil
	}
}

func (p *Pipeline) retrievalNode(state *runState) func(context.Context, []llms.MessageContent) ([]llms.MessageContent, error) {
	return func(ctx context.Context, messages []llms.MessageContent) ([]llms.MessageContent, error) {
		state.report(StageRetrieval)
		if !state.detection.Applicable {
			// Cost-saving branch: skip the corpus query and pin the
			// category's default citation.
			state.result.Passages = []corpus.Passage{{Content: state.cfg.DefaultCitation}}
			return append(messages, llms.TextParts(llms.ChatMessageTypeSystem, "Legal context:\n"+state.cfg.DefaultCitation)), nil
		}
		start := time.Now()
		passages, err := p.retriever.Retrieve(ctx, state.detection.Analysis, state.cfg.Threshold, state.cfg.TopK)
		telemetry.RecordStage(StageRetrieval, time.Since(start))
		if err != nil {
			return nil, fmt.Errorf("similarity retrieval stage: %w", err)
		}
		state.result.Passages = passages
		return append(messages, llms.TextParts(llms.ChatMessageTypeSystem, "Legal context:\n"+joinPassages(passages))), nil
	}
}

func (p *Pipeline) forensicNode(state *runState) func(context.Context, []llms.MessageContent) ([]llms.MessageContent, error) {
	return func(ctx context.Context, messages []llms.MessageContent) ([]llms.MessageContent, error) {
		state.report(StageForensic)
		start := time.Now()
		prompt := fmt.Sprintf("LEGAL RULES:\n%s\n\nTECHNICAL ANALYSIS:\n%s\n\nCODEBASE CONTEXT:\n%s",
			joinPassages(state.result.Passages), state.detection.Analysis, state.contextText)
		raw, err := p.provider.ChatJSON(ctx, []llm.Message{
			{Role: "system", Content: state.cfg.ForensicPrompt},
			{Role: "user", Content: prompt},
		})
		telemetry.RecordStage(StageForensic, time.Since(start))
		if err != nil {
			return nil, fmt.Errorf("forensic comparison stage: %w", err)
		}
		verdict, err := ParseVerdict(raw)
		if err != nil {
			return nil, fmt.Errorf("forensic comparison stage: %w", err)
		}
		state.result.Verdict = verdict
		return append(messages, llms.TextParts(llms.ChatMessageTypeAI, verdict.Summary)), nil
	}
}

func (p *Pipeline) synthesisNode(state *runState) func(context.Context, []llms.MessageContent) ([]llms.MessageContent, error) {
	return func(ctx context.Context, messages []llms.MessageContent) ([]llms.MessageContent, error) {
		state.report(StageSynthesis)
		attribution := "Unknown"
		if len(state.result.Stakeholders) > 0 {
			first := state.result.Stakeholders[0]
			attribution = fmt.Sprintf("%s (last modified %s, %s)", first.Author, first.File, first.Timestamp.Format(time.RFC3339))
		}
		verdict := state.result.Verdict
		var b strings.Builder
		fmt.Fprintf(&b, "Classification: %s (risk score %.2f)\n", verdict.Classification, verdict.RiskScore)
		fmt.Fprintf(&b, "Citation: %s\n", verdict.Citation)
		if verdict.OffendingFile != "" {
			fmt.Fprintf(&b, "Offending file: %s\n", verdict.OffendingFile)
		}
		fmt.Fprintf(&b, "\n%s\n", verdict.Summary)
		fmt.Fprintf(&b, "\nPrimary stakeholder: %s\n", attribution)
		state.result.Report = b.String()
		return append(messages, llms.TextParts(llms.ChatMessageTypeAI, state.result.Report)), nil
	}
}

func (s *runState) report(stage string) {
	if s.progress != nil {
		s.progress(stage)
	}
}

func joinPassages(passages []corpus.Passage) string {
	parts := make([]string, 0, len(passages))
	for _, p := range passages {
		parts = append(parts, p.Content)
	}
	return strings.Join(parts, "\n---\n")
}
