// File path: internal/audit/synthesizer.go
package audit

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/FilipDolejsi/JuriCode/internal/common"
	"github.com/FilipDolejsi/JuriCode/internal/githost"
	"github.com/FilipDolejsi/JuriCode/internal/llm"
)

// annexTemplateQuery is the fixed retrieval query for the consolidated
// document's structural template. It describes the target document, not the
// audited repository, so it never varies per run.
const annexTemplateQuery = "EU AI Act Annex IV Technical Documentation mandatory fields and structure"

const (
	annexTemplateThreshold = retrievalThreshold
	annexTemplateTopK      = 5
)

// Synthesizer compiles the three category reports into one consolidated
// Annex IV technical documentation file. It is a pure combination step: the
// three inputs are taken as ground truth and never re-verified.
type Synthesizer struct {
	provider  llm.Provider
	retriever PassageRetriever
}

func NewSynthesizer(provider llm.Provider, retriever PassageRetriever) (*Synthesizer, error) {
	if provider == nil {
		return nil, errors.New("synthesizer requires an llm provider")
	}
	if retriever == nil {
		return nil, errors.New("synthesizer requires a passage retriever")
	}
	return &Synthesizer{provider: provider, retriever: retriever}, nil
}

const synthesizerPrompt = "You are a Senior EU AI Act Compliance Officer. Your task is to compile a " +
	"Technical Documentation File (Annex IV) based on forensic audit reports.\n\n" +
	"STRICT FORMATTING RULES:\n" +
	"1. The report MUST be written in a formal, legal-technical style.\n" +
	"2. It MUST be structured into exactly these three sections:\n" +
	"   - Section A: System Classification & Risk (based on the risk report)\n" +
	"   - Section B: Data Governance & Bias Control (based on the data governance report)\n" +
	"   - Section C: Technical Robustness & Cybersecurity (based on the robustness report)\n" +
	"3. Every claim must cite the specific agent findings provided in the input.\n" +
	"4. Use the retrieved Annex IV requirements to keep the language compliant with the law.\n" +
	"5. The header of the final file MUST be 'Annex_IV_Technical_Documentation_{repo_name}' " +
	"where repo_name is derived from the repository URL."

// Synthesize retrieves the Annex IV structural template and produces the
// consolidated three-section document.
func (s *Synthesizer) Synthesize(ctx context.Context, repoURL, riskReport, dataReport, robustnessReport string) (string, error) {
	logger := common.Logger()
	passages, err := s.retriever.Retrieve(ctx, annexTemplateQuery, annexTemplateThreshold, annexTemplateTopK)
	if err != nil {
		return "", fmt.Errorf("retrieve annex template: %w", err)
	}
	template := joinPassages(passages)

	repoName := repoURL
	if ref, parseErr := githost.ParseRepoURL(repoURL); parseErr == nil {
		repoName = ref.Name
	}
	userPrompt := fmt.Sprintf(
		"TARGET REPO: %s\n\n--- ANNEX IV LEGAL REQUIREMENTS ---\n%s\n\n"+
			"--- INPUT: RISK AGENT REPORT ---\n%s\n\n"+
			"--- INPUT: DATA GOVERNANCE REPORT ---\n%s\n\n"+
			"--- INPUT: ROBUSTNESS REPORT ---\n%s\n\n"+
			"TASK: Generate the final Annex IV technical report for %s.",
		repoURL, template, riskReport, dataReport, robustnessReport, repoName,
	)
	document, err := s.provider.Chat(ctx, []llm.Message{
		{Role: "system", Content: synthesizerPrompt},
		{Role: "user", Content: userPrompt},
	})
	if err != nil {
		return "", fmt.Errorf("synthesize document: %w", err)
	}
	if strings.TrimSpace(document) == "" {
		return "", errors.New("synthesizer produced an empty document")
	}
	logger.Info("audit: consolidated document synthesized", "repo", repoURL, "bytes", len(document))
	return document, nil
}
