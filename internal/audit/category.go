// File path: internal/audit/category.go
package audit

import (
	"fmt"

	"github.com/FilipDolejsi/JuriCode/internal/selector"
)

// Category is one audit dimension. The storage key doubles as the report
// store's category column value.
type Category string

const (
	CategoryRisk           Category = "risk_classifier"
	CategoryDataGovernance Category = "data_ethics_auditor"
	CategoryRobustness     Category = "technical_robustness_auditor"
	CategorySynthesis      Category = "technical_document_synthesizer"
)

// AuditCategories returns the three category pipelines in their fixed
// execution order. The synthesizer depends on this order only through the
// report store's per-category keys, never positionally.
func AuditCategories() []Category {
	return []Category{CategoryRisk, CategoryDataGovernance, CategoryRobustness}
}

type categoryConfig struct {
	Criterion       selector.Criterion
	DetectionPrompt string
	ForensicPrompt  string
	Threshold       float64
	TopK            int
	DefaultCitation string
}

const retrievalThreshold = 0.40

var categoryConfigs = map[Category]categoryConfig{
	CategoryRisk: {
		Criterion: selector.CriterionRiskClassification,
		DetectionPrompt: "You are a senior EU AI Act risk classification auditor. " +
			"Scan the README and package manifests for Annex III trigger domains such as hiring, " +
			"credit scoring, biometric identification, education scoring, or law enforcement. " +
			"Treat missing or empty files as evidence of absence, not as an error. " +
			"Respond with a single JSON object: {\"applicable\": bool, \"analysis\": string} where " +
			"applicable states whether this repository plausibly implements a high-risk AI system " +
			"and analysis is your narrative judgment.",
		ForensicPrompt: "You are a senior EU AI Act risk classification auditor. Based on the matched " +
			"legal passages, deliver the authoritative risk verdict for this repository. Cite the " +
			"specific article or annex provision for every claim and name the offending file when " +
			"applicable. Respond with a single JSON object: {\"classification\": one of \"Prohibited\", " +
			"\"High Risk\", \"Low Risk\", \"Compliant\", \"risk_score\": number between 0 and 1, " +
			"\"citation\": string, \"offending_file\": string, \"summary\": string}.",
		Threshold: retrievalThreshold,
		TopK:      2,
		DefaultCitation: "Article 6 — classification rules not engaged: the system does not fall " +
			"within the Annex III high-risk categories.",
	},
	CategoryDataGovernance: {
		Criterion: selector.CriterionDataGovernance,
		DetectionPrompt: "You are a senior Data Ethics Auditor. Scan database schemas and processing " +
			"scripts for Article 10 compliance. If you find protected attributes (e.g. gender, race) " +
			"without bias-mitigation logic, quote the violating snippet. Treat missing or empty files " +
			"as evidence of absence, not as an error. Respond with a single JSON object: " +
			"{\"applicable\": bool, \"analysis\": string} where applicable states whether the " +
			"repository processes training or reference data at all.",
		ForensicPrompt: "You are a senior Data Ethics Auditor. Based on the matched passages from the " +
			"EU AI Act, determine whether the code violates Article 10 and cite the specific " +
			"sub-paragraph (e.g. Article 10(2)(f) for bias examination) for every claim. Respond with " +
			"a single JSON object: {\"classification\": one of \"Prohibited\", \"High Risk\", " +
			"\"Low Risk\", \"Compliant\", \"risk_score\": number between 0 and 1, \"citation\": string, " +
			"\"offending_file\": string, \"summary\": string}.",
		Threshold: retrievalThreshold,
		TopK:      3,
		DefaultCitation: "Article 10 — data governance obligations not engaged: no training or " +
			"reference data handling was detected.",
	},
	CategoryRobustness: {
		Criterion: selector.CriterionTechnicalRobustness,
		DetectionPrompt: "You are a senior Cybersecurity & AI Robustness Auditor. Scan the provided " +
			"API routes and model inference logic for Article 15 compliance (accuracy, robustness, " +
			"cybersecurity). Check for naked endpoints missing input validation, missing error " +
			"handling around inference calls, and data-poisoning or feedback-loop risks. Treat " +
			"missing or empty files as evidence of absence, not as an error. Respond with a single " +
			"JSON object: {\"applicable\": bool, \"analysis\": string}.",
		ForensicPrompt: "You are a senior AI Compliance Engineer. Based on the matched EU AI Act " +
			"rules, determine whether the code violates Article 15 requirements for resilience to " +
			"errors and faults, linking technical gaps to Article 15(4) where relevant and naming the " +
			"offending file. Respond with a single JSON object: {\"classification\": one of " +
			"\"Prohibited\", \"High Risk\", \"Low Risk\", \"Compliant\", \"risk_score\": number " +
			"between 0 and 1, \"citation\": string, \"offending_file\": string, \"summary\": string}.",
		Threshold: retrievalThreshold,
		TopK:      3,
		DefaultCitation: "Article 15 — robustness obligations not engaged: no serving or inference " +
			"entry points were detected.",
	},
}

func (c Category) config() (categoryConfig, error) {
	cfg, ok := categoryConfigs[c]
	if !ok {
		return categoryConfig{}, fmt.Errorf("no pipeline configuration for category %q", c)
	}
	return cfg, nil
}

func (c Category) String() string { return string(c) }
