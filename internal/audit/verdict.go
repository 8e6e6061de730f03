// File path: internal/audit/verdict.go
package audit

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Classification labels form the closed verdict set emitted by the forensic
// stage.
const (
	ClassificationProhibited = "Prohibited"
	ClassificationHighRisk   = "High Risk"
	ClassificationLowRisk    = "Low Risk"
	ClassificationCompliant  = "Compliant"
)

// ErrorReportPrefix marks a stored report that stands in for a failed
// category run.
const ErrorReportPrefix = "Error compiling report: "

// Verdict is the forensic stage's structured output. Downstream consumers
// treat it as ground truth; no further verification exists.
type Verdict struct {
	Classification string  `json:"classification"`
	RiskScore      float64 `json:"risk_score"`
	Citation       string  `json:"citation"`
	OffendingFile  string  `json:"offending_file,omitempty"`
	Summary        string  `json:"summary"`
}

// detectionOutcome is the detection stage's structured output.
type detectionOutcome struct {
	Applicable bool   `json:"applicable"`
	Analysis   string `json:"analysis"`
}

// ParseVerdict decodes the forensic stage's JSON object, tolerating markdown
// code fences around it.
func ParseVerdict(text string) (Verdict, error) {
	var verdict Verdict
	cleaned := stripCodeFence(text)
	if err := json.Unmarshal([]byte(cleaned), &verdict); err != nil {
		return Verdict{}, fmt.Errorf("parse verdict: %w", err)
	}
	if strings.TrimSpace(verdict.Classification) == "" {
		return Verdict{}, fmt.Errorf("verdict missing classification")
	}
	verdict.Classification = normalizeClassification(verdict.Classification)
	return verdict, nil
}

func parseDetection(text string) detectionOutcome {
	var outcome detectionOutcome
	cleaned := stripCodeFence(text)
	if err := json.Unmarshal([]byte(cleaned), &outcome); err != nil {
		// Unstructured detection output is kept verbatim and treated as
		// applicable so the run errs toward a full retrieval pass.
		return detectionOutcome{Applicable: true, Analysis: strings.TrimSpace(text)}
	}
	if strings.TrimSpace(outcome.Analysis) == "" {
		outcome.Analysis = strings.TrimSpace(text)
	}
	return outcome
}

func normalizeClassification(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "prohibited":
		return ClassificationProhibited
	case "high risk", "high-risk":
		return ClassificationHighRisk
	case "low risk", "low-risk", "limited risk":
		return ClassificationLowRisk
	case "compliant":
		return ClassificationCompliant
	}
	return strings.TrimSpace(value)
}

func stripCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

// Status is the dashboard-facing compliance state derived from a stored risk
// report.
type Status string

const (
	StatusProhibited Status = "PROHIBITED"
	StatusHighRisk   Status = "HIGH_RISK"
	StatusLowRisk    Status = "LOW_RISK"
	StatusCompliant  Status = "COMPLIANT"
	StatusError      Status = "ERROR"
	StatusUnknown    Status = "UNKNOWN"
)

// DeriveStatus maps a stored report to its dashboard status and category
// label. The typed verdict column wins when present; narrative substring
// matching is the fallback for legacy rows. Prohibited always takes
// precedence over High Risk.
func DeriveStatus(verdict, content string) (Status, string) {
	if strings.HasPrefix(content, ErrorReportPrefix) {
		return StatusError, "Audit Error"
	}
	source := strings.TrimSpace(verdict)
	if source == "" {
		source = content
	}
	switch {
	case strings.Contains(source, ClassificationProhibited):
		return StatusProhibited, "Article 5 Violation"
	case strings.Contains(source, ClassificationHighRisk):
		return StatusHighRisk, "Annex III High-Risk"
	case strings.Contains(source, ClassificationLowRisk):
		return StatusLowRisk, "Limited Risk"
	case strings.Contains(source, ClassificationCompliant):
		return StatusCompliant, "Compliant"
	}
	return StatusUnknown, "Unclassified"
}
