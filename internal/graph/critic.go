// File path: internal/graph/critic.go
package graph

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/FilipDolejsi/JuriCode/internal/common"
	"github.com/FilipDolejsi/JuriCode/internal/llm"
)

// Critic runs an advisory LLM pass over a built graph and flags knowledge
// silos: files whose entire recorded history belongs to a single stakeholder.
type Critic struct {
	provider llm.Provider
}

func NewCritic(provider llm.Provider) (*Critic, error) {
	if provider == nil {
		return nil, errors.New("critic requires an llm provider")
	}
	return &Critic{provider: provider}, nil
}

const criticPrompt = "You are an engineering-governance reviewer. You receive the per-stakeholder " +
	"file ownership extracted from one or more repositories. Identify knowledge silos: " +
	"stakeholders who are the sole recorded author of files, especially clusters of related " +
	"files owned by one person. For each silo, state the stakeholder, the affected files, " +
	"and the operational risk if that person becomes unavailable. Be concise and concrete."

// Critique summarizes single-stakeholder ownership and asks the model for a
// silo-risk assessment. It never mutates the graph.
func (c *Critic) Critique(ctx context.Context, g *Graph) (string, error) {
	if g == nil || len(g.Nodes) == 0 {
		return "", errors.New("critique requires a non-empty graph")
	}
	ownership := soleOwnership(g)
	if len(ownership) == 0 {
		return "No authored files found in the graph; nothing to critique.", nil
	}

	var b strings.Builder
	stakeholders := make([]string, 0, len(ownership))
	for id := range ownership {
		stakeholders = append(stakeholders, id)
	}
	sort.Strings(stakeholders)
	for _, id := range stakeholders {
		files := ownership[id]
		sort.Strings(files)
		fmt.Fprintf(&b, "Stakeholder %s solely owns %d file(s):\n", id, len(files))
		for _, f := range files {
			fmt.Fprintf(&b, "  - %s\n", f)
		}
	}

	report, err := c.provider.Chat(ctx, []llm.Message{
		{Role: "system", Content: criticPrompt},
		{Role: "user", Content: b.String()},
	})
	if err != nil {
		return "", fmt.Errorf("silo critique: %w", err)
	}
	common.Logger().Info("graph: silo critique produced", "stakeholders", len(ownership))
	return report, nil
}

// soleOwnership maps stakeholder id to the clusters only that stakeholder has
// authored. With one recorded author per file this is every cluster, but the
// filter stays correct when callers merge graphs from multiple runs.
func soleOwnership(g *Graph) map[string][]string {
	authors := make(map[string]map[string]struct{})
	for _, edge := range g.Edges {
		if edge.Label != EdgeAuthored {
			continue
		}
		set := authors[edge.To]
		if set == nil {
			set = make(map[string]struct{})
			authors[edge.To] = set
		}
		set[edge.From] = struct{}{}
	}
	ownership := make(map[string][]string)
	for cluster, set := range authors {
		if len(set) != 1 {
			continue
		}
		for stakeholder := range set {
			ownership[stakeholder] = append(ownership[stakeholder], cluster)
		}
	}
	return ownership
}
