// File path: internal/graph/types.go
package graph

// Node kinds produced by the builder.
const (
	KindRepository  = "Repository"
	KindStakeholder = "Stakeholder"
	KindCluster     = "Knowledge_Cluster"
)

// Edge labels. Both are emitted together for every file record: the
// stakeholder authored the cluster, and the cluster belongs to its repository.
const (
	EdgeAuthored  = "Authored"
	EdgeBelongsTo = "Belongs To"
)

// Node is one deduplicated entry in the ownership graph. IDs are globally
// unique across a single build run: repository ids come from the URL tail,
// stakeholder ids from the author identity, cluster ids from
// "{repository_id}/{path}".
type Node struct {
	ID         string            `json:"id"`
	Label      string            `json:"label"`
	Kind       string            `json:"kind"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// Edge is a directed relationship between two nodes. Parallel edges are
// allowed; repeated authorship across runs yields duplicates and callers own
// any deduplication.
type Edge struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Label string `json:"label"`
}

// Graph is the result of one multi-repository build.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Stakeholders returns the stakeholder nodes in insertion order.
func (g *Graph) Stakeholders() []Node {
	var out []Node
	for _, node := range g.Nodes {
		if node.Kind == KindStakeholder {
			out = append(out, node)
		}
	}
	return out
}
