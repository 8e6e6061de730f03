// File path: internal/corpus/retriever.go
package corpus

import (
	"context"
	"errors"
	"fmt"

	"github.com/FilipDolejsi/JuriCode/internal/common"
	"github.com/FilipDolejsi/JuriCode/internal/llm"
)

// Searcher is the nearest-neighbour lookup the retriever runs against. The
// sqlx-backed Store satisfies it; tests substitute fixtures.
type Searcher interface {
	Search(ctx context.Context, vector []float32, threshold float64, k int) ([]Passage, error)
}

// Retriever converts free text into an embedding and ranks corpus passages
// against it. It is a pure function of its inputs: text in, passages out.
type Retriever struct {
	provider llm.Provider
	store    Searcher
}

func NewRetriever(provider llm.Provider, store Searcher) (*Retriever, error) {
	if provider == nil {
		return nil, errors.New("retriever requires an llm provider")
	}
	if store == nil {
		return nil, errors.New("retriever requires a corpus store")
	}
	return &Retriever{provider: provider, store: store}, nil
}

// Retrieve embeds the query and returns the k best passages above threshold.
func (r *Retriever) Retrieve(ctx context.Context, query string, threshold float64, k int) ([]Passage, error) {
	vectors, err := r.provider.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, errors.New("embedding service returned no vector")
	}
	passages, err := r.store.Search(ctx, vectors[0], threshold, k)
	if err != nil {
		return nil, fmt.Errorf("search corpus: %w", err)
	}
	common.Logger().Debug("corpus: retrieval complete", "matches", len(passages), "threshold", threshold, "k", k)
	return passages, nil
}
