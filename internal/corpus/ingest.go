// File path: internal/corpus/ingest.go
package corpus

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/textsplitter"

	"github.com/FilipDolejsi/JuriCode/internal/common"
	"github.com/FilipDolejsi/JuriCode/internal/llm"
)

const (
	chunkSize    = 500
	chunkOverlap = 100
)

// Ingestor chunks legal source documents, embeds each chunk and stores the
// result in the corpus.
type Ingestor struct {
	provider llm.Provider
	store    *Store
	splitter textsplitter.RecursiveCharacter
}

func NewIngestor(provider llm.Provider, store *Store) (*Ingestor, error) {
	if provider == nil {
		return nil, errors.New("ingestor requires an llm provider")
	}
	if store == nil {
		return nil, errors.New("ingestor requires a corpus store")
	}
	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(chunkSize),
		textsplitter.WithChunkOverlap(chunkOverlap),
		textsplitter.WithSeparators([]string{"\n\n", "\n", " ", ""}),
	)
	return &Ingestor{provider: provider, store: store, splitter: splitter}, nil
}

// Ingest splits the document into overlapping chunks, embeds them in one batch
// and inserts each chunk with its vector. It returns the number of chunks
// stored.
func (i *Ingestor) Ingest(ctx context.Context, document string) (int, error) {
	logger := common.Logger()
	if strings.TrimSpace(document) == "" {
		return 0, errors.New("empty document")
	}
	chunks, err := i.splitter.SplitText(document)
	if err != nil {
		return 0, fmt.Errorf("split document: %w", err)
	}
	if len(chunks) == 0 {
		return 0, errors.New("document produced no chunks")
	}
	vectors, err := i.provider.Embed(ctx, chunks)
	if err != nil {
		return 0, fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return 0, fmt.Errorf("embedding count mismatch: %d chunks, %d vectors", len(chunks), len(vectors))
	}
	for idx, chunk := range chunks {
		if err := i.store.Insert(ctx, idx, chunk, vectors[idx]); err != nil {
			return idx, err
		}
	}
	logger.Info("corpus: document ingested", "chunks", len(chunks))
	return len(chunks), nil
}
