// File path: internal/corpus/store.go
package corpus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/FilipDolejsi/JuriCode/internal/common/telemetry"
)

// Passage is one embedded chunk of the legal-text corpus.
type Passage struct {
	ID         int64   `json:"id"`
	ChunkIndex int     `json:"chunk_index"`
	Content    string  `json:"content"`
	Score      float64 `json:"score,omitempty"`
}

type passageRow struct {
	ID         int64  `db:"id"`
	ChunkIndex int    `db:"chunk_index"`
	Content    string `db:"chunk_content"`
	Embedding  string `db:"embedding"`
}

// Store persists embedded corpus passages in the content_embedding table and
// answers nearest-neighbour queries by cosine similarity.
type Store struct {
	db *sqlx.DB
}

func NewStore(db *sqlx.DB) (*Store, error) {
	if db == nil {
		return nil, errors.New("corpus store requires a database")
	}
	return &Store{db: db}, nil
}

// Insert stores one chunk with its embedding vector.
func (s *Store) Insert(ctx context.Context, chunkIndex int, content string, vector []float32) error {
	if len(vector) == 0 {
		return errors.New("empty embedding vector")
	}
	encoded, err := json.Marshal(vector)
	if err != nil {
		return fmt.Errorf("encode embedding: %w", err)
	}
	const stmt = `INSERT INTO content_embedding (chunk_index, chunk_content, embedding) VALUES (?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, stmt, chunkIndex, content, string(encoded)); err != nil {
		return fmt.Errorf("insert corpus chunk %d: %w", chunkIndex, err)
	}
	return nil
}

// Count returns the number of stored passages.
func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM content_embedding`); err != nil {
		return 0, fmt.Errorf("count corpus chunks: %w", err)
	}
	return count, nil
}

// Search returns up to k passages whose cosine similarity to the query vector
// meets the threshold, best match first.
func (s *Store) Search(ctx context.Context, vector []float32, threshold float64, k int) ([]Passage, error) {
	if len(vector) == 0 {
		return nil, errors.New("empty query vector")
	}
	if k <= 0 {
		k = 5
	}
	start := time.Now()
	var rows []passageRow
	const stmt = `SELECT id, chunk_index, chunk_content, embedding FROM content_embedding ORDER BY chunk_index ASC`
	if err := s.db.SelectContext(ctx, &rows, stmt); err != nil {
		return nil, fmt.Errorf("load corpus chunks: %w", err)
	}
	matches := make([]Passage, 0, len(rows))
	for _, row := range rows {
		var stored []float32
		if err := json.Unmarshal([]byte(row.Embedding), &stored); err != nil {
			continue
		}
		score := cosineSimilarity(vector, stored)
		if score < threshold {
			continue
		}
		matches = append(matches, Passage{
			ID:         row.ID,
			ChunkIndex: row.ChunkIndex,
			Content:    row.Content,
			Score:      score,
		})
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if len(matches) > k {
		matches = matches[:k]
	}
	telemetry.RecordCorpusSearch(time.Since(start))
	return matches, nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
