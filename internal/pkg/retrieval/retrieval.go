package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ioanniskarvelis/AI-Instagram-Assistant/internal/lib/sl"
)

// Example is a curated query/response pair used to steer reply tone.
type Example struct {
	Query      string
	Response   string
	Intent     string
	Similarity float64
}

// Embedder turns text into a vector. The llm adapter satisfies this through
// a thin binding in the caller.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// ExampleRepository is the storage side of retrieval.
type ExampleRepository interface {
	Similar(ctx context.Context, embedding []float32, intent string, limit int) ([]Example, error)
}

// PgExampleRepository reads curated examples from Postgres with pgvector.
type PgExampleRepository struct {
	pool *pgxpool.Pool
}

func NewPgExampleRepository(pool *pgxpool.Pool) *PgExampleRepository {
	return &PgExampleRepository{pool: pool}
}

var _ ExampleRepository = (*PgExampleRepository)(nil)

func (r *PgExampleRepository) Similar(ctx context.Context, embedding []float32, intent string, limit int) ([]Example, error) {
	query := `
		SELECT query, response, intent, 1 - (embedding <=> $1::vector) AS similarity
		FROM conversation_example
		WHERE ($2 = '' OR intent = $2)
		ORDER BY embedding <=> $1::vector
		LIMIT $3`

	rows, err := r.pool.Query(ctx, query, vectorLiteral(embedding), intent, limit)
	if err != nil {
		return nil, fmt.Errorf("retrieval: query examples: %w", err)
	}
	defer rows.Close()

	var examples []Example
	for rows.Next() {
		var e Example
		if err := rows.Scan(&e.Query, &e.Response, &e.Intent, &e.Similarity); err != nil {
			return nil, fmt.Errorf("retrieval: scan example: %w", err)
		}
		examples = append(examples, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("retrieval: read examples: %w", err)
	}
	return examples, nil
}

// vectorLiteral formats an embedding as the pgvector text representation.
func vectorLiteral(v []float32) string {
	parts := make([]string, len(v))
	for i, f := range v {
		parts[i] = fmt.Sprintf("%g", f)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// Retriever finds examples similar to a customer message. When the
// intent-filtered search comes back thin it retries without the filter and
// merges, so the model always has something to anchor on.
type Retriever struct {
	repo      ExampleRepository
	embedder  Embedder
	threshold float64
	topK      int
	log       *slog.Logger
}

func NewRetriever(repo ExampleRepository, embedder Embedder, threshold float64, topK int, log *slog.Logger) *Retriever {
	return &Retriever{
		repo:      repo,
		embedder:  embedder,
		threshold: threshold,
		topK:      topK,
		log:       log.With(sl.Module("retrieval")),
	}
}

func (r *Retriever) Similar(ctx context.Context, text, intent string) ([]Example, error) {
	embedding, err := r.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("retrieval: embed query: %w", err)
	}

	examples, err := r.repo.Similar(ctx, embedding, intent, r.topK)
	if err != nil {
		return nil, err
	}
	examples = r.filter(examples)

	if len(examples) < 2 && intent != "" {
		broader, err := r.repo.Similar(ctx, embedding, "", r.topK)
		if err != nil {
			r.log.Warn("unfiltered retrieval failed", sl.Err(err))
			return examples, nil
		}
		examples = merge(examples, r.filter(broader), r.topK)
	}
	return examples, nil
}

func (r *Retriever) filter(examples []Example) []Example {
	kept := examples[:0]
	for _, e := range examples {
		if e.Similarity >= r.threshold {
			kept = append(kept, e)
		}
	}
	return kept
}

func merge(primary, secondary []Example, limit int) []Example {
	seen := make(map[string]struct{}, len(primary))
	for _, e := range primary {
		seen[e.Query] = struct{}{}
	}
	out := primary
	for _, e := range secondary {
		if len(out) >= limit {
			break
		}
		if _, ok := seen[e.Query]; ok {
			continue
		}
		seen[e.Query] = struct{}{}
		out = append(out, e)
	}
	return out
}

// FormatExamples renders examples as a prompt block.
func FormatExamples(examples []Example) string {
	if len(examples) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Παραδείγματα απαντήσεων από προηγούμενες συνομιλίες:\n")
	for i, e := range examples {
		fmt.Fprintf(&b, "\nΠαράδειγμα %d:\nΠελάτης: %s\nΑπάντηση: %s\n", i+1, e.Query, e.Response)
	}
	return b.String()
}
