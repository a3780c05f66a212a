package retrieval

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sentia-ai/ragbot/internal/models"
	"github.com/sentia-ai/ragbot/internal/types"
)

// DefaultTopK is the number of passages retrieved per query.
const DefaultTopK = 5

// Engine embeds a query with the same model as ingestion and searches the
// collection. Zero hits is a valid outcome meaning no relevant context, and
// is distinct from a connection or query failure.
type Engine struct {
	embedder types.Embedder
	store    types.VectorStore
	logger   *slog.Logger
}

func New(embedder types.Embedder, store types.VectorStore, logger *slog.Logger) *Engine {
	return &Engine{embedder: embedder, store: store, logger: logger}
}

// Search returns the topK nearest chunks for the query, best match first,
// preserving the store's ranking.
func (e *Engine) Search(ctx context.Context, query string, topK int) ([]models.SearchHit, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}

	vector, err := e.embedder.EmbedOne(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	hits, err := e.store.Search(ctx, vector, topK)
	if err != nil {
		return nil, fmt.Errorf("failed to search collection: %w", err)
	}

	e.logger.Debug("retrieval complete", "query_len", len(query), "hits", len(hits))
	return hits, nil
}

// Sources de-duplicates hit provenance by URL, preserving ranking order, and
// keeps at most max entries. Hits without a URL are dropped from the list.
func Sources(hits []models.SearchHit, max int) []models.Source {
	seen := make(map[string]bool, len(hits))
	var sources []models.Source
	for _, hit := range hits {
		if hit.SourceURL == "" || seen[hit.SourceURL] {
			continue
		}
		seen[hit.SourceURL] = true
		sources = append(sources, models.Source{
			Title:   hit.Citation(),
			URL:     hit.SourceURL,
			IsSplit: hit.IsSplit,
		})
		if max > 0 && len(sources) >= max {
			break
		}
	}
	return sources
}
