package types

import (
	"context"

	"github.com/sentia-ai/ragbot/internal/models"
)

// TokenCodec counts and converts tokens with one fixed vocabulary. Every
// sizing decision in the pipeline goes through the same codec so ingestion
// and retrieval measure text identically.
type TokenCodec interface {
	Count(text string) int
	Encode(text string) []int
	Decode(tokens []int) string
}

// Embedder turns text into fixed-dimension vectors via the embedding
// provider. A batch of N inputs returns exactly N vectors in input order.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	EmbedOne(ctx context.Context, text string) ([]float32, error)
}

// VectorStore is the narrow contract over the similarity-searchable
// collection. Inserts are durable only after Flush. Search against a store
// that has not been loaded fails.
type VectorStore interface {
	Rebuild(ctx context.Context) error
	Insert(ctx context.Context, records []models.IndexedRecord) ([]int64, error)
	Flush(ctx context.Context) error
	BuildIndex(ctx context.Context) error
	Load(ctx context.Context) error
	Search(ctx context.Context, vector []float32, topK int) ([]models.SearchHit, error)
	Count(ctx context.Context) (int64, error)
	Close()
}

// Retriever embeds a query and returns the top matching chunks. An empty
// result is a valid outcome, not an error.
type Retriever interface {
	Search(ctx context.Context, query string, topK int) ([]models.SearchHit, error)
}

// SessionStore holds bounded per-session conversation history. Lock
// serializes handling within one session key and returns the unlock func.
type SessionStore interface {
	Get(sessionID string) []models.Turn
	Append(sessionID string, turn models.Turn)
	Clear(sessionID string)
	Lock(sessionID string) func()
}

// Responder runs the full retrieve-compose round trip for one inbound
// message. Implementations must never return an empty reply text.
type Responder interface {
	Respond(ctx context.Context, sessionID, query string) (models.Reply, error)
}
