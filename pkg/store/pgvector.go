package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/sentia-ai/ragbot/internal/models"
)

// maxContentBytes is the bound of the content field. Longer inputs are
// truncated at insert, matching the collection schema limit.
const maxContentBytes = 65535

var (
	// ErrNotLoaded is returned by Search when the collection exists but
	// Load has not been called.
	ErrNotLoaded = errors.New("collection is not loaded")

	// ErrDimensionMismatch marks a query vector whose size differs from the
	// collection schema. This is a configuration fault, not a runtime one.
	ErrDimensionMismatch = errors.New("vector dimension does not match collection schema")
)

// VectorStoreConfig configures the Postgres-backed collection.
type VectorStoreConfig struct {
	ConnString string
	TableName  string
	VectorDim  int
	IndexLists int
}

// VectorStore is the similarity-searchable collection on Postgres+pgvector.
// Inserts run inside a lazily-begun transaction and become durable on Flush.
// Search is rejected until Load has verified and marked the collection.
type VectorStore struct {
	config VectorStoreConfig
	pool   *pgxpool.Pool

	mu     sync.Mutex
	tx     pgx.Tx
	loaded bool
}

func NewWithConfig(config VectorStoreConfig) (*VectorStore, error) {
	if config.TableName == "" {
		config.TableName = "sentia_website"
	}
	if config.VectorDim == 0 {
		config.VectorDim = 3072
	}
	if config.IndexLists == 0 {
		config.IndexLists = 1024
	}

	pool, err := pgxpool.New(context.Background(), config.ConnString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &VectorStore{config: config, pool: pool}, nil
}

// Rebuild drops the collection if present and recreates it empty with the
// declared schema. Idempotent; any open insert transaction is discarded and
// the loaded mark is cleared.
func (vs *VectorStore) Rebuild(ctx context.Context) error {
	vs.mu.Lock()
	defer vs.mu.Unlock()

	if vs.tx != nil {
		_ = vs.tx.Rollback(ctx)
		vs.tx = nil
	}
	vs.loaded = false

	if _, err := vs.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}

	if _, err := vs.pool.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", vs.config.TableName)); err != nil {
		return fmt.Errorf("failed to drop collection: %w", err)
	}

	createTable := fmt.Sprintf(`
		CREATE TABLE %s (
			id BIGSERIAL PRIMARY KEY,
			content TEXT NOT NULL,
			embedding vector(%d) NOT NULL,
			page_title VARCHAR(500),
			url VARCHAR(500),
			page_number BIGINT,
			page_length VARCHAR(100),
			chunk_index BIGINT,
			is_chunked BOOLEAN
		)`, vs.config.TableName, vs.config.VectorDim)

	if _, err := vs.pool.Exec(ctx, createTable); err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}
	return nil
}

// Insert stages records inside the current transaction and returns their
// store-assigned keys. Rows are not durable until Flush. A record whose
// vector size differs from the schema is rejected before touching the store.
func (vs *VectorStore) Insert(ctx context.Context, records []models.IndexedRecord) ([]int64, error) {
	vs.mu.Lock()
	defer vs.mu.Unlock()

	for _, rec := range records {
		if len(rec.Embedding) != vs.config.VectorDim {
			return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(rec.Embedding), vs.config.VectorDim)
		}
	}

	if vs.tx == nil {
		tx, err := vs.pool.Begin(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to begin transaction: %w", err)
		}
		vs.tx = tx
	}

	stmt := fmt.Sprintf(`
		INSERT INTO %s (content, embedding, page_title, url, page_number, page_length, chunk_index, is_chunked)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`, vs.config.TableName)

	ids := make([]int64, 0, len(records))
	for _, rec := range records {
		var id int64
		err := vs.tx.QueryRow(ctx, stmt,
			truncateUTF8(sanitizeUTF8(rec.Text), maxContentBytes),
			pgvector.NewVector(rec.Embedding),
			sanitizeUTF8(rec.SourceTitle),
			rec.SourceURL,
			rec.PageNumber,
			rec.PageLength,
			rec.ChunkIndex,
			rec.IsSplit,
		).Scan(&id)
		if err != nil {
			return nil, fmt.Errorf("failed to insert record: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Flush commits the open insert transaction, the durability checkpoint.
// Flushing with nothing staged is a no-op.
func (vs *VectorStore) Flush(ctx context.Context) error {
	vs.mu.Lock()
	defer vs.mu.Unlock()

	if vs.tx == nil {
		return nil
	}
	err := vs.tx.Commit(ctx)
	vs.tx = nil
	if err != nil {
		return fmt.Errorf("failed to flush: %w", err)
	}
	return nil
}

// BuildIndex creates the IVF_FLAT L2 index over the embedding column. Run
// once after all data is loaded, never per insert.
func (vs *VectorStore) BuildIndex(ctx context.Context) error {
	createIndex := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s_embedding_idx
		ON %s
		USING ivfflat (embedding vector_l2_ops)
		WITH (lists = %d)`,
		vs.config.TableName, vs.config.TableName, vs.config.IndexLists)

	if _, err := vs.pool.Exec(ctx, createIndex); err != nil {
		return fmt.Errorf("failed to build index: %w", err)
	}
	return nil
}

// Load verifies the collection exists and marks it searchable.
func (vs *VectorStore) Load(ctx context.Context) error {
	var exists bool
	err := vs.pool.QueryRow(ctx,
		"SELECT EXISTS (SELECT FROM pg_tables WHERE tablename = $1)",
		vs.config.TableName,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}
	if !exists {
		return fmt.Errorf("collection %s does not exist", vs.config.TableName)
	}

	vs.mu.Lock()
	vs.loaded = true
	vs.mu.Unlock()
	return nil
}

// Search returns the topK nearest records by L2 distance with their citation
// metadata, best match first.
func (vs *VectorStore) Search(ctx context.Context, vector []float32, topK int) ([]models.SearchHit, error) {
	vs.mu.Lock()
	loaded := vs.loaded
	vs.mu.Unlock()
	if !loaded {
		return nil, ErrNotLoaded
	}

	if len(vector) != vs.config.VectorDim {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vector), vs.config.VectorDim)
	}
	if topK <= 0 {
		topK = 5
	}

	query := fmt.Sprintf(`
		SELECT content, page_title, url, page_number, chunk_index, is_chunked, embedding <-> $1 AS distance
		FROM %s
		ORDER BY embedding <-> $1
		LIMIT $2`, vs.config.TableName)

	rows, err := vs.pool.Query(ctx, query, pgvector.NewVector(vector), topK)
	if err != nil {
		return nil, fmt.Errorf("failed to search collection: %w", err)
	}
	defer rows.Close()

	var hits []models.SearchHit
	for rows.Next() {
		var hit models.SearchHit
		var pageNumber, chunkIndex int64
		err := rows.Scan(&hit.Text, &hit.SourceTitle, &hit.SourceURL, &pageNumber, &chunkIndex, &hit.IsSplit, &hit.Distance)
		if err != nil {
			return nil, fmt.Errorf("failed to scan hit: %w", err)
		}
		hit.PageNumber = int(pageNumber)
		hit.ChunkIndex = int(chunkIndex)
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read hits: %w", err)
	}
	return hits, nil
}

// Count reports the number of records in the collection.
func (vs *VectorStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := vs.pool.QueryRow(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", vs.config.TableName)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return count, nil
}

func (vs *VectorStore) Close() {
	vs.mu.Lock()
	if vs.tx != nil {
		_ = vs.tx.Rollback(context.Background())
		vs.tx = nil
	}
	vs.mu.Unlock()

	if vs.pool != nil {
		vs.pool.Close()
	}
}

func sanitizeUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	v := make([]rune, 0, len(s))
	for i, r := range s {
		if r == utf8.RuneError {
			_, size := utf8.DecodeRuneInString(s[i:])
			if size == 1 {
				continue
			}
		}
		v = append(v, r)
	}
	return string(v)
}

// truncateUTF8 cuts s to at most max bytes without splitting a rune.
func truncateUTF8(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}
