package ingest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/sentia-ai/ragbot/internal/models"
	"github.com/sentia-ai/ragbot/internal/types"
	"github.com/sentia-ai/ragbot/pkg/chunker"
)

// Config carries the empirically tuned ingestion constants. They are
// defaults, not correctness requirements.
type Config struct {
	// BatchSize is the number of source pages per embedding batch. Batches
	// are built from whole pages to keep citation metadata coherent.
	BatchSize int

	// SplitThreshold is the token count above which a page is split before
	// embedding.
	SplitThreshold int

	// MaxChunkTokens bounds the non-overlapping segments of a split page.
	MaxChunkTokens int

	// FallbackChunkTokens is the finer bound applied when an item fails at
	// the per-item tier and still exceeds the split threshold.
	FallbackChunkTokens int

	// BatchTokenWarn triggers a warning when a batch's total token count
	// approaches the provider ceiling. The call is still attempted.
	BatchTokenWarn int

	// InterBatchDelay is the courtesy pause between successful batches.
	InterBatchDelay time.Duration

	// CostPer1KTokens prices the embedding model for the final report.
	CostPer1KTokens float64
}

func (c *Config) applyDefaults() {
	if c.BatchSize == 0 {
		c.BatchSize = 3
	}
	if c.SplitThreshold == 0 {
		c.SplitThreshold = chunker.DefaultSplitThreshold
	}
	if c.MaxChunkTokens == 0 {
		c.MaxChunkTokens = chunker.DefaultMaxTokens
	}
	if c.FallbackChunkTokens == 0 {
		c.FallbackChunkTokens = 5500
	}
	if c.BatchTokenWarn == 0 {
		c.BatchTokenWarn = 8000
	}
	if c.InterBatchDelay == 0 {
		c.InterBatchDelay = time.Second
	}
	if c.CostPer1KTokens == 0 {
		c.CostPer1KTokens = 0.00013
	}
}

// Tier identifies how far the per-batch fallback machine had to descend:
// one call for the whole batch, one call per item, or per sub-chunk after a
// finer split.
type Tier int

const (
	TierBatch Tier = iota
	TierPerItem
	TierSubSplit
)

func (t Tier) String() string {
	switch t {
	case TierBatch:
		return "batch"
	case TierPerItem:
		return "per-item"
	case TierSubSplit:
		return "sub-split"
	default:
		return "unknown"
	}
}

// Report is the final ingestion summary. Per-item failures are counted here
// and never abort the run.
type Report struct {
	PagesParsed     int
	ItemsStored     int
	ItemsFailed     int
	Batches         int
	FallbackBatches int
	TokensEmbedded  int
	CostUSD         float64
}

// SuccessRate is the stored fraction of all attempted items, in percent.
func (r Report) SuccessRate() float64 {
	total := r.ItemsStored + r.ItemsFailed
	if total == 0 {
		return 0
	}
	return float64(r.ItemsStored) / float64(total) * 100
}

// Pipeline drives ingestion: pages are chunked, embedded in page-aligned
// batches, and persisted with batch → per-item → sub-split failure recovery.
// Processing is strictly sequential by design so rate limits and failure
// accounting stay simple.
type Pipeline struct {
	codec    types.TokenCodec
	chunks   *chunker.Chunker
	embedder types.Embedder
	store    types.VectorStore
	config   Config
	logger   *slog.Logger

	// sleep is swapped out by tests.
	sleep func(time.Duration)

	// OnBatch, when set, is called after each batch with progress so far.
	OnBatch func(done, total int)
}

func New(codec types.TokenCodec, embedder types.Embedder, store types.VectorStore, config Config, logger *slog.Logger) *Pipeline {
	config.applyDefaults()
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Pipeline{
		codec:    codec,
		chunks:   chunker.New(codec),
		embedder: embedder,
		store:    store,
		config:   config,
		logger:   logger,
		sleep:    time.Sleep,
	}
}

// Run rebuilds the collection from the given pages: drop and recreate the
// schema, embed and insert every batch, then build the index once and load.
func (p *Pipeline) Run(ctx context.Context, pages []models.PageRecord) (Report, error) {
	report := Report{PagesParsed: len(pages)}

	if err := p.store.Rebuild(ctx); err != nil {
		return report, fmt.Errorf("failed to rebuild collection: %w", err)
	}

	totalBatches := (len(pages) + p.config.BatchSize - 1) / p.config.BatchSize
	for i := 0; i < len(pages); i += p.config.BatchSize {
		end := i + p.config.BatchSize
		if end > len(pages) {
			end = len(pages)
		}

		p.processBatch(ctx, pages[i:end], &report)
		report.Batches++

		if p.OnBatch != nil {
			p.OnBatch(report.Batches, totalBatches)
		}
		if end < len(pages) {
			p.sleep(p.config.InterBatchDelay)
		}
	}

	if err := p.store.BuildIndex(ctx); err != nil {
		return report, fmt.Errorf("failed to build index: %w", err)
	}
	if err := p.store.Load(ctx); err != nil {
		return report, fmt.Errorf("failed to load collection: %w", err)
	}

	report.CostUSD = float64(report.TokensEmbedded) / 1000 * p.config.CostPer1KTokens
	return report, nil
}

// IngestDocument embeds one ad-hoc document through overlapping windows and
// appends it to the existing collection. Used for single-file additions
// outside the full rebuild path.
func (p *Pipeline) IngestDocument(ctx context.Context, title, url, text string, chunkSize, overlap int) (Report, error) {
	var report Report

	windows, err := p.chunks.SlidingWindow(text, chunkSize, overlap)
	if err != nil {
		return report, err
	}

	items := make([]models.Chunk, 0, len(windows))
	for i, window := range windows {
		items = append(items, models.Chunk{
			Text:        window,
			SourceTitle: title,
			SourceURL:   url,
			ChunkIndex:  i,
			IsSplit:     len(windows) > 1,
		})
		report.TokensEmbedded += p.codec.Count(window)
	}

	p.embedItems(ctx, items, &report)
	report.Batches = 1
	report.CostUSD = float64(report.TokensEmbedded) / 1000 * p.config.CostPer1KTokens
	return report, nil
}

// processBatch expands a batch of pages into chunks and runs the fallback
// machine: one provider call for the whole batch, then per item, then per
// sub-chunk. One failure never aborts the batch.
func (p *Pipeline) processBatch(ctx context.Context, pages []models.PageRecord, report *Report) {
	items := p.expandPages(pages)
	if len(items) == 0 {
		return
	}

	batchTokens := 0
	texts := make([]string, len(items))
	for i, item := range items {
		texts[i] = item.Text
		batchTokens += p.codec.Count(item.Text)
	}
	report.TokensEmbedded += batchTokens

	if batchTokens > p.config.BatchTokenWarn {
		p.logger.Warn("batch token total near provider ceiling",
			"tokens", batchTokens, "items", len(items))
	}

	vectors, err := p.embedder.EmbedBatch(ctx, texts)
	if err == nil {
		records := make([]models.IndexedRecord, len(items))
		for i := range items {
			records[i] = models.IndexedRecord{Chunk: items[i], Embedding: vectors[i]}
		}
		if _, insertErr := p.store.Insert(ctx, records); insertErr == nil {
			if flushErr := p.store.Flush(ctx); flushErr == nil {
				report.ItemsStored += len(items)
				p.logger.Info("batch embedded", "tier", TierBatch.String(), "items", len(items), "tokens", batchTokens)
				return
			}
		}
	}

	p.logger.Warn("batch call failed, falling back to per-item", "err", err, "items", len(items))
	report.FallbackBatches++
	p.embedItems(ctx, items, report)
}

// embedItems is the per-item tier. Items still exceeding the split threshold
// descend to the sub-split tier with a finer bound; every insert is flushed
// immediately, durability over throughput.
func (p *Pipeline) embedItems(ctx context.Context, items []models.Chunk, report *Report) {
	for _, item := range items {
		if p.codec.Count(item.Text) > p.config.SplitThreshold {
			p.embedSubSplit(ctx, item, report)
			continue
		}
		if p.embedSingle(ctx, item, TierPerItem) {
			report.ItemsStored++
		} else {
			report.ItemsFailed++
		}
	}
}

// embedSubSplit is the finest tier: re-split the item and embed each
// sub-chunk on its own. Sub-chunks of a descended item are always marked
// split.
func (p *Pipeline) embedSubSplit(ctx context.Context, item models.Chunk, report *Report) {
	subChunks := p.chunks.ThresholdSplit(item.Text, p.config.FallbackChunkTokens)
	for idx, text := range subChunks {
		sub := item
		sub.Text = text
		sub.ChunkIndex = idx
		sub.IsSplit = true
		if p.embedSingle(ctx, sub, TierSubSplit) {
			report.ItemsStored++
		} else {
			report.ItemsFailed++
		}
	}
}

func (p *Pipeline) embedSingle(ctx context.Context, item models.Chunk, tier Tier) bool {
	vector, err := p.embedder.EmbedOne(ctx, item.Text)
	if err != nil {
		p.logger.Error("item embedding failed", "tier", tier.String(), "title", item.SourceTitle, "err", err)
		return false
	}

	record := models.IndexedRecord{Chunk: item, Embedding: vector}
	if _, err := p.store.Insert(ctx, []models.IndexedRecord{record}); err != nil {
		p.logger.Error("item insert failed", "tier", tier.String(), "title", item.SourceTitle, "err", err)
		return false
	}
	if err := p.store.Flush(ctx); err != nil {
		p.logger.Error("item flush failed", "tier", tier.String(), "title", item.SourceTitle, "err", err)
		return false
	}
	return true
}

// expandPages turns pages into chunks: pages under the split threshold pass
// through whole, oversized pages are split into non-overlapping segments
// with every sibling marked split.
func (p *Pipeline) expandPages(pages []models.PageRecord) []models.Chunk {
	var items []models.Chunk
	for _, page := range pages {
		tokens := p.codec.Count(page.Content)
		if tokens > p.config.SplitThreshold {
			parts := p.chunks.ThresholdSplit(page.Content, p.config.MaxChunkTokens)
			p.logger.Info("page split", "page", page.PageNumber, "tokens", tokens, "chunks", len(parts))
			for idx, part := range parts {
				items = append(items, models.Chunk{
					Text:        part,
					SourceTitle: page.Title,
					SourceURL:   page.URL,
					PageNumber:  page.PageNumber,
					PageLength:  page.LengthLabel,
					ChunkIndex:  idx,
					IsSplit:     true,
				})
			}
			continue
		}
		items = append(items, models.Chunk{
			Text:        page.Content,
			SourceTitle: page.Title,
			SourceURL:   page.URL,
			PageNumber:  page.PageNumber,
			PageLength:  page.LengthLabel,
			ChunkIndex:  0,
			IsSplit:     false,
		})
	}
	return items
}
