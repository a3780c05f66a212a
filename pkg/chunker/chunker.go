package chunker

import (
	"fmt"

	"github.com/sentia-ai/ragbot/internal/types"
)

// Defaults for the overlapping-window policy, tuned for ad-hoc document
// ingestion.
const (
	DefaultChunkSize = 512
	DefaultOverlap   = 150
)

// Defaults for the threshold-split policy used on oversized crawl pages.
const (
	DefaultSplitThreshold = 6500
	DefaultMaxTokens      = 6000
)

// Chunker splits text into token-bounded windows using one shared codec.
type Chunker struct {
	codec types.TokenCodec
}

func New(codec types.TokenCodec) *Chunker {
	return &Chunker{codec: codec}
}

// SlidingWindow slides a window of chunkSize tokens across the text,
// advancing by chunkSize-overlap each step, and decodes each window back to
// text. The final window may be shorter than chunkSize. Overlap must be
// strictly less than chunkSize or the step is non-positive.
func (c *Chunker) SlidingWindow(text string, chunkSize, overlap int) ([]string, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = DefaultOverlap
	}
	if overlap >= chunkSize {
		return nil, fmt.Errorf("overlap %d must be less than chunk size %d", overlap, chunkSize)
	}

	tokens := c.codec.Encode(text)
	if len(tokens) == 0 {
		return nil, nil
	}

	step := chunkSize - overlap
	var chunks []string
	for start := 0; start < len(tokens); start += step {
		end := start + chunkSize
		if end > len(tokens) {
			end = len(tokens)
		}
		chunks = append(chunks, c.codec.Decode(tokens[start:end]))
		if end == len(tokens) {
			break
		}
	}
	return chunks, nil
}

// ThresholdSplit returns the text unchanged as a single chunk when its token
// count is at most maxTokens. Otherwise it splits into non-overlapping
// segments of at most maxTokens in token order, the last segment carrying
// the remainder. Non-overlapping segments keep duplicate content out of the
// index at the cost of continuity at the boundaries.
func (c *Chunker) ThresholdSplit(text string, maxTokens int) []string {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	tokens := c.codec.Encode(text)
	if len(tokens) <= maxTokens {
		return []string{text}
	}

	var chunks []string
	for start := 0; start < len(tokens); start += maxTokens {
		end := start + maxTokens
		if end > len(tokens) {
			end = len(tokens)
		}
		chunks = append(chunks, c.codec.Decode(tokens[start:end]))
	}
	return chunks
}
