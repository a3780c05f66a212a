package store

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentia-ai/ragbot/internal/models"
)

func TestSearchRequiresLoad(t *testing.T) {
	vs := &VectorStore{config: VectorStoreConfig{VectorDim: 4}}

	_, err := vs.Search(context.Background(), []float32{1, 2, 3, 4}, 5)
	assert.ErrorIs(t, err, ErrNotLoaded)
}

func TestInsertRejectsDimensionMismatch(t *testing.T) {
	vs := &VectorStore{config: VectorStoreConfig{VectorDim: 4}}

	_, err := vs.Insert(context.Background(), []models.IndexedRecord{
		{Chunk: models.Chunk{Text: "x"}, Embedding: []float32{1, 2}},
	})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestSearchRejectsDimensionMismatch(t *testing.T) {
	vs := &VectorStore{config: VectorStoreConfig{VectorDim: 4}, loaded: true}

	_, err := vs.Search(context.Background(), []float32{1, 2}, 5)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestFlushWithoutInsertsIsNoOp(t *testing.T) {
	vs := &VectorStore{config: VectorStoreConfig{VectorDim: 4}}
	assert.NoError(t, vs.Flush(context.Background()))
}

func TestSanitizeUTF8(t *testing.T) {
	assert.Equal(t, "xin chào", sanitizeUTF8("xin chào"))
	assert.Equal(t, "", sanitizeUTF8(""))

	broken := "abc\xff\xfedef"
	cleaned := sanitizeUTF8(broken)
	assert.True(t, utf8.ValidString(cleaned))
	assert.Equal(t, "abcdef", cleaned)
}

func TestTruncateUTF8(t *testing.T) {
	assert.Equal(t, "short", truncateUTF8("short", 100))

	long := strings.Repeat("a", 200)
	assert.Equal(t, strings.Repeat("a", 100), truncateUTF8(long, 100))
}

func TestTruncateUTF8DoesNotSplitRunes(t *testing.T) {
	// "Trường" has multi-byte runes; a byte cut may land mid-rune.
	text := strings.Repeat("Trường học ", 50)
	for max := 10; max < 40; max++ {
		cut := truncateUTF8(text, max)
		require.True(t, utf8.ValidString(cut), "invalid UTF-8 at max %d", max)
		assert.LessOrEqual(t, len(cut), max)
	}
}
