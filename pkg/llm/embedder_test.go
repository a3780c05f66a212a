package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEmbedderRequiresKey(t *testing.T) {
	_, err := NewEmbedder(EmbedderConfig{})
	assert.Error(t, err)
}

func TestNewEmbedderDefaults(t *testing.T) {
	e, err := NewEmbedder(EmbedderConfig{APIKey: "test-key"})
	require.NoError(t, err)
	assert.Equal(t, 3072, e.Dimensions())
	assert.Equal(t, "text-embedding-3-large", e.config.Model)
}

func TestNewEmbedderCustomDimensions(t *testing.T) {
	e, err := NewEmbedder(EmbedderConfig{APIKey: "test-key", Model: "text-embedding-3-small", Dimensions: 1536})
	require.NoError(t, err)
	assert.Equal(t, 1536, e.Dimensions())
}
