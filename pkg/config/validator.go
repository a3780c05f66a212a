package config

import (
	"fmt"
	"net/url"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	if c.LLM.APIKey == "" {
		errors = append(errors, ValidationError{
			Field:   "llm.api_key",
			Message: "embedding/generation API key is required",
		})
	}

	if c.LLM.MaxTokens < 1 || c.LLM.MaxTokens > 4096 {
		errors = append(errors, ValidationError{
			Field:   "llm.max_tokens",
			Message: "max_tokens must be between 1 and 4096",
		})
	}

	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errors = append(errors, ValidationError{
			Field:   "llm.temperature",
			Message: "temperature must be between 0 and 2",
		})
	}

	if c.LLM.EmbeddingDim < 1 {
		errors = append(errors, ValidationError{
			Field:   "llm.embedding_dim",
			Message: "embedding_dim must be positive",
		})
	}

	if c.Database.URL != "" {
		if _, err := url.Parse(c.Database.URL); err != nil {
			errors = append(errors, ValidationError{
				Field:   "database.url",
				Message: "invalid database URL",
			})
		}
	}

	if c.Ingest.BatchSize < 1 {
		errors = append(errors, ValidationError{
			Field:   "ingest.batch_size",
			Message: "batch_size must be positive",
		})
	}

	if c.Ingest.MaxChunkTokens > c.Ingest.SplitThreshold {
		errors = append(errors, ValidationError{
			Field:   "ingest.max_chunk_tokens",
			Message: "max_chunk_tokens must not exceed split_threshold",
		})
	}

	if c.Chunker.ChunkOverlap < 0 || c.Chunker.ChunkOverlap >= c.Chunker.ChunkSize {
		errors = append(errors, ValidationError{
			Field:   "chunker.chunk_overlap",
			Message: "chunk_overlap must be non-negative and less than chunk_size",
		})
	}

	if c.Retrieval.TopK < 1 {
		errors = append(errors, ValidationError{
			Field:   "retrieval.top_k",
			Message: "top_k must be positive",
		})
	}

	if c.History.MaxHistory < 1 {
		errors = append(errors, ValidationError{
			Field:   "history.max_history",
			Message: "max_history must be positive",
		})
	}

	if c.Telegram.Enabled && c.Telegram.Token == "" {
		errors = append(errors, ValidationError{
			Field:   "telegram.token",
			Message: "token is required when telegram is enabled",
		})
	}

	if c.Messenger.Enabled {
		if c.Messenger.PageAccessToken == "" {
			errors = append(errors, ValidationError{
				Field:   "messenger.page_access_token",
				Message: "page_access_token is required when messenger is enabled",
			})
		}
		if c.Messenger.VerifyToken == "" {
			errors = append(errors, ValidationError{
				Field:   "messenger.verify_token",
				Message: "verify_token is required when messenger is enabled",
			})
		}
		if c.Messenger.AppSecret == "" && !c.Messenger.AllowUnsigned {
			errors = append(errors, ValidationError{
				Field:   "messenger.app_secret",
				Message: "app_secret is required unless allow_unsigned is set explicitly",
			})
		}
	}

	return errors
}
