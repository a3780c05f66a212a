package pipeline

import (
	"context"
	"log/slog"

	"github.com/sentia-ai/ragbot/internal/models"
	"github.com/sentia-ai/ragbot/internal/types"
	"github.com/sentia-ai/ragbot/pkg/llm"
	"github.com/sentia-ai/ragbot/pkg/retrieval"
)

// maxSources caps the citations attached to a reply.
const maxSources = 3

// Composer is the generation side of the round trip.
type Composer interface {
	Compose(ctx context.Context, query string, hits []models.SearchHit, history []models.Turn) (string, error)
}

// Pipeline is the retrieve-and-respond orchestrator shared by every channel.
// One inbound message maps to one Respond call; calls for the same session
// are serialized on the session lock.
type Pipeline struct {
	retriever types.Retriever
	composer  Composer
	sessions  types.SessionStore
	topK      int
	logger    *slog.Logger
}

func New(retriever types.Retriever, composer Composer, sessions types.SessionStore, topK int, logger *slog.Logger) *Pipeline {
	if topK <= 0 {
		topK = retrieval.DefaultTopK
	}
	return &Pipeline{
		retriever: retriever,
		composer:  composer,
		sessions:  sessions,
		topK:      topK,
		logger:    logger,
	}
}

// Respond appends the user turn, retrieves grounding passages, composes the
// reply, and appends the assistant turn. Provider failures surface as the
// fixed apology text so no channel handler ever crashes or goes silent.
func (p *Pipeline) Respond(ctx context.Context, sessionID, query string) (models.Reply, error) {
	unlock := p.sessions.Lock(sessionID)
	defer unlock()

	p.sessions.Append(sessionID, models.Turn{Role: models.RoleUser, Content: query})

	hits, err := p.retriever.Search(ctx, query, p.topK)
	if err != nil {
		p.logger.Error("retrieval failed", "session", sessionID, "err", err)
		return models.Reply{Text: llm.ErrorReply}, err
	}

	if len(hits) == 0 {
		return models.Reply{Text: llm.NoInformationReply}, nil
	}

	reply, err := p.composer.Compose(ctx, query, hits, p.sessions.Get(sessionID))
	if err != nil {
		p.logger.Error("generation failed", "session", sessionID, "err", err)
		return models.Reply{Text: llm.ErrorReply}, err
	}

	p.sessions.Append(sessionID, models.Turn{Role: models.RoleAssistant, Content: reply})

	return models.Reply{
		Text:        reply,
		Sources:     retrieval.Sources(hits, maxSources),
		TotalChunks: len(hits),
	}, nil
}

// Clear drops the session's history.
func (p *Pipeline) Clear(sessionID string) {
	p.sessions.Clear(sessionID)
}
