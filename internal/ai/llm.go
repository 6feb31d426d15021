package ai

import (
	"context"
	"time"
)

// Gateway binds an OpenAI-compatible client to fixed chat and embedding
// configs so callers don't carry credentials around.
type Gateway struct {
	client *OpenAICompatibleClient
	chat   ChatConfig
	embed  EmbeddingConfig
}

func NewGateway(chat ChatConfig, embed EmbeddingConfig, timeout time.Duration) *Gateway {
	return &Gateway{
		client: NewOpenAICompatibleClient(timeout),
		chat:   chat,
		embed:  embed,
	}
}

// Complete sends a system+user prompt pair and returns the assistant text.
func (g *Gateway) Complete(ctx context.Context, system, user string) (string, error) {
	messages := []ChatMessage{
		{Role: "system", Content: system},
		{Role: "user", Content: user},
	}
	return g.client.Complete(ctx, g.chat, messages)
}

// Embed returns the embedding vector for text.
func (g *Gateway) Embed(ctx context.Context, text string) ([]float32, error) {
	return g.client.Embed(ctx, g.embed, text)
}
