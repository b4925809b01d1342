package ollama

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/campus-rag-assistant/internal/core/domain"
	"github.com/kirillkom/campus-rag-assistant/internal/infrastructure/resilience"
)

type Client struct {
	baseURL    string
	genModel   string
	embedModel string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(baseURL, genModel, embedModel string, executor *resilience.Executor) *Client {
	if executor == nil {
		executor = resilience.NewExecutor(resilience.DefaultConfig(), nil)
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		genModel:   genModel,
		embedModel: embedModel,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		executor:   executor,
	}
}

// Ping lists local models; any 2xx means the daemon is serving.
func (c *Client) Ping(ctx context.Context) error {
	err := c.executor.Execute(ctx, "ollama.tags", func(ctx context.Context) error {
		return c.doJSON(ctx, http.MethodGet, "/api/tags", nil, nil, "tags")
	}, resilience.ClassifyUpstreamError)
	return resilience.WrapUpstream("ollama tags", err)
}

type Embedder struct {
	client *Client
}

func NewEmbedder(client *Client) *Embedder {
	return &Embedder{client: client}
}

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	request := map[string]any{
		"model": e.client.embedModel,
		"input": texts,
	}

	var response struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	err := e.client.executor.Execute(ctx, "ollama.embed", func(ctx context.Context) error {
		return e.client.doJSON(ctx, http.MethodPost, "/api/embed", request, &response, "embed")
	}, resilience.ClassifyUpstreamError)
	if err != nil {
		return nil, resilience.WrapUpstream("ollama embed", err)
	}
	if len(response.Embeddings) != len(texts) {
		return nil, domain.WrapError(domain.ErrTransport, "ollama embed", fmt.Errorf("expected %d embeddings, got %d", len(texts), len(response.Embeddings)))
	}
	return response.Embeddings, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (e *Embedder) ModelName() string {
	return e.client.embedModel
}

type Generator struct {
	client *Client
}

func NewGenerator(client *Client) *Generator {
	return &Generator{client: client}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Complete runs a non-streaming chat completion and returns the trimmed
// assistant message.
func (g *Generator) Complete(ctx context.Context, messages []domain.ChatMessage, temperature float64) (string, error) {
	wire := make([]chatMessage, 0, len(messages))
	for _, m := range messages {
		wire = append(wire, chatMessage{Role: m.Role, Content: m.Content})
	}

	request := map[string]any{
		"model":    g.client.genModel,
		"messages": wire,
		"stream":   false,
		"options": map[string]any{
			"temperature": temperature,
		},
	}

	var response struct {
		Message chatMessage `json:"message"`
	}
	err := g.client.executor.Execute(ctx, "ollama.chat", func(ctx context.Context) error {
		return g.client.doJSON(ctx, http.MethodPost, "/api/chat", request, &response, "chat")
	}, resilience.ClassifyUpstreamError)
	if err != nil {
		return "", resilience.WrapUpstream("ollama chat", err)
	}
	return strings.TrimSpace(response.Message.Content), nil
}

func (g *Generator) Ping(ctx context.Context) error {
	return g.client.Ping(ctx)
}
