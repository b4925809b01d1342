package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/kirillkom/campus-rag-assistant/internal/core/domain"
	"github.com/kirillkom/campus-rag-assistant/internal/infrastructure/resilience"
)

const service = "qdrant"

type Client struct {
	baseURL    string
	collection string
	httpClient *http.Client
	executor   *resilience.Executor

	ensureMu          sync.Mutex
	ensuredCollection bool
	ensuredVectorSize int
}

func New(baseURL, collection string, executor *resilience.Executor) *Client {
	if executor == nil {
		executor = resilience.NewExecutor(resilience.DefaultConfig(), nil)
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		collection: collection,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		executor:   executor,
	}
}

type point struct {
	ID      string         `json:"id"`
	Vector  []float32      `json:"vector"`
	Payload map[string]any `json:"payload"`
}

func (c *Client) Upsert(ctx context.Context, chunks []domain.Chunk, vectors [][]float32) error {
	if len(chunks) == 0 {
		return nil
	}
	if len(chunks) != len(vectors) {
		return domain.WrapError(domain.ErrInvalidInput, "qdrant upsert", fmt.Errorf("chunks/vectors mismatch: %d/%d", len(chunks), len(vectors)))
	}

	points := make([]point, 0, len(chunks))
	for i, chunk := range chunks {
		points = append(points, point{
			ID:     chunk.ID,
			Vector: vectors[i],
			Payload: map[string]any{
				"doc_id":      chunk.DocumentID,
				"source_file": chunk.SourceFile,
				"chunk_index": chunk.ChunkIndex,
				"text":        chunk.Text,
			},
		})
	}

	path := fmt.Sprintf("/collections/%s/points?wait=true", c.collection)
	err := c.executor.Execute(ctx, "qdrant.upsert", func(ctx context.Context) error {
		return c.doJSON(ctx, http.MethodPut, path, map[string]any{"points": points}, nil, "upsert")
	}, resilience.ClassifyUpstreamError)
	return resilience.WrapUpstream("qdrant upsert", err)
}

type scoredPoint struct {
	ID      json.RawMessage `json:"id"`
	Score   float64         `json:"score"`
	Payload map[string]any  `json:"payload"`
}

// Search returns nearest chunks, closest first. A missing collection means
// nothing has been ingested yet and yields no hits.
func (c *Client) Search(ctx context.Context, queryVector []float32, limit int, scoreThreshold float64) ([]domain.ScoredChunk, error) {
	reqBody := map[string]any{
		"vector":       queryVector,
		"limit":        limit,
		"with_payload": true,
	}
	if scoreThreshold > 0 {
		reqBody["score_threshold"] = scoreThreshold
	}

	path := fmt.Sprintf("/collections/%s/points/search", c.collection)
	var resp struct {
		Result []scoredPoint `json:"result"`
	}
	err := c.executor.Execute(ctx, "qdrant.search", func(ctx context.Context) error {
		return c.doJSON(ctx, http.MethodPost, path, reqBody, &resp, "search")
	}, resilience.ClassifyUpstreamError)
	if isNotFound(err) {
		return []domain.ScoredChunk{}, nil
	}
	if err != nil {
		return nil, resilience.WrapUpstream("qdrant search", err)
	}

	out := make([]domain.ScoredChunk, 0, len(resp.Result))
	for _, r := range resp.Result {
		out = append(out, domain.ScoredChunk{
			Chunk: chunkFromPayload(pointID(r.ID), r.Payload),
			Score: r.Score,
		})
	}
	return out, nil
}

// ListAll scrolls the collection. The cursor is Qdrant's next_page_offset kept
// as raw JSON, so both numeric and UUID point ids round-trip.
func (c *Client) ListAll(ctx context.Context, cursor string, limit int) ([]domain.Chunk, string, error) {
	reqBody := map[string]any{
		"limit":        limit,
		"with_payload": true,
		"with_vector":  false,
	}
	if cursor != "" {
		reqBody["offset"] = json.RawMessage(cursor)
	}

	path := fmt.Sprintf("/collections/%s/points/scroll", c.collection)
	var resp struct {
		Result struct {
			Points []struct {
				ID      json.RawMessage `json:"id"`
				Payload map[string]any  `json:"payload"`
			} `json:"points"`
			NextPageOffset json.RawMessage `json:"next_page_offset"`
		} `json:"result"`
	}
	err := c.executor.Execute(ctx, "qdrant.scroll", func(ctx context.Context) error {
		return c.doJSON(ctx, http.MethodPost, path, reqBody, &resp, "scroll")
	}, resilience.ClassifyUpstreamError)
	if isNotFound(err) {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", resilience.WrapUpstream("qdrant scroll", err)
	}

	out := make([]domain.Chunk, 0, len(resp.Result.Points))
	for _, p := range resp.Result.Points {
		out = append(out, chunkFromPayload(pointID(p.ID), p.Payload))
	}

	next := strings.TrimSpace(string(resp.Result.NextPageOffset))
	if next == "null" {
		next = ""
	}
	return out, next, nil
}

func (c *Client) EnsureCollection(ctx context.Context, vectorSize int) error {
	c.ensureMu.Lock()
	if c.ensuredCollection && c.ensuredVectorSize == vectorSize {
		c.ensureMu.Unlock()
		return nil
	}
	c.ensureMu.Unlock()

	reqBody := map[string]any{
		"vectors": map[string]any{
			"size":     vectorSize,
			"distance": "Cosine",
		},
	}

	path := fmt.Sprintf("/collections/%s", c.collection)
	err := c.executor.Execute(ctx, "qdrant.ensure_collection", func(ctx context.Context) error {
		return c.doJSON(ctx, http.MethodPut, path, reqBody, nil, "ensure collection")
	}, resilience.ClassifyUpstreamError)

	// 409 when the collection already exists (depends on version/config).
	if err != nil && !isStatus(err, http.StatusConflict) {
		return resilience.WrapUpstream("qdrant ensure collection", err)
	}
	c.markCollectionEnsured(vectorSize)
	return nil
}

func (c *Client) Ping(ctx context.Context) error {
	err := c.executor.Execute(ctx, "qdrant.ping", func(ctx context.Context) error {
		return c.doJSON(ctx, http.MethodGet, "/collections", nil, nil, "ping")
	}, resilience.ClassifyUpstreamError)
	return resilience.WrapUpstream("qdrant ping", err)
}

func (c *Client) markCollectionEnsured(vectorSize int) {
	c.ensureMu.Lock()
	defer c.ensureMu.Unlock()
	c.ensuredCollection = true
	c.ensuredVectorSize = vectorSize
}

func (c *Client) doJSON(ctx context.Context, method, path string, payload any, out any, operation string) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal %s body: %w", operation, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create %s request: %w", operation, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant %s request: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return resilience.NewStatusError(service, operation, resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", operation, err)
	}
	return nil
}

func isStatus(err error, code int) bool {
	var statusErr *resilience.StatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode == code
}

func isNotFound(err error) bool {
	return isStatus(err, http.StatusNotFound)
}

func chunkFromPayload(id string, payload map[string]any) domain.Chunk {
	return domain.Chunk{
		ID:         id,
		DocumentID: getStringPayload(payload, "doc_id"),
		SourceFile: getStringPayload(payload, "source_file"),
		ChunkIndex: getIntPayload(payload, "chunk_index"),
		Text:       getStringPayload(payload, "text"),
	}
}

// pointID renders a Qdrant point id (UUID string or unsigned integer).
func pointID(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

func getStringPayload(payload map[string]any, key string) string {
	v, ok := payload[key]
	if !ok || v == nil {
		return ""
	}
	s, ok := v.(string)
	if ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func getIntPayload(payload map[string]any, key string) int {
	switch v := payload[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case string:
		n, _ := strconv.Atoi(v)
		return n
	default:
		return 0
	}
}
