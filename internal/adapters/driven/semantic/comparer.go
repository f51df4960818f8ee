package semantic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/qadhya-labs/qanun-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.SimilarityComparer = (*Comparer)(nil)

// Comparer implements SimilarityComparer against the indexing service.
// The indexing service owns the chunk embeddings, so it answers both
// pairwise similarity and nearest-neighbour candidate queries.
type Comparer struct {
	baseURL    string
	httpClient *http.Client
}

// Config holds indexing service connection configuration
type Config struct {
	// BaseURL is the indexing service endpoint (e.g. http://localhost:8200)
	BaseURL string

	// Timeout for HTTP requests
	Timeout time.Duration
}

// DefaultConfig returns sensible defaults
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL: baseURL,
		Timeout: 30 * time.Second,
	}
}

// NewComparer creates a comparer backed by the indexing service.
func NewComparer(cfg Config) *Comparer {
	return &Comparer{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

type similarityRequest struct {
	TextA string `json:"text_a"`
	TextB string `json:"text_b"`
}

type similarityResponse struct {
	Score float64 `json:"score"`
}

// Similarity returns the embedding cosine similarity of two texts.
func (c *Comparer) Similarity(ctx context.Context, textA, textB string) (float64, error) {
	var resp similarityResponse
	err := c.postJSON(ctx, "/similarity", similarityRequest{TextA: textA, TextB: textB}, &resp)
	if err != nil {
		return 0, err
	}

	score := resp.Score
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}

	return score, nil
}

type candidatesRequest struct {
	DocumentID string `json:"document_id"`
	Limit      int    `json:"limit"`
}

type candidatesResponse struct {
	IDs []string `json:"ids"`
}

// Candidates returns document IDs ranked by rough similarity to the given
// document, nearest first.
func (c *Comparer) Candidates(ctx context.Context, documentID string, limit int) ([]string, error) {
	var resp candidatesResponse
	err := c.postJSON(ctx, "/candidates", candidatesRequest{DocumentID: documentID, Limit: limit}, &resp)
	if err != nil {
		return nil, err
	}

	// The service may not know the document yet (not indexed); an empty
	// candidate set is a valid answer
	return resp.IDs, nil
}

// Ping checks the indexing service is healthy
func (c *Comparer) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("indexing service unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("indexing service unhealthy: %s", resp.Status)
	}

	return nil
}

func (c *Comparer) postJSON(ctx context.Context, path string, reqBody, respBody any) error {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("indexing service request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("indexing service %s failed: %s - %s", path, resp.Status, string(raw))
	}

	if err := json.NewDecoder(resp.Body).Decode(respBody); err != nil {
		return fmt.Errorf("indexing service %s returned invalid JSON: %w", path, err)
	}

	return nil
}
