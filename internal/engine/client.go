/*
PURPOSE:
  HTTP client for the llama-server /completion endpoint.
  One blocking, non-streaming request per conversation turn.

REQUIREMENTS:
  User-specified:
  - Request body: {prompt, n_predict, temperature: 0.2,
    stop: ["<|im_end|>", "</s>", "User:"], stream: false}.
  - 120-second request timeout; no retry on failure.
  - Any transport failure or non-success status abandons the turn: the
    caller logs and moves on.

  Implementation-discovered:
  - Low temperature keeps replay runs comparable across models.
  - The response's timings sub-object is the entire point; content is only
    needed to rebuild turn-2 context.

ARCHITECTURE INTEGRATION:
  - Called by: internal/engine/runner.go
  - Uses: internal/config, internal/model, internal/output

ERROR HANDLING:
  - Returns explicit errors; classification (recoverable-per-turn) happens
    in the runner.

IMPLEMENTATION RULES:
  - Use net/http with a request context.
  - Do not stream; server-side timings are only complete on the final body.

USAGE:
  c := engine.NewClient(cfg)
  resp, err := c.Complete(ctx, prompt)

SELF-HEALING INSTRUCTIONS:
  - If llama.cpp renames /completion (newer builds also expose
    /v1/completions), update the endpoint here.

RELATED FILES:
  - internal/engine/prompt.go
  - internal/engine/runner.go

MAINTENANCE:
  - Update stop sequences if a non-chatml template family is adopted.
*/

package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/lcarvalho/mtbench-runner/internal/config"
	"github.com/lcarvalho/mtbench-runner/internal/model"
)

// completionTimeout bounds one turn end to end. There is no retry: a turn
// that cannot finish inside this window is dropped.
const completionTimeout = 120 * time.Second

// completionTemperature favors deterministic, comparable replies.
const completionTemperature = 0.2

// stopSequences are the end-of-turn markers for chatml-style templates.
var stopSequences = []string{"<|im_end|>", "</s>", "User:"}

// CompletionRequest is the llama-server /completion request body.
type CompletionRequest struct {
	Prompt      string   `json:"prompt"`
	NPredict    int      `json:"n_predict"`
	Temperature float64  `json:"temperature"`
	Stop        []string `json:"stop"`
	Stream      bool     `json:"stream"`
}

// CompletionResponse is the subset of the /completion reply we consume.
type CompletionResponse struct {
	Content string        `json:"content"`
	Timings model.Timings `json:"timings"`
}

// Client issues completion requests against the supervised server.
type Client struct {
	cfg  *config.Config
	http *http.Client
}

// NewClient creates a completion client for the configured server binding.
func NewClient(cfg *config.Config) *Client {
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: completionTimeout},
	}
}

// Complete runs one non-streaming completion for prompt.
func (c *Client) Complete(ctx context.Context, prompt string) (*CompletionResponse, error) {
	body, err := json.Marshal(CompletionRequest{
		Prompt:      prompt,
		NPredict:    c.cfg.TokensToGenerate,
		Temperature: completionTemperature,
		Stop:        stopSequences,
		Stream:      false,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.ServerURL()+"/completion", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("completion request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("completion returned %s: %s", resp.Status, string(b))
	}

	var data CompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("completion returned invalid JSON: %w", err)
	}

	return &data, nil
}
