// Package openaiapi fulfils delegated tasks with single-shot calls to
// the OpenAI Responses API.
package openaiapi

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
)

// Client issues one Responses API request per task call.
type Client struct {
	cfg    Config
	client openai.Client
}

// NewClient resolves credentials and defaults from cfg. The API key is
// read from cfg.APIKey, falling back to the configured environment
// variable.
func NewClient(cfg Config, httpClient *http.Client) (*Client, error) {
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		return nil, fmt.Errorf("openai model is required")
	}

	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		envKey := strings.TrimSpace(cfg.APIKeyEnv)
		if envKey == "" {
			envKey = defaultAPIKeyEnv
		}
		apiKey = strings.TrimSpace(os.Getenv(envKey))
	}
	if apiKey == "" {
		return nil, fmt.Errorf("openai api key is required (set api_key or api_key_env)")
	}

	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
		option.WithRequestTimeout(timeout),
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}

	return &Client{
		cfg: Config{
			Model:   model,
			BaseURL: baseURL,
			Timeout: timeout,
		},
		client: openai.NewClient(opts...),
	}, nil
}

// Complete sends one task call and returns the model output text. The
// output schema, when present, is appended to the prompt so the model
// sees the shape the step expects back.
func (c *Client) Complete(ctx context.Context, call TaskCall) (TaskReply, error) {
	instructions := call.Prompt
	if schema := strings.TrimSpace(call.OutputSchema); schema != "" {
		instructions += "Output schema:\n" + schema + "\n"
	}

	resp, err := c.client.Responses.New(ctx, responses.ResponseNewParams{
		Model:        c.cfg.Model,
		Instructions: openai.String(instructions),
		Input: responses.ResponseNewParamsInputUnion{
			OfString: openai.String(call.ContextJSON),
		},
	})
	if err != nil {
		return TaskReply{}, fmt.Errorf("openai responses.create: %w", err)
	}
	if msg := strings.TrimSpace(resp.Error.Message); msg != "" {
		return TaskReply{}, fmt.Errorf("openai response failed: %s", msg)
	}

	output := strings.TrimSpace(resp.OutputText())
	if output == "" {
		return TaskReply{}, fmt.Errorf("openai response did not contain output text")
	}

	return TaskReply{OutputText: output}, nil
}
