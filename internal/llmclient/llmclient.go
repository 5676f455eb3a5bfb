// Package llmclient is the outbound LLM client used by the llm_generate
// leaf step. It replaces the teacher's ModelRouter/ProviderDriver stack
// (internal/router, a multi-provider registry dispatching chat requests
// to OpenAI/Anthropic/etc. drivers) with a single HTTP-based client aimed
// at one OpenAI-compatible chat completions endpoint per model identifier
// — the registry-of-drivers shape survives one level up, in the Step
// Registry itself (llm_generate is the "driver" for the "LLM provider"
// concern, the same way the teacher's ProviderDriver was the driver for
// its ModelRouter). Retries use cenkalti/backoff/v4; the teacher's router
// does no backoff retry of its own and lists that module only as an
// indirect dependency.
package llmclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Request is one chat-style generation request.
type Request struct {
	Model  string // "provider/model_name", e.g. "openai/gpt-4o-mini"
	Prompt string
}

// Client generates text completions against a configured LLM provider
// endpoint.
type Client struct {
	httpClient *http.Client
	maxRetries uint64
}

// New builds a Client. httpClient may be nil to use http.DefaultClient.
func New(httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{httpClient: httpClient, maxRetries: 3}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Generate sends req to the provider named by the "provider/model" prefix
// of req.Model and returns the completion text. Transient failures (5xx,
// network errors) are retried with exponential backoff; a 4xx or a
// provider-reported error is returned immediately without retry.
func (c *Client) Generate(ctx context.Context, req Request) (string, error) {
	provider, model, err := splitModel(req.Model)
	if err != nil {
		return "", err
	}

	endpoint, apiKey, err := providerEndpoint(provider)
	if err != nil {
		return "", err
	}

	body, err := json.Marshal(chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "user", Content: req.Prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("llmclient: marshal request: %w", err)
	}

	var result string
	operation := func() error {
		out, retryable, err := c.doRequest(ctx, endpoint, apiKey, body)
		if err != nil {
			if retryable {
				return err
			}
			return backoff.Permanent(err)
		}
		result = out
		return nil
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.maxRetries), ctx)
	if err := backoff.Retry(operation, bo); err != nil {
		return "", fmt.Errorf("llmclient: generate via %s: %w", provider, err)
	}
	return result, nil
}

func (c *Client) doRequest(ctx context.Context, endpoint, apiKey string, body []byte) (string, bool, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultTimeout)
		defer cancel()
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", false, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", true, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", true, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 500 {
		return "", true, fmt.Errorf("provider returned %d: %s", resp.StatusCode, string(data))
	}
	if resp.StatusCode >= 400 {
		return "", false, fmt.Errorf("provider returned %d: %s", resp.StatusCode, string(data))
	}

	var parsed chatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", false, fmt.Errorf("decode response: %w", err)
	}
	if parsed.Error != nil {
		return "", false, fmt.Errorf("provider error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", false, fmt.Errorf("provider returned no choices")
	}
	return parsed.Choices[0].Message.Content, false, nil
}

func splitModel(model string) (provider, name string, err error) {
	parts := strings.SplitN(model, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("llmclient: model %q must be in \"provider/model\" form", model)
	}
	return parts[0], parts[1], nil
}

// providerEndpoint resolves a provider name to its chat-completions
// endpoint and API key, read from environment variables so no provider
// credentials live in a recipe file.
func providerEndpoint(provider string) (endpoint, apiKey string, err error) {
	envPrefix := "RECIPEFORGE_LLM_" + strings.ToUpper(provider) + "_"
	endpoint = os.Getenv(envPrefix + "ENDPOINT")
	apiKey = os.Getenv(envPrefix + "API_KEY")

	if endpoint == "" {
		switch provider {
		case "openai":
			endpoint = "https://api.openai.com/v1/chat/completions"
		case "azure_openai":
			return "", "", fmt.Errorf("llmclient: azure_openai requires %sENDPOINT to be set", envPrefix)
		default:
			return "", "", fmt.Errorf("llmclient: unknown provider %q (set %sENDPOINT to use a custom provider)", provider, envPrefix)
		}
	}
	return endpoint, apiKey, nil
}

// defaultTimeout bounds a single attempt when the caller's context carries
// no deadline of its own.
const defaultTimeout = 60 * time.Second
