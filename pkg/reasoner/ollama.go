package reasoner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/looperhq/looper/pkg/httpclient"
)

const defaultOllamaBaseURL = "http://localhost:11434"

// OllamaRequest is the request format for the Ollama chat API.
type OllamaRequest struct {
	Model    string         `json:"model"`
	Messages []ChatMessage  `json:"messages"`
	Stream   bool           `json:"stream"`
	Format   string         `json:"format,omitempty"`
	Options  *OllamaOptions `json:"options,omitempty"`
}

// OllamaOptions contains model parameters for Ollama.
type OllamaOptions struct {
	Temperature float64 `json:"temperature"`
}

// OllamaResponse is the response format from the Ollama chat API.
type OllamaResponse struct {
	Message         ChatMessage `json:"message"`
	Done            bool        `json:"done"`
	PromptEvalCount int         `json:"prompt_eval_count"`
	EvalCount       int         `json:"eval_count"`
	Error           string      `json:"error,omitempty"`
}

// ChatMessage is a single role-tagged message in a chat request.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// OllamaProvider talks to a local Ollama server.
type OllamaProvider struct {
	baseURL    string
	httpClient *httpclient.Client
}

// NewOllamaProvider creates a provider against the given base URL,
// defaulting to the standard local Ollama address.
func NewOllamaProvider(baseURL string) *OllamaProvider {
	if baseURL == "" {
		baseURL = defaultOllamaBaseURL
	}
	return &OllamaProvider{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: httpclient.New(
			httpclient.WithHTTPClient(&http.Client{Timeout: 120 * time.Second}),
			httpclient.WithMaxRetries(2),
			httpclient.WithHeaderParser(httpclient.ParseRetryAfterHeader),
		),
	}
}

func (p *OllamaProvider) Name() string {
	return "ollama"
}

func (p *OllamaProvider) Complete(ctx context.Context, model, system, user string) (string, int, error) {
	reqBody := OllamaRequest{
		Model: model,
		Messages: []ChatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Stream:  false,
		Format:  "json",
		Options: &OllamaOptions{Temperature: 0},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", 0, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/chat", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewBuffer(jsonData)), nil
	}

	// The retry client may return both a response and an error for
	// non-2xx status codes, so inspect the body before the error.
	resp, err := p.httpClient.Do(req)
	if resp != nil {
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			body, readErr := io.ReadAll(resp.Body)
			errorBody := string(body)
			if readErr != nil {
				errorBody = fmt.Sprintf("(failed to read error body: %v)", readErr)
			}
			return "", 0, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, errorBody)
		}
	}
	if err != nil {
		return "", 0, fmt.Errorf("request failed: %w", err)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", 0, fmt.Errorf("failed to read response: %w", err)
	}

	var ollamaResp OllamaResponse
	if err := json.Unmarshal(body, &ollamaResp); err != nil {
		return "", 0, fmt.Errorf("failed to parse response: %w", err)
	}
	if ollamaResp.Error != "" {
		return "", 0, fmt.Errorf("API error: %s", ollamaResp.Error)
	}

	tokens := ollamaResp.PromptEvalCount + ollamaResp.EvalCount
	if tokens == 0 {
		tokens = EstimateTokens(model, system+user, ollamaResp.Message.Content)
	}
	return ollamaResp.Message.Content, tokens, nil
}
