package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultEndpoint = "https://openrouter.ai/api/v1/chat/completions"
	// Free-tier completions can take a while; a single bounded attempt, no
	// retries. Retry policy belongs to the caller.
	requestTimeout = 90 * time.Second

	noInsightFallback = "No insight from LLM."
)

type GatewayErrorKind string

const (
	GatewayTimeout           GatewayErrorKind = "timeout"
	GatewayUnreachable       GatewayErrorKind = "unreachable"
	GatewayUpstreamStatus    GatewayErrorKind = "upstream_status"
	GatewayMalformedResponse GatewayErrorKind = "malformed_response"
	GatewayUpstreamError     GatewayErrorKind = "upstream_error"
)

// GatewayError classifies a failed upstream completion call. Status is set
// only for GatewayUpstreamStatus and carries the upstream HTTP status so the
// caller can forward it verbatim.
type GatewayError struct {
	Kind   GatewayErrorKind
	Status int
	Detail string
}

func (e *GatewayError) Error() string {
	if e.Kind == GatewayUpstreamStatus {
		return fmt.Sprintf("upstream returned status %d: %s", e.Status, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

// OpenRouterClient calls the OpenRouter chat-completions endpoint.
type OpenRouterClient struct {
	client   *http.Client
	endpoint string
	apiKey   string
	model    string
	referer  string
	appTitle string
}

func NewOpenRouterClient(apiKey, model, referer, appTitle string) *OpenRouterClient {
	return &OpenRouterClient{
		client:   &http.Client{Timeout: requestTimeout},
		endpoint: defaultEndpoint,
		apiKey:   apiKey,
		model:    model,
		referer:  referer,
		appTitle: appTitle,
	}
}

type chatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
}

// Complete sends the prompt upstream once and extracts the model's answer
// text. All failure modes map to *GatewayError; a 200 response whose choices
// hold no content is not a failure and yields the fallback text.
func (c *OpenRouterClient) Complete(ctx context.Context, prompt Prompt) (string, error) {
	body, err := json.Marshal(chatRequest{Model: c.model, Messages: prompt.Messages()})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("HTTP-Referer", c.referer)
	req.Header.Set("X-Title", c.appTitle)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", classifyTransportError(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &GatewayError{Kind: GatewayUnreachable, Detail: err.Error()}
	}

	if resp.StatusCode != http.StatusOK {
		return "", &GatewayError{
			Kind:   GatewayUpstreamStatus,
			Status: resp.StatusCode,
			Detail: strings.TrimSpace(string(raw)),
		}
	}

	var result map[string]any
	if err := json.Unmarshal(raw, &result); err != nil {
		return "", &GatewayError{Kind: GatewayMalformedResponse, Detail: err.Error()}
	}

	_, hasErr := result["error"]
	choices, hasChoices := result["choices"]
	if hasErr || !hasChoices {
		return "", &GatewayError{Kind: GatewayUpstreamError, Detail: upstreamErrorMessage(result)}
	}

	return extractInsight(choices), nil
}

func classifyTransportError(err error) *GatewayError {
	var urlErr *url.Error
	if (errors.As(err, &urlErr) && urlErr.Timeout()) || errors.Is(err, context.DeadlineExceeded) {
		return &GatewayError{Kind: GatewayTimeout, Detail: "upstream request timed out"}
	}
	return &GatewayError{Kind: GatewayUnreachable, Detail: err.Error()}
}

func upstreamErrorMessage(result map[string]any) string {
	if errObj, ok := result["error"].(map[string]any); ok {
		if msg, ok := errObj["message"].(string); ok && msg != "" {
			return msg
		}
	}
	return "unknown LLM error"
}

// extractInsight walks choices[0].message.content. Any missing segment of the
// path falls through to the fallback text; absent content is not an error.
func extractInsight(v any) string {
	choices, ok := v.([]any)
	if !ok || len(choices) == 0 {
		return noInsightFallback
	}
	first, ok := choices[0].(map[string]any)
	if !ok {
		return noInsightFallback
	}
	message, ok := first["message"].(map[string]any)
	if !ok {
		return noInsightFallback
	}
	content, ok := message["content"].(string)
	if !ok {
		return noInsightFallback
	}
	return content
}
