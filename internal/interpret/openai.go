package interpret

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"glove-backend/internal/models"
)

const fallbackInterpretation = "Unable to interpret gesture"

// OpenAIConfig configures the external-inference strategy.
type OpenAIConfig struct {
	APIKey    string
	BaseURL   string // e.g. https://api.openai.com/v1
	Model     string
	MaxTokens int
}

// OpenAI interprets gestures through an OpenAI-compatible chat completions
// endpoint, asking for a JSON object reply. It never retries.
type OpenAI struct {
	httpClient *http.Client
	cfg        OpenAIConfig
	now        func() time.Time
}

// NewOpenAI creates the external strategy. httpClient may be nil; no client
// timeout is set so callers control the deadline through ctx.
func NewOpenAI(cfg OpenAIConfig, httpClient *http.Client) *OpenAI {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &OpenAI{httpClient: httpClient, cfg: cfg, now: time.Now}
}

func (o *OpenAI) Interpret(ctx context.Context, req *models.InterpretationRequest) (*models.InterpretationResult, error) {
	reply, err := o.complete(ctx, BuildPrompt(req))
	if err != nil {
		return nil, &InterpretationFailure{Cause: err}
	}

	result, err := parseReply(reply)
	if err != nil {
		return nil, &InterpretationFailure{Cause: err}
	}
	result.Timestamp = o.now().UnixMilli()
	return result, nil
}

func (o *OpenAI) complete(ctx context.Context, prompt string) (string, error) {
	wireRequest := chatRequest{
		Model: o.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		ResponseFormat:      &responseFormat{Type: "json_object"},
		MaxCompletionTokens: o.cfg.MaxTokens,
	}

	body, err := json.Marshal(wireRequest)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	httpRequest, err := http.NewRequestWithContext(ctx, http.MethodPost, o.cfg.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	httpRequest.Header.Set("Content-Type", "application/json")
	httpRequest.Header.Set("Authorization", "Bearer "+o.cfg.APIKey)

	httpResponse, err := o.httpClient.Do(httpRequest)
	if err != nil {
		return "", fmt.Errorf("sending request: %w", err)
	}
	defer httpResponse.Body.Close()

	if httpResponse.StatusCode != http.StatusOK {
		return "", readProviderError(httpResponse)
	}

	var wireResponse chatResponse
	if err := json.NewDecoder(httpResponse.Body).Decode(&wireResponse); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	if len(wireResponse.Choices) == 0 {
		return "", errors.New("response contained no choices")
	}
	return wireResponse.Choices[0].Message.Content, nil
}

// modelReply is the JSON object the model is asked to produce. Fields are
// loosely typed because models answer "85" or 87.5 as readily as 85.
type modelReply struct {
	InterpretedText   any `json:"interpretedText"`
	Command           any `json:"command"`
	Confidence        any `json:"confidence"`
	ActionDescription any `json:"actionDescription"`
}

func parseReply(content string) (*models.InterpretationResult, error) {
	if strings.TrimSpace(content) == "" {
		content = "{}"
	}

	var reply modelReply
	if err := json.Unmarshal([]byte(content), &reply); err != nil {
		return nil, fmt.Errorf("parsing model reply: %w", err)
	}

	result := &models.InterpretationResult{
		InterpretedText:   replyString(reply.InterpretedText),
		Command:           replyString(reply.Command),
		ActionDescription: replyString(reply.ActionDescription),
	}
	if strings.TrimSpace(result.InterpretedText) == "" {
		result.InterpretedText = fallbackInterpretation
	}
	if c, ok := replyNumber(reply.Confidence); ok {
		result.Confidence = clampFloatConfidence(c)
	}
	return result, nil
}

// replyString renders scalar reply values as text. Objects, arrays and null
// yield "".
func replyString(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	}
	return ""
}

// replyNumber accepts JSON numbers and numeric strings.
func replyNumber(v any) (float64, bool) {
	var f float64
	switch v := v.(type) {
	case float64:
		f = v
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

func clampFloatConfidence(c float64) int {
	if c <= 0 {
		return 0
	}
	if c >= 100 {
		return 100
	}
	return models.ClampConfidence(int(math.Round(c)))
}

// ProviderError is a non-200 reply from the chat completions endpoint.
type ProviderError struct {
	StatusCode int
	Type       string
	Message    string
}

func (e *ProviderError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("provider returned %d (%s): %s", e.StatusCode, e.Type, e.Message)
	}
	return fmt.Sprintf("provider returned %d: %s", e.StatusCode, e.Message)
}

// readProviderError parses {"error":{"type":"...","message":"..."}} bodies,
// falling back to the raw (truncated) body text.
func readProviderError(httpResponse *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(httpResponse.Body, 4096))

	var wireError struct {
		Error struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &wireError) == nil && wireError.Error.Message != "" {
		return &ProviderError{
			StatusCode: httpResponse.StatusCode,
			Type:       wireError.Error.Type,
			Message:    wireError.Error.Message,
		}
	}
	return &ProviderError{StatusCode: httpResponse.StatusCode, Message: string(body)}
}

// --- chat completions wire types ---

type chatRequest struct {
	Model               string          `json:"model"`
	Messages            []chatMessage   `json:"messages"`
	ResponseFormat      *responseFormat `json:"response_format,omitempty"`
	MaxCompletionTokens int             `json:"max_completion_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	ID      string       `json:"id"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
}

type chatChoice struct {
	Index        int         `json:"index"`
	Message      chatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}
