package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/avast/retry-go"
	"resty.dev/v3"

	"github.com/at-ishikawa/lexipack/internal/translation"
)

const DefaultBaseURL = "https://api.openai.com/v1"

type Client struct {
	httpClient       *resty.Client
	apiKey           string
	model            string
	maxRetryAttempts uint
	retryDelay       time.Duration
}

func NewClient(apiKey, model, baseURL string, retryAttempts uint) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetHeader("Authorization", "Bearer "+apiKey)
	client.SetHeader("Content-Type", "application/json")

	return &Client{
		httpClient:       client,
		apiKey:           apiKey,
		model:            model,
		maxRetryAttempts: retryAttempts,
		retryDelay:       100 * time.Millisecond,
	}
}

func (client *Client) Close() error {
	return client.httpClient.Close()
}

type ChatCompletionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float32   `json:"temperature,omitempty"`
}

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

type Role string

const (
	RoleSystem Role = "system"
	RoleUser   Role = "user"
)

type ChatCompletionResponse struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`
}

type Choice struct {
	Index        int           `json:"index"`
	Message      ChoiceMessage `json:"message"`
	FinishReason string        `json:"finish_reason"`
}

type ChoiceMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type translationInput struct {
	From string `json:"from"`
	To   string `json:"to"`
	Text string `json:"text"`
}

type translationOutput struct {
	Translation string  `json:"translation"`
	Confidence  float64 `json:"confidence"`
}

const systemPrompt = `You are a bilingual dictionary and translator for language learners.

INPUT: a JSON object {"from": "<language code>", "to": "<language code>", "text": "<word or passage>"}.

OUTPUT: ONLY a JSON object {"translation": "<text in the target language>", "confidence": <number between 0 and 1>}.
- For a single word, give its most common translation, not a definition.
- For a passage, translate it faithfully and keep its punctuation.
- If the text cannot be translated, return an empty translation with confidence 0.
- No text outside the JSON.`

// isRetryableError determines if an error should trigger a retry
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	// Incomplete responses fail to parse
	errStr := err.Error()
	if strings.Contains(errStr, "json.Unmarshal") || strings.Contains(errStr, "unexpected end of JSON input") {
		return true
	}

	if strings.Contains(errStr, "connection refused") || strings.Contains(errStr, "i/o timeout") {
		return true
	}

	if strings.Contains(errStr, "response error 5") {
		return true
	}

	if strings.Contains(errStr, "response error 429") {
		return true
	}

	return false
}

// IsAvailable reports whether an API key is configured.
func (client *Client) IsAvailable(_ context.Context) bool {
	return client.apiKey != ""
}

// Translate implements translation.Translator
func (client *Client) Translate(
	ctx context.Context,
	text string,
	options translation.Options,
) (translation.Result, error) {
	if !client.IsAvailable(ctx) {
		return translation.Result{}, translation.ErrUnavailable
	}

	var result translation.Result
	if err := retry.Do(
		func() error {
			response, err := client.translate(ctx, text, options)
			if err != nil {
				if !isRetryableError(err) {
					return retry.Unrecoverable(err)
				}
				return err
			}
			result = response
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(client.maxRetryAttempts+1),
		retry.Delay(client.retryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	); err != nil {
		return translation.Result{}, err
	}
	return result, nil
}

func (client *Client) getRequestBody(text string, options translation.Options) (ChatCompletionRequest, error) {
	input, err := json.Marshal(translationInput{From: options.From, To: options.To, Text: text})
	if err != nil {
		return ChatCompletionRequest{}, fmt.Errorf("json.Marshal > %w", err)
	}
	return ChatCompletionRequest{
		Model: client.model,
		Messages: []Message{
			{Role: RoleSystem, Content: systemPrompt},
			{Role: RoleUser, Content: string(input)},
		},
		Temperature: 0,
	}, nil
}

func (client *Client) translate(
	ctx context.Context,
	text string,
	options translation.Options,
) (translation.Result, error) {
	requestBody, err := client.getRequestBody(text, options)
	if err != nil {
		return translation.Result{}, fmt.Errorf("getRequestBody > %w", err)
	}

	response, err := client.httpClient.R().
		SetContext(ctx).
		SetBody(requestBody).
		SetResult(&ChatCompletionResponse{}).
		Post("/chat/completions")
	if err != nil {
		return translation.Result{}, fmt.Errorf("httpClient.Post > %w", err)
	}
	if response.IsError() {
		return translation.Result{}, fmt.Errorf("response error %d: %s", response.StatusCode(), response.String())
	}

	responseBody := response.Result().(*ChatCompletionResponse)
	if responseBody == nil || len(responseBody.Choices) == 0 {
		return translation.Result{}, fmt.Errorf("empty response body or choices: %s", response.String())
	}

	content := strings.TrimSpace(responseBody.Choices[0].Message.Content)
	if content == "" {
		return translation.Result{}, fmt.Errorf("empty response content: %s", response.String())
	}
	slog.Default().Debug("openai response content",
		"from", options.From,
		"to", options.To,
		"response", responseBody,
	)

	content = strings.TrimSuffix(strings.TrimPrefix(strings.TrimPrefix(content, "```json"), "```"), "```")
	var decoded translationOutput
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &decoded); err != nil {
		slog.Default().Error("Failed to parse OpenAI response as JSON",
			"from", options.From,
			"to", options.To,
			"error", err)
		return translation.Result{}, fmt.Errorf("json.Unmarshal(%s) > %w", content, err)
	}
	return translation.Result{
		Text:       strings.TrimSpace(decoded.Translation),
		Confidence: min(max(decoded.Confidence, 0), 1),
	}, nil
}
