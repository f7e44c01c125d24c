// Package classifier adapts the external text-understanding service into the
// Classifier contract. The model's output is untrusted text: it may arrive
// wrapped in formatting fences and any field of the payload may be absent.
package classifier

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	openaisdk "github.com/openai/openai-go"
	contractx "github.com/ordertalk/ordertalk/dialog/contract"
	openaix "github.com/ordertalk/ordertalk/pkg/openaix"
)

//go:embed template/intents.txt
var instructionRaw string

const defaultTimeout = 30 * time.Second

// OpenAIClassifier sends one chat completion per user message and decodes the
// JSON payload the instruction document demands.
type OpenAIClassifier struct {
	client      *openaisdk.Client
	model       string
	temperature float64
	maxTokens   int64
	timeout     time.Duration
}

func New(client *openaisdk.Client, cfg openaix.Config) (*OpenAIClassifier, error) {
	if client == nil {
		return nil, fmt.Errorf("%w: openai client is required", contractx.ErrValidation)
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		return nil, fmt.Errorf("%w: classifier model is required", contractx.ErrValidation)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &OpenAIClassifier{
		client:      client,
		model:       model,
		temperature: cfg.Temperature,
		maxTokens:   int64(cfg.MaxCompletionToken),
		timeout:     timeout,
	}, nil
}

func (c *OpenAIClassifier) Classify(ctx context.Context, text string) (contractx.ClassifiedIntent, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return contractx.ClassifiedIntent{}, fmt.Errorf("%w: user text is empty", contractx.ErrValidation)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	params := openaisdk.ChatCompletionNewParams{
		Model: openaisdk.ChatModel(c.model),
		Messages: []openaisdk.ChatCompletionMessageParamUnion{
			openaisdk.SystemMessage(strings.TrimSpace(instructionRaw)),
			openaisdk.UserMessage(trimmed),
		},
		Temperature: openaisdk.Float(c.temperature),
	}
	if c.maxTokens > 0 {
		params.MaxTokens = openaisdk.Int(c.maxTokens)
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return contractx.ClassifiedIntent{}, fmt.Errorf("%w: completion call: %v", contractx.ErrClassification, err)
	}
	if len(resp.Choices) == 0 {
		return contractx.ClassifiedIntent{}, fmt.Errorf("%w: empty completion", contractx.ErrClassification)
	}

	return Decode(resp.Choices[0].Message.Content)
}

// wirePayload mirrors the JSON shape the instruction document asks for.
// Every field is optional.
type wirePayload struct {
	Intent          string                     `json:"intent"`
	UserResponse    string                     `json:"user_response"`
	ProductList     []contractx.ProductRef     `json:"product_list"`
	CustomerDetails *contractx.CustomerDetails `json:"customer_details"`
	SQLQuery        string                     `json:"sql_query"`
	ErrorMessage    string                     `json:"error_message"`
}

// Decode strips any formatting fences from the raw model reply and parses the
// JSON payload into a typed ClassifiedIntent. Failures wrap ErrClassification
// so callers fall back to the unrecognized path instead of crashing.
func Decode(raw string) (contractx.ClassifiedIntent, error) {
	body := StripFences(raw)
	if body == "" {
		return contractx.ClassifiedIntent{}, fmt.Errorf("%w: empty payload", contractx.ErrClassification)
	}

	var p wirePayload
	if err := json.Unmarshal([]byte(body), &p); err != nil {
		return contractx.ClassifiedIntent{}, fmt.Errorf("%w: decode payload: %v", contractx.ErrClassification, err)
	}

	return contractx.ClassifiedIntent{
		Intent:          contractx.ParseIntent(p.Intent),
		UserResponse:    strings.TrimSpace(p.UserResponse),
		Products:        p.ProductList,
		CustomerDetails: p.CustomerDetails,
		ErrorMessage:    strings.TrimSpace(p.ErrorMessage),
		SQLQuery:        p.SQLQuery,
	}, nil
}

// StripFences removes a surrounding ``` fence, with or without a language
// tag, returning the inner body trimmed. Unfenced input passes through.
func StripFences(raw string) string {
	body := strings.TrimSpace(raw)
	if !strings.HasPrefix(body, "```") {
		return body
	}

	body = strings.TrimPrefix(body, "```")
	if idx := strings.IndexByte(body, '\n'); idx >= 0 {
		// Drop a language tag like "json" on the fence line.
		firstLine := strings.TrimSpace(body[:idx])
		if firstLine == "" || !strings.ContainsAny(firstLine, "{}") {
			body = body[idx+1:]
		}
	}
	body = strings.TrimSuffix(strings.TrimSpace(body), "```")
	return strings.TrimSpace(body)
}
