// OpenAI-compatible implementation of the tutoring NLU parser.
// Works with Groq and Cerebras via a custom BaseURL.
package aicap

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"google.golang.org/genai"
)

// openaiParser implements Parser against any OpenAI-compatible endpoint.
type openaiParser struct {
	client      openai.Client
	model       string
	intentTools []openai.ChatCompletionToolUnionParam
	slotTools   []openai.ChatCompletionToolUnionParam
	provider    Provider
}

// newOpenAIParser creates a parser for an OpenAI-compatible provider.
// Returns nil if apiKey is empty (provider disabled).
func newOpenAIParser(_ context.Context, provider Provider, apiKey, model string) (*openaiParser, error) {
	if apiKey == "" {
		return nil, nil //nolint:nilnil // provider disabled without a key
	}

	baseURL, ok := ProviderEndpoint[provider]
	if !ok {
		return nil, fmt.Errorf("unsupported OpenAI-compatible provider: %s", provider)
	}

	if model == "" {
		switch provider {
		case ProviderGroq:
			model = DefaultGroqModels[0]
		case ProviderCerebras:
			model = DefaultCerebrasModels[0]
		default:
			return nil, fmt.Errorf("no default model for provider: %s", provider)
		}
	}

	client := openai.NewClient(
		option.WithBaseURL(baseURL),
		option.WithAPIKey(apiKey),
	)

	return &openaiParser{
		client:      client,
		model:       model,
		intentTools: toOpenAITools(BuildIntentFunctions()),
		slotTools:   toOpenAITools([]*genai.FunctionDeclaration{BuildSlotFunction()}),
		provider:    provider,
	}, nil
}

// toOpenAITools converts genai function declarations to OpenAI v3 tool
// format. OpenAI uses lowercase JSON Schema types, so genai.TypeString
// ("STRING") must become "string".
func toOpenAITools(funcDecls []*genai.FunctionDeclaration) []openai.ChatCompletionToolUnionParam {
	result := make([]openai.ChatCompletionToolUnionParam, 0, len(funcDecls))
	for _, fd := range funcDecls {
		properties := make(map[string]any)
		for name, schema := range fd.Parameters.Properties {
			properties[name] = map[string]string{
				"type":        strings.ToLower(string(schema.Type)),
				"description": schema.Description,
			}
		}

		tool := openai.ChatCompletionFunctionTool(openai.FunctionDefinitionParam{
			Name:        fd.Name,
			Description: openai.String(fd.Description),
			Parameters: openai.FunctionParameters{
				"type":       "object",
				"properties": properties,
				"required":   fd.Parameters.Required,
			},
		})
		result = append(result, tool)
	}
	return result
}

// Parse classifies the utterance in required tool-choice mode.
func (p *openaiParser) Parse(ctx context.Context, text string) (*ParseResult, error) {
	if p == nil {
		return nil, errors.New("parser is nil")
	}

	ctx, cancel := context.WithTimeout(ctx, parseTimeout)
	defer cancel()

	params := openai.ChatCompletionNewParams{
		Model: p.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(IntentSystemPrompt),
			openai.UserMessage(text),
		},
		Tools: p.intentTools,
		ToolChoice: openai.ChatCompletionToolChoiceOptionUnionParam{
			OfAuto: openai.String(string(openai.ChatCompletionToolChoiceOptionAutoRequired)),
		},
		Temperature: openai.Float(0.1),
		MaxTokens:   openai.Int(256),
	}

	start := time.Now()
	resp, err := p.client.Chat.Completions.New(ctx, params)
	duration := time.Since(start)

	if err != nil {
		slog.WarnContext(ctx, "intent parsing API call failed",
			"provider", p.provider,
			"model", p.model,
			"input_length", len(text),
			"duration_ms", duration.Milliseconds(),
			"error", err)
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}

	args, funcName, err := firstToolCall(resp)
	if err != nil {
		return nil, err
	}
	parsed, err := resultFromArgs(funcName, args)
	if err != nil {
		return nil, err
	}

	if resp.Usage.TotalTokens > 0 {
		slog.DebugContext(ctx, "intent parsing completed",
			"provider", p.provider,
			"model", p.model,
			"total_tokens", resp.Usage.TotalTokens,
			"duration_ms", duration.Milliseconds(),
			"function_name", parsed.FunctionName)
	}
	return parsed, nil
}

// FillSlots extracts slot values for a known intent.
func (p *openaiParser) FillSlots(ctx context.Context, text, intent string, existing map[string]string) (map[string]string, error) {
	if p == nil {
		return nil, errors.New("parser is nil")
	}

	ctx, cancel := context.WithTimeout(ctx, parseTimeout)
	defer cancel()

	params := openai.ChatCompletionNewParams{
		Model: p.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(SlotSystemPrompt),
			openai.UserMessage(slotPrompt(text, intent, existing)),
		},
		Tools: p.slotTools,
		ToolChoice: openai.ChatCompletionToolChoiceOptionUnionParam{
			OfAuto: openai.String(string(openai.ChatCompletionToolChoiceOptionAutoRequired)),
		},
		Temperature: openai.Float(0.1),
		MaxTokens:   openai.Int(256),
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}

	args, _, err := firstToolCall(resp)
	if err != nil {
		return nil, err
	}
	return stringArgs(args), nil
}

// firstToolCall returns the decoded arguments and function name of the
// first tool call in the response.
func firstToolCall(resp *openai.ChatCompletion) (map[string]any, string, error) {
	if resp == nil || len(resp.Choices) == 0 {
		return nil, "", errors.New("empty response from model")
	}
	choice := resp.Choices[0]
	if len(choice.Message.ToolCalls) == 0 {
		return nil, "", errors.New("no tool call in response (expected with required mode)")
	}

	tc := choice.Message.ToolCalls[0]
	if tc.Type != "function" {
		return nil, "", fmt.Errorf("unexpected tool type: %s", tc.Type)
	}

	var args map[string]any
	if tc.Function.Arguments != "" {
		if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
			return nil, "", fmt.Errorf("failed to parse function arguments: %w", err)
		}
	}
	return args, tc.Function.Name, nil
}

// Provider returns the provider type for this parser.
func (p *openaiParser) Provider() Provider {
	if p == nil {
		return ""
	}
	return p.provider
}

// Close releases resources. The openai-go client needs no cleanup.
func (p *openaiParser) Close() error { return nil }
