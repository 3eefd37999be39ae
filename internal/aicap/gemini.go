// Gemini implementation of the tutoring NLU parser.
package aicap

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/genai"
)

// geminiParser implements Parser on top of google.golang.org/genai using
// forced function calling (ANY mode).
type geminiParser struct {
	client     *genai.Client
	model      string
	intentTool []*genai.Tool
	slotTool   []*genai.Tool
}

// newGeminiParser creates a Gemini-backed parser.
// Returns nil if apiKey is empty (provider disabled).
func newGeminiParser(ctx context.Context, apiKey, model string) (*geminiParser, error) {
	if apiKey == "" {
		return nil, nil //nolint:nilnil // provider disabled without a key
	}
	if model == "" {
		model = DefaultGeminiModels[0]
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &geminiParser{
		client:     client,
		model:      model,
		intentTool: []*genai.Tool{{FunctionDeclarations: BuildIntentFunctions()}},
		slotTool:   []*genai.Tool{{FunctionDeclarations: []*genai.FunctionDeclaration{BuildSlotFunction()}}},
	}, nil
}

// Parse classifies the utterance. ANY mode forces a function call, so every
// response names exactly one intent.
func (p *geminiParser) Parse(ctx context.Context, text string) (*ParseResult, error) {
	if p == nil {
		return nil, errors.New("parser is nil")
	}

	ctx, cancel := context.WithTimeout(ctx, parseTimeout)
	defer cancel()

	config := &genai.GenerateContentConfig{
		Tools:             p.intentTool,
		SystemInstruction: genai.NewContentFromText(IntentSystemPrompt, genai.RoleUser),
		ToolConfig: &genai.ToolConfig{
			FunctionCallingConfig: &genai.FunctionCallingConfig{
				Mode: genai.FunctionCallingConfigModeAny,
			},
		},
		Temperature:     genai.Ptr[float32](0.1),
		MaxOutputTokens: 256,
	}

	start := time.Now()
	result, err := p.client.Models.GenerateContent(ctx, p.model, genai.Text(text), config)
	duration := time.Since(start)

	if err != nil {
		slog.WarnContext(ctx, "intent parsing API call failed",
			"provider", "gemini",
			"model", p.model,
			"input_length", len(text),
			"duration_ms", duration.Milliseconds(),
			"error", err)
		return nil, fmt.Errorf("generate content failed: %w", err)
	}

	fc, err := firstFunctionCall(result)
	if err != nil {
		return nil, err
	}
	parsed, err := resultFromArgs(fc.Name, fc.Args)
	if err != nil {
		return nil, err
	}

	if result.UsageMetadata != nil {
		slog.DebugContext(ctx, "intent parsing completed",
			"provider", "gemini",
			"model", p.model,
			"total_tokens", result.UsageMetadata.TotalTokenCount,
			"duration_ms", duration.Milliseconds(),
			"function_name", parsed.FunctionName)
	}
	return parsed, nil
}

// FillSlots extracts slot values for a known intent via the fill_slots
// function.
func (p *geminiParser) FillSlots(ctx context.Context, text, intent string, existing map[string]string) (map[string]string, error) {
	if p == nil {
		return nil, errors.New("parser is nil")
	}

	ctx, cancel := context.WithTimeout(ctx, parseTimeout)
	defer cancel()

	config := &genai.GenerateContentConfig{
		Tools:             p.slotTool,
		SystemInstruction: genai.NewContentFromText(SlotSystemPrompt, genai.RoleUser),
		ToolConfig: &genai.ToolConfig{
			FunctionCallingConfig: &genai.FunctionCallingConfig{
				Mode: genai.FunctionCallingConfigModeAny,
			},
		},
		Temperature:     genai.Ptr[float32](0.1),
		MaxOutputTokens: 256,
	}

	result, err := p.client.Models.GenerateContent(ctx, p.model,
		genai.Text(slotPrompt(text, intent, existing)), config)
	if err != nil {
		return nil, fmt.Errorf("generate content failed: %w", err)
	}

	fc, err := firstFunctionCall(result)
	if err != nil {
		return nil, err
	}
	return stringArgs(fc.Args), nil
}

// firstFunctionCall returns the first function call in the response.
func firstFunctionCall(result *genai.GenerateContentResponse) (*genai.FunctionCall, error) {
	if result == nil || len(result.Candidates) == 0 {
		return nil, errors.New("empty response from model")
	}
	candidate := result.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return nil, errors.New("no content in response")
	}
	for _, part := range candidate.Content.Parts {
		if part.FunctionCall != nil {
			return part.FunctionCall, nil
		}
	}
	return nil, errors.New("no function call in response (expected with ANY mode)")
}

// slotPrompt builds the user message for slot-only extraction.
func slotPrompt(text, intent string, existing map[string]string) string {
	ctx := "{}"
	if len(existing) > 0 {
		if b, err := json.Marshal(existing); err == nil {
			ctx = string(b)
		}
	}
	return fmt.Sprintf("意圖：%s\n已知欄位：%s\n句子：%s", intent, ctx, text)
}

// resultFromArgs converts function-call arguments into a ParseResult,
// keeping only slot keys declared for the intent.
func resultFromArgs(funcName string, args map[string]any) (*ParseResult, error) {
	slotKeys, ok := IntentSlotKeys[funcName]
	if !ok {
		return nil, fmt.Errorf("unknown function: %s", funcName)
	}

	confidence := 0.0
	if v, exists := args["confidence"]; exists {
		switch n := v.(type) {
		case float64:
			confidence = n
		case float32:
			confidence = float64(n)
		case int:
			confidence = float64(n)
		}
	}
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	slots := make(map[string]string)
	for _, key := range slotKeys {
		if v, exists := args[key]; exists {
			if s, isStr := v.(string); isStr && s != "" {
				slots[key] = s
			}
		}
	}

	return &ParseResult{
		Intent:       funcName,
		Slots:        slots,
		Confidence:   confidence,
		FunctionName: funcName,
	}, nil
}

// stringArgs keeps the string-valued arguments of a slot-filling call.
func stringArgs(args map[string]any) map[string]string {
	out := make(map[string]string, len(args))
	for k, v := range args {
		if s, ok := v.(string); ok && s != "" {
			out[k] = s
		}
	}
	return out
}

// IsEnabled reports whether the parser was initialized with a client.
func (p *geminiParser) IsEnabled() bool { return p != nil && p.client != nil }

// Provider returns the provider type for this parser.
func (p *geminiParser) Provider() Provider { return ProviderGemini }

// Close releases resources. The genai client needs no explicit cleanup.
func (p *geminiParser) Close() error { return nil }
