package aicap

import (
	"context"
	"errors"
)

// NLUAdapter bridges the parser chain to the dialogue layer's
// AIClassifier and SlotFiller contracts. A nil adapter disables both
// capabilities cleanly.
type NLUAdapter struct {
	parser *FallbackParser
}

// NewNLUAdapter wraps the parser chain. Returns nil when parser is nil so
// the dialogue layer sees a plain nil interface value.
func NewNLUAdapter(parser *FallbackParser) *NLUAdapter {
	if parser == nil {
		return nil
	}
	return &NLUAdapter{parser: parser}
}

// ClassifyIntent classifies the utterance and reports the model's
// confidence. Slots from the parse result are intentionally dropped; the
// rule extractor owns slot extraction and consults FillSlots separately.
func (a *NLUAdapter) ClassifyIntent(ctx context.Context, text string) (string, float64, error) {
	if a == nil || a.parser == nil {
		return "", 0, errors.New("AI classification not configured")
	}

	result, err := a.parser.Parse(ctx, text)
	if err != nil {
		return "", 0, err
	}
	return result.Intent, result.Confidence, nil
}

// ExtractSlots asks the chain to fill slot values for a known intent.
func (a *NLUAdapter) ExtractSlots(ctx context.Context, text, intent string, existing map[string]string) (map[string]string, error) {
	if a == nil || a.parser == nil {
		return nil, errors.New("AI slot extraction not configured")
	}
	return a.parser.FillSlots(ctx, text, intent, existing)
}

// Close shuts down the underlying chain.
func (a *NLUAdapter) Close() error {
	if a == nil || a.parser == nil {
		return nil
	}
	return a.parser.Close()
}
