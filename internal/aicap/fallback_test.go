package aicap

import (
	"context"
	"errors"
	"testing"
	"time"
)

// mockParser is a test double for the Parser interface.
type mockParser struct {
	parseFunc   func(ctx context.Context, text string) (*ParseResult, error)
	fillFunc    func(ctx context.Context, text, intent string, existing map[string]string) (map[string]string, error)
	provider    Provider
	parseCalls  int
	closeCalled bool
}

func (m *mockParser) Parse(ctx context.Context, text string) (*ParseResult, error) {
	m.parseCalls++
	if m.parseFunc != nil {
		return m.parseFunc(ctx, text)
	}
	return nil, errors.New("not implemented")
}

func (m *mockParser) FillSlots(ctx context.Context, text, intent string, existing map[string]string) (map[string]string, error) {
	if m.fillFunc != nil {
		return m.fillFunc(ctx, text, intent, existing)
	}
	return nil, errors.New("not implemented")
}

func (m *mockParser) Provider() Provider { return m.provider }

func (m *mockParser) Close() error {
	m.closeCalled = true
	return nil
}

func fastRetry() RetryConfig {
	return RetryConfig{MaxAttempts: 2, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
}

func TestFallbackParser_PrimarySuccess(t *testing.T) {
	t.Parallel()
	primary := &mockParser{
		parseFunc: func(_ context.Context, _ string) (*ParseResult, error) {
			return &ParseResult{Intent: "add_course", Confidence: 0.9}, nil
		},
		provider: ProviderGemini,
	}
	secondary := &mockParser{provider: ProviderGroq}

	parser := NewFallbackParser(fastRetry(), primary, secondary)

	result, err := parser.Parse(context.Background(), "幫小明排數學課")
	if err != nil {
		t.Fatalf("Parse() error = %v, want nil", err)
	}
	if result.Intent != "add_course" {
		t.Errorf("Intent = %q, want add_course", result.Intent)
	}
	if secondary.parseCalls != 0 {
		t.Errorf("secondary called %d times, want 0", secondary.parseCalls)
	}
}

func TestFallbackParser_FallsBackOnTransientFailure(t *testing.T) {
	t.Parallel()
	primary := &mockParser{
		parseFunc: func(_ context.Context, _ string) (*ParseResult, error) {
			return nil, errors.New("service unavailable")
		},
		provider: ProviderGemini,
	}
	secondary := &mockParser{
		parseFunc: func(_ context.Context, _ string) (*ParseResult, error) {
			return &ParseResult{Intent: "query_schedule", Confidence: 0.8}, nil
		},
		provider: ProviderGroq,
	}

	parser := NewFallbackParser(fastRetry(), primary, secondary)

	result, err := parser.Parse(context.Background(), "小明週三有課嗎")
	if err != nil {
		t.Fatalf("Parse() error = %v, want nil", err)
	}
	if result.Intent != "query_schedule" {
		t.Errorf("Intent = %q, want query_schedule", result.Intent)
	}
	if primary.parseCalls != 2 {
		t.Errorf("primary called %d times, want 2 (retry before fallback)", primary.parseCalls)
	}
	if secondary.parseCalls != 1 {
		t.Errorf("secondary called %d times, want 1", secondary.parseCalls)
	}
}

func TestFallbackParser_QuotaSkipsRetry(t *testing.T) {
	t.Parallel()
	primary := &mockParser{
		parseFunc: func(_ context.Context, _ string) (*ParseResult, error) {
			return nil, errors.New("you exceeded your current quota")
		},
		provider: ProviderGemini,
	}
	secondary := &mockParser{
		parseFunc: func(_ context.Context, _ string) (*ParseResult, error) {
			return &ParseResult{Intent: "add_course", Confidence: 0.85}, nil
		},
		provider: ProviderGroq,
	}

	parser := NewFallbackParser(fastRetry(), primary, secondary)

	if _, err := parser.Parse(context.Background(), "排課"); err != nil {
		t.Fatalf("Parse() error = %v, want nil", err)
	}
	if primary.parseCalls != 1 {
		t.Errorf("primary called %d times, want 1 (quota error should not retry)", primary.parseCalls)
	}
}

func TestFallbackParser_PermanentErrorStopsChain(t *testing.T) {
	t.Parallel()
	primary := &mockParser{
		parseFunc: func(_ context.Context, _ string) (*ParseResult, error) {
			return nil, errors.New("401 unauthorized")
		},
		provider: ProviderGemini,
	}
	secondary := &mockParser{provider: ProviderGroq}

	parser := NewFallbackParser(fastRetry(), primary, secondary)

	if _, err := parser.Parse(context.Background(), "排課"); err == nil {
		t.Fatal("Parse() = nil error, want permanent failure")
	}
	if secondary.parseCalls != 0 {
		t.Errorf("secondary called %d times, want 0 (permanent error stops chain)", secondary.parseCalls)
	}
}

func TestFallbackParser_AllFail(t *testing.T) {
	t.Parallel()
	failing := func(_ context.Context, _ string) (*ParseResult, error) {
		return nil, errors.New("service unavailable")
	}
	primary := &mockParser{parseFunc: failing, provider: ProviderGemini}
	secondary := &mockParser{parseFunc: failing, provider: ProviderGroq}

	parser := NewFallbackParser(fastRetry(), primary, secondary)

	if _, err := parser.Parse(context.Background(), "排課"); err == nil {
		t.Fatal("Parse() = nil error, want failure after exhausting chain")
	}
	if primary.parseCalls != 2 || secondary.parseCalls != 2 {
		t.Errorf("calls = %d/%d, want 2/2", primary.parseCalls, secondary.parseCalls)
	}
}

func TestFallbackParser_FillSlotsFallsBack(t *testing.T) {
	t.Parallel()
	primary := &mockParser{
		fillFunc: func(_ context.Context, _, _ string, _ map[string]string) (map[string]string, error) {
			return nil, errors.New("503 service unavailable")
		},
		provider: ProviderGemini,
	}
	secondary := &mockParser{
		fillFunc: func(_ context.Context, _, _ string, _ map[string]string) (map[string]string, error) {
			return map[string]string{"studentName": "小明"}, nil
		},
		provider: ProviderGroq,
	}

	parser := NewFallbackParser(fastRetry(), primary, secondary)

	slots, err := parser.FillSlots(context.Background(), "幫小明排課", "add_course", nil)
	if err != nil {
		t.Fatalf("FillSlots() error = %v, want nil", err)
	}
	if slots["studentName"] != "小明" {
		t.Errorf("slots = %v, want studentName=小明", slots)
	}
}

func TestFallbackParser_Empty(t *testing.T) {
	t.Parallel()
	parser := NewFallbackParser(fastRetry())

	if _, err := parser.Parse(context.Background(), "排課"); err == nil {
		t.Error("Parse() with empty chain should error")
	}
	if parser.Provider() != "" {
		t.Errorf("Provider() = %q, want empty", parser.Provider())
	}
	if err := parser.Close(); err != nil {
		t.Errorf("Close() = %v, want nil", err)
	}
}

func TestFallbackParser_CloseClosesAll(t *testing.T) {
	t.Parallel()
	primary := &mockParser{provider: ProviderGemini}
	secondary := &mockParser{provider: ProviderGroq}

	parser := NewFallbackParser(fastRetry(), primary, secondary)
	if err := parser.Close(); err != nil {
		t.Fatalf("Close() = %v, want nil", err)
	}
	if !primary.closeCalled || !secondary.closeCalled {
		t.Error("Close() should close every parser in the chain")
	}
}

func TestNLUAdapter(t *testing.T) {
	t.Parallel()
	primary := &mockParser{
		parseFunc: func(_ context.Context, _ string) (*ParseResult, error) {
			return &ParseResult{Intent: "set_reminder", Confidence: 0.75}, nil
		},
		fillFunc: func(_ context.Context, _, _ string, _ map[string]string) (map[string]string, error) {
			return map[string]string{"content": "帶課本"}, nil
		},
		provider: ProviderGemini,
	}

	adapter := NewNLUAdapter(NewFallbackParser(fastRetry(), primary))

	intent, confidence, err := adapter.ClassifyIntent(context.Background(), "提醒我帶課本")
	if err != nil {
		t.Fatalf("ClassifyIntent() error = %v", err)
	}
	if intent != "set_reminder" || confidence != 0.75 {
		t.Errorf("ClassifyIntent() = (%q, %v), want (set_reminder, 0.75)", intent, confidence)
	}

	slots, err := adapter.ExtractSlots(context.Background(), "提醒我帶課本", "set_reminder", nil)
	if err != nil {
		t.Fatalf("ExtractSlots() error = %v", err)
	}
	if slots["content"] != "帶課本" {
		t.Errorf("slots = %v, want content=帶課本", slots)
	}
}

func TestNLUAdapter_Nil(t *testing.T) {
	t.Parallel()
	adapter := NewNLUAdapter(nil)
	if adapter != nil {
		t.Fatal("NewNLUAdapter(nil) should return nil")
	}
	if _, _, err := adapter.ClassifyIntent(context.Background(), "x"); err == nil {
		t.Error("nil adapter should error")
	}
	if err := adapter.Close(); err != nil {
		t.Errorf("nil adapter Close() = %v, want nil", err)
	}
}
