package aicap

import (
	"context"
	"errors"

	"github.com/weilintsai/tutorbot-go/internal/ctxutil"
)

// ErrBudgetExhausted is returned when a user's AI call budget is spent.
// Callers treat it like any other capability failure and fall back to
// rule-based parsing, so an over-budget user still gets answers.
var ErrBudgetExhausted = errors.New("ai call budget exhausted")

// CallBudget decides whether one more AI call is allowed for a user.
type CallBudget interface {
	Allow(userID string) bool
}

// BudgetedAdapter wraps an NLUAdapter with a per-user call budget. The
// user ID travels in the context (ctxutil.WithUserID); calls without one
// are not budgeted.
type BudgetedAdapter struct {
	adapter *NLUAdapter
	budget  CallBudget
}

// NewBudgetedAdapter gates adapter behind budget. Returns nil when adapter
// is nil; a nil budget passes every call through.
func NewBudgetedAdapter(adapter *NLUAdapter, budget CallBudget) *BudgetedAdapter {
	if adapter == nil {
		return nil
	}
	return &BudgetedAdapter{adapter: adapter, budget: budget}
}

func (b *BudgetedAdapter) allow(ctx context.Context) bool {
	if b.budget == nil {
		return true
	}
	return b.budget.Allow(ctxutil.GetUserID(ctx))
}

// ClassifyIntent consumes one budget token and delegates to the adapter.
func (b *BudgetedAdapter) ClassifyIntent(ctx context.Context, text string) (string, float64, error) {
	if b == nil || b.adapter == nil {
		return "", 0, errors.New("AI classification not configured")
	}
	if !b.allow(ctx) {
		return "", 0, ErrBudgetExhausted
	}
	return b.adapter.ClassifyIntent(ctx, text)
}

// ExtractSlots consumes one budget token and delegates to the adapter.
func (b *BudgetedAdapter) ExtractSlots(ctx context.Context, text, intent string, existing map[string]string) (map[string]string, error) {
	if b == nil || b.adapter == nil {
		return nil, errors.New("AI slot extraction not configured")
	}
	if !b.allow(ctx) {
		return nil, ErrBudgetExhausted
	}
	return b.adapter.ExtractSlots(ctx, text, intent, existing)
}

// Close shuts down the wrapped adapter.
func (b *BudgetedAdapter) Close() error {
	if b == nil || b.adapter == nil {
		return nil
	}
	return b.adapter.Close()
}
