package pricing

import (
	"context"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/timmy/altseo/internal/domain"
)

var perMillion = decimal.NewFromInt(1_000_000)

// Price is the USD price per million tokens of a model.
type Price struct {
	Input  decimal.Decimal
	Output decimal.Decimal
}

// DefaultPrices are used until the first successful sync.
var DefaultPrices = map[string]Price{
	"gpt-4o":                   {Input: decimal.RequireFromString("2.50"), Output: decimal.RequireFromString("10.00")},
	"gpt-4o-mini":              {Input: decimal.RequireFromString("0.15"), Output: decimal.RequireFromString("0.60")},
	"gpt-4.1":                  {Input: decimal.RequireFromString("2.00"), Output: decimal.RequireFromString("8.00")},
	"gpt-4.1-mini":             {Input: decimal.RequireFromString("0.40"), Output: decimal.RequireFromString("1.60")},
	"claude-3-5-haiku-latest":  {Input: decimal.RequireFromString("0.80"), Output: decimal.RequireFromString("4.00")},
	"claude-3-5-sonnet-latest": {Input: decimal.RequireFromString("3.00"), Output: decimal.RequireFromString("15.00")},
	"gemini-1.5-flash":         {Input: decimal.RequireFromString("0.075"), Output: decimal.RequireFromString("0.30")},
	"gemini-1.5-pro":           {Input: decimal.RequireFromString("1.25"), Output: decimal.RequireFromString("5.00")},
}

// Store persists synced prices.
type Store interface {
	ListPrices(ctx context.Context) ([]domain.ModelPrice, error)
	UpsertPrices(ctx context.Context, prices []domain.ModelPrice) error
}

// Table is the in-memory price list used for cost calculation.
type Table struct {
	mu     sync.RWMutex
	prices map[string]Price
}

// NewTable creates a Table seeded with DefaultPrices.
func NewTable() *Table {
	t := &Table{prices: make(map[string]Price, len(DefaultPrices))}
	for model, p := range DefaultPrices {
		t.prices[model] = p
	}
	return t
}

// Load merges stored prices over the current table.
func (t *Table) Load(ctx context.Context, store Store) error {
	rows, err := store.ListPrices(ctx)
	if err != nil {
		return err
	}
	t.Set(rows)
	return nil
}

// Set merges prices into the table.
func (t *Table) Set(rows []domain.ModelPrice) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, r := range rows {
		t.prices[strings.ToLower(r.Model)] = Price{Input: r.InputPerMTok, Output: r.OutputPerMTok}
	}
}

// Lookup finds the price of a model. Dated snapshots such as
// "gpt-4o-2024-08-06" match their base model by longest prefix.
func (t *Table) Lookup(model string) (Price, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	model = strings.ToLower(model)
	if p, ok := t.prices[model]; ok {
		return p, true
	}
	var (
		best    Price
		bestLen int
	)
	for name, p := range t.prices {
		if strings.HasPrefix(model, name) && len(name) > bestLen {
			best, bestLen = p, len(name)
		}
	}
	return best, bestLen > 0
}

// Cost computes the cost of one call. Unknown models cost zero.
func (t *Table) Cost(model string, usage domain.TokenUsage) domain.Costs {
	p, ok := t.Lookup(model)
	if !ok {
		return domain.Costs{Input: decimal.Zero, Output: decimal.Zero, Total: decimal.Zero}
	}
	in := p.Input.Mul(decimal.NewFromInt(int64(usage.InputTokens))).Div(perMillion)
	out := p.Output.Mul(decimal.NewFromInt(int64(usage.OutputTokens))).Div(perMillion)
	return domain.Costs{Input: in, Output: out, Total: in.Add(out)}
}
