package domain

import (
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// TradeHistoryCap is the number of most-recent trades retained on the
// ledger for view purposes. Full history lives with the persistence
// collaborator.
const TradeHistoryCap = 50

const (
	SideBuy  = "buy"
	SideSell = "sell"
)

// TradeRecord is an executed trade. Immutable once appended.
type TradeRecord struct {
	Timestamp time.Time       `json:"timestamp"`
	Symbol    string          `json:"symbol"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int64           `json:"quantity"`
	Side      string          `json:"side"`
}

// Portfolio is one account's ledger entry: cash, integer positions and
// a bounded trade log. The cash/position pair is mutated atomically
// under the portfolio's own mutex, so concurrent trades against the
// same account never interleave.
type Portfolio struct {
	ID string

	mu        sync.Mutex
	cash      decimal.Decimal
	positions map[string]int64
	history   []TradeRecord
}

// NewPortfolio creates an empty ledger entry with the given cash.
func NewPortfolio(id string, cash decimal.Decimal) *Portfolio {
	return &Portfolio{
		ID:        id,
		cash:      cash,
		positions: make(map[string]int64),
	}
}

// RestorePortfolio rebuilds a ledger entry from persisted state. The
// positions map and history slice are copied; history beyond
// TradeHistoryCap keeps only the most recent entries.
func RestorePortfolio(id string, cash decimal.Decimal, positions map[string]int64, history []TradeRecord) *Portfolio {
	p := NewPortfolio(id, cash)
	for sym, qty := range positions {
		if qty > 0 {
			p.positions[sym] = qty
		}
	}
	if len(history) > TradeHistoryCap {
		history = history[len(history)-TradeHistoryCap:]
	}
	p.history = append(p.history, history...)
	return p
}

// ExecuteTrade validates and applies a buy or sell at the given price.
// On rejection the ledger is left untouched.
func (p *Portfolio) ExecuteTrade(symbol, name string, quantity int64, side string, price decimal.Decimal, now time.Time) (TradeRecord, error) {
	if quantity <= 0 {
		return TradeRecord{}, &ValidationError{Op: side, Reason: "quantity must be positive"}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	cost := price.Mul(decimal.NewFromInt(quantity))
	switch side {
	case SideBuy:
		if p.cash.LessThan(cost) {
			return TradeRecord{}, &ValidationError{Op: side, Reason: "资金不足，无法完成买入"}
		}
		p.cash = p.cash.Sub(cost)
		p.positions[symbol] += quantity
	case SideSell:
		held := p.positions[symbol]
		if held < quantity {
			return TradeRecord{}, &ValidationError{Op: side, Reason: "持仓数量不足，无法卖出"}
		}
		if held == quantity {
			delete(p.positions, symbol)
		} else {
			p.positions[symbol] = held - quantity
		}
		p.cash = p.cash.Add(cost)
	default:
		return TradeRecord{}, &ValidationError{Op: side, Reason: "unsupported side"}
	}

	rec := TradeRecord{
		Timestamp: now,
		Symbol:    symbol,
		Name:      name,
		Price:     price.Round(2),
		Quantity:  quantity,
		Side:      side,
	}
	p.history = append(p.history, rec)
	if len(p.history) > TradeHistoryCap {
		p.history = p.history[len(p.history)-TradeHistoryCap:]
	}
	return rec, nil
}

// PriceLookup resolves a symbol to its display name and current price.
type PriceLookup func(symbol string) (name string, price decimal.Decimal, ok bool)

// View values the portfolio at current prices. Holdings are sorted by
// symbol for consistent ordering; symbols the lookup cannot resolve are
// skipped.
func (p *Portfolio) View(lookup PriceLookup) PortfolioView {
	p.mu.Lock()
	defer p.mu.Unlock()

	symbols := make([]string, 0, len(p.positions))
	for sym := range p.positions {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	total := p.cash
	holdings := make([]Holding, 0, len(symbols))
	for _, sym := range symbols {
		name, price, ok := lookup(sym)
		if !ok {
			continue
		}
		qty := p.positions[sym]
		marketValue := price.Mul(decimal.NewFromInt(qty)).Round(2)
		total = total.Add(marketValue)
		holdings = append(holdings, Holding{
			Symbol:      sym,
			Name:        name,
			Quantity:    qty,
			Price:       price.Round(2),
			MarketValue: marketValue,
		})
	}

	history := make([]TradeRecord, len(p.history))
	copy(history, p.history)

	return PortfolioView{
		Cash:       p.cash.Round(2),
		TotalValue: total.Round(2),
		Holdings:   holdings,
		History:    history,
	}
}

// State returns a copy of the persistable ledger state: cash, positions
// and the retained trade history.
func (p *Portfolio) State() (decimal.Decimal, map[string]int64, []TradeRecord) {
	p.mu.Lock()
	defer p.mu.Unlock()

	positions := make(map[string]int64, len(p.positions))
	for sym, qty := range p.positions {
		positions[sym] = qty
	}
	history := make([]TradeRecord, len(p.history))
	copy(history, p.history)
	return p.cash, positions, history
}
