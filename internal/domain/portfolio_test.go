package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

var tradeTime = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

func TestPortfolio_BuyThenSell(t *testing.T) {
	p := NewPortfolio("acct-1", decimal.NewFromInt(100000))

	// Buy 100 shares at 50.00
	rec, err := p.ExecuteTrade("TENC", "腾讯控股", 100, SideBuy, decimal.NewFromFloat(50.00), tradeTime)
	if err != nil {
		t.Fatalf("buy failed: %v", err)
	}
	if rec.Side != SideBuy || rec.Quantity != 100 {
		t.Errorf("unexpected trade record: %+v", rec)
	}

	cash, positions, _ := p.State()
	if !cash.Equal(decimal.NewFromInt(95000)) {
		t.Errorf("expected cash 95000, got %v", cash)
	}
	if positions["TENC"] != 100 {
		t.Errorf("expected 100 shares of TENC, got %d", positions["TENC"])
	}

	// Sell the full position at 55.00
	if _, err := p.ExecuteTrade("TENC", "腾讯控股", 100, SideSell, decimal.NewFromFloat(55.00), tradeTime); err != nil {
		t.Fatalf("sell failed: %v", err)
	}

	cash, positions, history := p.State()
	if !cash.Equal(decimal.NewFromInt(100500)) {
		t.Errorf("expected cash 100500, got %v", cash)
	}
	if _, ok := positions["TENC"]; ok {
		t.Error("expected TENC removed from positions after full sell")
	}
	if len(history) != 2 {
		t.Errorf("expected 2 trades in history, got %d", len(history))
	}
}

func TestPortfolio_InsufficientCash(t *testing.T) {
	p := NewPortfolio("acct-2", decimal.NewFromInt(100))

	_, err := p.ExecuteTrade("TENC", "腾讯控股", 10, SideBuy, decimal.NewFromFloat(50.00), tradeTime)
	if err == nil {
		t.Fatal("expected rejection for insufficient cash")
	}
	if !IsValidation(err) {
		t.Errorf("expected ValidationError, got %T", err)
	}

	// Rejection leaves the ledger untouched.
	cash, positions, history := p.State()
	if !cash.Equal(decimal.NewFromInt(100)) {
		t.Errorf("cash mutated on rejected trade: %v", cash)
	}
	if len(positions) != 0 || len(history) != 0 {
		t.Error("positions/history mutated on rejected trade")
	}
}

func TestPortfolio_InsufficientHoldings(t *testing.T) {
	p := NewPortfolio("acct-3", decimal.NewFromInt(100000))
	p.ExecuteTrade("TENC", "腾讯控股", 10, SideBuy, decimal.NewFromFloat(50.00), tradeTime)

	_, err := p.ExecuteTrade("TENC", "腾讯控股", 20, SideSell, decimal.NewFromFloat(50.00), tradeTime)
	if err == nil {
		t.Fatal("expected rejection for insufficient holdings")
	}
	if !IsValidation(err) {
		t.Errorf("expected ValidationError, got %T", err)
	}

	_, positions, _ := p.State()
	if positions["TENC"] != 10 {
		t.Errorf("position mutated on rejected sell: %d", positions["TENC"])
	}
}

func TestPortfolio_RejectsBadInputs(t *testing.T) {
	p := NewPortfolio("acct-4", decimal.NewFromInt(1000))
	price := decimal.NewFromFloat(10.00)

	if _, err := p.ExecuteTrade("TENC", "腾讯控股", 0, SideBuy, price, tradeTime); !IsValidation(err) {
		t.Errorf("expected validation error for zero quantity, got %v", err)
	}
	if _, err := p.ExecuteTrade("TENC", "腾讯控股", -5, SideSell, price, tradeTime); !IsValidation(err) {
		t.Errorf("expected validation error for negative quantity, got %v", err)
	}
	if _, err := p.ExecuteTrade("TENC", "腾讯控股", 1, "short", price, tradeTime); !IsValidation(err) {
		t.Errorf("expected validation error for unknown side, got %v", err)
	}
}

func TestPortfolio_HistoryBounded(t *testing.T) {
	p := NewPortfolio("acct-5", decimal.NewFromInt(10_000_000))
	price := decimal.NewFromFloat(1.00)

	for n := 0; n < TradeHistoryCap+10; n++ {
		if _, err := p.ExecuteTrade("TENC", "腾讯控股", 1, SideBuy, price, tradeTime.Add(time.Duration(n)*time.Second)); err != nil {
			t.Fatalf("trade %d failed: %v", n, err)
		}
	}

	_, _, history := p.State()
	if len(history) != TradeHistoryCap {
		t.Fatalf("expected history capped at %d, got %d", TradeHistoryCap, len(history))
	}
	// Most recent retained.
	last := history[len(history)-1]
	if !last.Timestamp.Equal(tradeTime.Add(time.Duration(TradeHistoryCap+9) * time.Second)) {
		t.Errorf("expected newest trade retained, got %v", last.Timestamp)
	}
}

func TestPortfolio_View(t *testing.T) {
	p := NewPortfolio("acct-6", decimal.NewFromInt(100000))
	p.ExecuteTrade("TENC", "腾讯控股", 100, SideBuy, decimal.NewFromFloat(50.00), tradeTime)
	p.ExecuteTrade("ALIB", "阿里巴巴集团", 10, SideBuy, decimal.NewFromFloat(80.00), tradeTime)

	lookup := func(symbol string) (string, decimal.Decimal, bool) {
		switch symbol {
		case "TENC":
			return "腾讯控股", decimal.NewFromFloat(60.00), true
		case "ALIB":
			return "阿里巴巴集团", decimal.NewFromFloat(90.00), true
		}
		return "", decimal.Zero, false
	}

	view := p.View(lookup)

	// cash = 100000 - 5000 - 800 = 94200
	if !view.Cash.Equal(decimal.NewFromInt(94200)) {
		t.Errorf("expected cash 94200, got %v", view.Cash)
	}
	// total = 94200 + 100*60 + 10*90 = 101100
	if !view.TotalValue.Equal(decimal.NewFromInt(101100)) {
		t.Errorf("expected total value 101100, got %v", view.TotalValue)
	}
	if len(view.Holdings) != 2 {
		t.Fatalf("expected 2 holdings, got %d", len(view.Holdings))
	}
	// Sorted by symbol.
	if view.Holdings[0].Symbol != "ALIB" || view.Holdings[1].Symbol != "TENC" {
		t.Errorf("holdings not sorted: %s, %s", view.Holdings[0].Symbol, view.Holdings[1].Symbol)
	}
	if !view.Holdings[1].MarketValue.Equal(decimal.NewFromInt(6000)) {
		t.Errorf("expected TENC market value 6000, got %v", view.Holdings[1].MarketValue)
	}
}

func TestRestorePortfolio(t *testing.T) {
	history := make([]TradeRecord, TradeHistoryCap+5)
	for n := range history {
		history[n] = TradeRecord{Symbol: "TENC", Quantity: 1, Side: SideBuy, Timestamp: tradeTime.Add(time.Duration(n) * time.Second)}
	}

	p := RestorePortfolio("acct-7", decimal.NewFromInt(500),
		map[string]int64{"TENC": 3, "GONE": 0}, history)

	cash, positions, restored := p.State()
	if !cash.Equal(decimal.NewFromInt(500)) {
		t.Errorf("expected cash 500, got %v", cash)
	}
	if positions["TENC"] != 3 {
		t.Errorf("expected 3 shares restored, got %d", positions["TENC"])
	}
	if _, ok := positions["GONE"]; ok {
		t.Error("zero-quantity position should not be restored")
	}
	if len(restored) != TradeHistoryCap {
		t.Errorf("expected restored history trimmed to %d, got %d", TradeHistoryCap, len(restored))
	}
}
