package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// InstrumentView is a read-only copy of one instrument's state with all
// monetary fields rounded to 2 decimals.
type InstrumentView struct {
	Symbol        string          `json:"symbol"`
	Name          string          `json:"name"`
	Price         decimal.Decimal `json:"price"`
	Open          decimal.Decimal `json:"open"`
	PrevClose     decimal.Decimal `json:"prev_close"`
	High          decimal.Decimal `json:"high"`
	Low           decimal.Decimal `json:"low"`
	Change        decimal.Decimal `json:"change"`
	ChangePercent decimal.Decimal `json:"change_percent"`
	LimitUp       decimal.Decimal `json:"limit_up"`
	LimitDown     decimal.Decimal `json:"limit_down"`
	History       []PricePoint    `json:"history"`
}

// SessionStatus describes the trading-session clock at a point in time.
type SessionStatus struct {
	Phase     Phase     `json:"phase"`
	Label     string    `json:"label"`
	Timestamp time.Time `json:"timestamp"`
	Countdown int64     `json:"countdown"` // seconds until the next transition
}

// Snapshot is a point-in-time view of the whole market, broadcast to
// subscribers once per tick.
type Snapshot struct {
	Timestamp    time.Time        `json:"timestamp"`
	MarketStatus SessionStatus    `json:"market_status"`
	Instruments  []InstrumentView `json:"stocks"`
}

// Holding is one position line in a portfolio view.
type Holding struct {
	Symbol      string          `json:"symbol"`
	Name        string          `json:"name"`
	Quantity    int64           `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	MarketValue decimal.Decimal `json:"market_value"`
}

// PortfolioView is a detached summary of one account's ledger valued at
// current prices.
type PortfolioView struct {
	Cash       decimal.Decimal `json:"cash"`
	TotalValue decimal.Decimal `json:"total_value"`
	Holdings   []Holding       `json:"holdings"`
	History    []TradeRecord   `json:"history"`
}

// TradeResult pairs an executed trade with the resulting portfolio view.
type TradeResult struct {
	Trade     TradeRecord   `json:"trade"`
	Portfolio PortfolioView `json:"portfolio"`
}
