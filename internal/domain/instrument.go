package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultHistoryCap is the default capacity of an instrument's intraday
// price history buffer.
const DefaultHistoryCap = 240

// priceFloor is the smallest price an instrument may ever reach.
var priceFloor = decimal.NewFromFloat(0.01)

// PricePoint is one sample in an instrument's intraday history.
type PricePoint struct {
	Timestamp time.Time       `json:"timestamp"`
	Price     decimal.Decimal `json:"price"`
}

// Instrument holds the price state of a single listed stock: previous
// close, current price, session open/high/low and a fixed-capacity ring
// of price samples (oldest evicted first).
//
// An Instrument is not safe for concurrent use; the engine serializes
// all mutation under its own lock and hands out copies via View.
type Instrument struct {
	Symbol        string
	Name          string
	PreviousClose decimal.Decimal
	LimitRatio    decimal.Decimal
	OpenPrice     decimal.Decimal
	CurrentPrice  decimal.Decimal
	DayHigh       decimal.Decimal
	DayLow        decimal.Decimal

	history []PricePoint // ring buffer
	head    int          // next write position
	count   int          // filled entries
}

// NewInstrument seeds an instrument at previousClose. historyCap <= 0
// falls back to DefaultHistoryCap.
func NewInstrument(symbol, name string, previousClose, limitRatio decimal.Decimal, historyCap int, now time.Time) *Instrument {
	if historyCap <= 0 {
		historyCap = DefaultHistoryCap
	}
	inst := &Instrument{
		Symbol:        symbol,
		Name:          name,
		PreviousClose: previousClose,
		LimitRatio:    limitRatio,
		OpenPrice:     previousClose,
		CurrentPrice:  previousClose,
		DayHigh:       previousClose,
		DayLow:        previousClose,
		history:       make([]PricePoint, historyCap),
	}
	inst.appendHistory(now, previousClose)
	return inst
}

// LimitUp returns the highest price allowed this session:
// previous close × (1 + limit ratio), rounded to 2 decimals.
func (i *Instrument) LimitUp() decimal.Decimal {
	return i.PreviousClose.Mul(decimal.NewFromInt(1).Add(i.LimitRatio)).Round(2)
}

// LimitDown returns the lowest price allowed this session.
func (i *Instrument) LimitDown() decimal.Decimal {
	return i.PreviousClose.Mul(decimal.NewFromInt(1).Sub(i.LimitRatio)).Round(2)
}

// Change returns the absolute change against the previous close.
func (i *Instrument) Change() decimal.Decimal {
	return i.CurrentPrice.Sub(i.PreviousClose).Round(2)
}

// ChangePercent returns the percentage change against the previous close.
func (i *Instrument) ChangePercent() decimal.Decimal {
	if i.PreviousClose.IsZero() {
		return decimal.Zero
	}
	return i.CurrentPrice.Sub(i.PreviousClose).
		Div(i.PreviousClose).
		Mul(decimal.NewFromInt(100)).
		Round(2)
}

// Advance applies a percentage change to the current price, clamps the
// result into [LimitDown, LimitUp], rounds to 2 decimals and floors at
// 0.01, then updates day high/low and appends a history sample. This is
// the only price mutator and is never called outside a trading phase.
func (i *Instrument) Advance(pctChange float64, now time.Time) {
	next := i.CurrentPrice.Mul(decimal.NewFromFloat(1 + pctChange))
	if up := i.LimitUp(); next.GreaterThan(up) {
		next = up
	}
	if down := i.LimitDown(); next.LessThan(down) {
		next = down
	}
	next = next.Round(2)
	if next.LessThan(priceFloor) {
		next = priceFloor
	}

	i.CurrentPrice = next
	if next.GreaterThan(i.DayHigh) {
		i.DayHigh = next
	}
	if next.LessThan(i.DayLow) {
		i.DayLow = next
	}
	i.appendHistory(now, next)
}

// StartNewSession resets open/high/low to the current price and records
// a history breakpoint. Called once per transition into a trading day.
func (i *Instrument) StartNewSession(now time.Time) {
	i.OpenPrice = i.CurrentPrice
	i.DayHigh = i.CurrentPrice
	i.DayLow = i.CurrentPrice
	i.appendHistory(now, i.CurrentPrice)
}

// CloseSession rolls the current price over into the previous close.
// Called once when the trading day ends.
func (i *Instrument) CloseSession() {
	i.PreviousClose = i.CurrentPrice
}

func (i *Instrument) appendHistory(ts time.Time, price decimal.Decimal) {
	i.history[i.head] = PricePoint{Timestamp: ts, Price: price}
	i.head = (i.head + 1) % len(i.history)
	if i.count < len(i.history) {
		i.count++
	}
}

// History returns the buffered samples in chronological order.
func (i *Instrument) History() []PricePoint {
	out := make([]PricePoint, i.count)
	start := (i.head - i.count + len(i.history)) % len(i.history)
	for n := 0; n < i.count; n++ {
		out[n] = i.history[(start+n)%len(i.history)]
	}
	return out
}

// View returns a rounded, detached copy of the instrument state.
func (i *Instrument) View() InstrumentView {
	return InstrumentView{
		Symbol:        i.Symbol,
		Name:          i.Name,
		Price:         i.CurrentPrice.Round(2),
		Open:          i.OpenPrice.Round(2),
		PrevClose:     i.PreviousClose.Round(2),
		High:          i.DayHigh.Round(2),
		Low:           i.DayLow.Round(2),
		Change:        i.Change(),
		ChangePercent: i.ChangePercent(),
		LimitUp:       i.LimitUp(),
		LimitDown:     i.LimitDown(),
		History:       i.History(),
	}
}
