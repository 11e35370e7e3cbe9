package engine

import (
	"context"
	"log/slog"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"stock_sim/internal/clock"
	"stock_sim/internal/domain"
	"stock_sim/internal/infra"
)

// Tick noise model: a small uniform drift plus Gaussian shocks.
const (
	driftRange      = 0.001
	shockDeviation  = 0.003
	minSeedCount    = 10
	maxSeedCount    = 20
	seedPriceLow    = 8.0
	seedPriceSpread = 172.0 // seed prices fall in [8, 180)
)

// Options configures a market engine.
type Options struct {
	Clock        *clock.SessionClock
	Store        domain.PortfolioStore // optional; nil keeps accounts in memory
	LimitRatio   decimal.Decimal
	HistoryLimit int
	InitialCash  decimal.Decimal
	Universe     []Listing // empty selects from the default universe
	Seed         int64     // rng seed; 0 derives one from the clock
}

// Listing names one tradable instrument.
type Listing struct {
	Symbol string
	Name   string
}

// defaultUniverse is the pool instruments are seeded from when the
// configuration supplies none.
var defaultUniverse = []Listing{
	{"ALIB", "阿里巴巴集团"},
	{"TENC", "腾讯控股"},
	{"BIDU", "百度科技"},
	{"JD", "京东集团"},
	{"PDD", "拼多多"},
	{"MEIT", "美团点评"},
	{"BYD", "比亚迪"},
	{"NIO", "蔚来汽车"},
	{"XPEV", "小鹏汽车"},
	{"LI", "理想汽车"},
	{"ICBC", "中国工商银行"},
	{"CCB", "中国建设银行"},
	{"ABC", "中国农业银行"},
	{"BOC", "中国银行"},
	{"PING", "中国平安"},
	{"CITS", "中信证券"},
	{"HAIR", "海尔智家"},
	{"MIDE", "美的集团"},
	{"GREE", "格力电器"},
	{"TSMC", "台积电"},
	{"SMIC", "中芯国际"},
}

// Engine owns the instrument set, the account map and the subscriber
// registry, and drives the tick loop. Instruments are mutated only
// inside the engine's lock; callers get detached views.
type Engine struct {
	clk   *clock.SessionClock
	store domain.PortfolioStore

	limitRatio   decimal.Decimal
	historyLimit int
	initialCash  decimal.Decimal
	rng          *rand.Rand // tick-loop goroutine only

	mu          sync.RWMutex
	instruments map[string]*domain.Instrument
	symbols     []string // sorted, fixed at startup
	dayOpened   string   // calendar day already opened, "2006-01-02"

	lastPhase domain.Phase // tick-loop goroutine only

	accMu    sync.RWMutex
	accounts map[string]*domain.Portfolio

	subMu       sync.RWMutex
	subscribers map[string]chan domain.Snapshot
}

// New seeds the instrument set and returns a ready engine. Run must be
// called to start the tick loop.
func New(opts Options) *Engine {
	if opts.LimitRatio.IsZero() {
		opts.LimitRatio = decimal.NewFromFloat(0.1)
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = domain.DefaultHistoryCap
	}
	if opts.InitialCash.IsZero() {
		opts.InitialCash = decimal.NewFromInt(100000)
	}
	seed := opts.Seed
	if seed == 0 {
		seed = opts.Clock.Now().UnixNano()
	}

	e := &Engine{
		clk:          opts.Clock,
		store:        opts.Store,
		limitRatio:   opts.LimitRatio,
		historyLimit: opts.HistoryLimit,
		initialCash:  opts.InitialCash,
		rng:          rand.New(rand.NewSource(seed)),
		instruments:  make(map[string]*domain.Instrument),
		accounts:     make(map[string]*domain.Portfolio),
		subscribers:  make(map[string]chan domain.Snapshot),
	}
	e.seedInstruments(opts.Universe)
	return e
}

// seedInstruments picks a random subset of the universe and assigns
// randomized seed prices.
func (e *Engine) seedInstruments(universe []Listing) {
	if len(universe) == 0 {
		universe = defaultUniverse
	}
	pool := make([]Listing, len(universe))
	copy(pool, universe)
	e.rng.Shuffle(len(pool), func(a, b int) {
		pool[a], pool[b] = pool[b], pool[a]
	})

	count := minSeedCount + e.rng.Intn(maxSeedCount-minSeedCount+1)
	if count > len(pool) {
		count = len(pool)
	}

	now := e.clk.Now()
	for _, listing := range pool[:count] {
		base := decimal.NewFromFloat(seedPriceLow + e.rng.Float64()*seedPriceSpread).Round(2)
		e.instruments[listing.Symbol] = domain.NewInstrument(
			listing.Symbol, listing.Name, base, e.limitRatio, e.historyLimit, now)
		e.symbols = append(e.symbols, listing.Symbol)
	}
	sort.Strings(e.symbols)
}

// Run drives the tick loop until ctx is cancelled. The lock is never
// held across a suspension point, so cancellation always finds the
// instrument set in the state of the last completed tick.
func (e *Engine) Run(ctx context.Context) {
	slog.Info("market engine started",
		slog.Int("instruments", len(e.symbols)),
		slog.Duration("interval", e.clk.SleepInterval()))

	for {
		e.tick(e.clk.Now())

		select {
		case <-ctx.Done():
			slog.Info("market engine stopped")
			return
		case <-time.After(e.clk.SleepInterval()):
		}
	}
}

// tick runs one iteration of the session state machine.
func (e *Engine) tick(now time.Time) {
	phase := e.clk.Phase(now)

	if domain.IsTrading(phase) {
		if !domain.IsTrading(e.lastPhase) {
			e.openSessions(now)
		}
		e.advancePrices(now)
	} else if phase == domain.PhaseClosed && e.clk.DayClosed(now) && e.lastPhase != domain.PhaseClosed {
		e.closeSessions()
	}

	e.broadcast(e.snapshotAt(now))
	e.lastPhase = phase
	infra.GlobalMetrics.RecordTick()
}

// openSessions starts a new trading session on every instrument, at
// most once per calendar day.
func (e *Engine) openSessions(now time.Time) {
	day := now.Format("2006-01-02")

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.dayOpened == day {
		return
	}
	for _, inst := range e.instruments {
		inst.StartNewSession(now)
	}
	e.dayOpened = day
	slog.Info("trading session opened", slog.String("day", day))
}

func (e *Engine) advancePrices(now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, inst := range e.instruments {
		drift := (e.rng.Float64()*2 - 1) * driftRange
		shock := e.rng.NormFloat64() * shockDeviation
		inst.Advance(drift+shock, now)
	}
}

func (e *Engine) closeSessions() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, inst := range e.instruments {
		inst.CloseSession()
	}
	slog.Info("trading day closed")
}

// Snapshot builds a point-in-time view of the whole market.
func (e *Engine) Snapshot() domain.Snapshot {
	return e.snapshotAt(e.clk.Now())
}

func (e *Engine) snapshotAt(now time.Time) domain.Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()

	views := make([]domain.InstrumentView, 0, len(e.symbols))
	for _, symbol := range e.symbols {
		views = append(views, e.instruments[symbol].View())
	}
	return domain.Snapshot{
		Timestamp:    now,
		MarketStatus: e.clk.Status(now),
		Instruments:  views,
	}
}

// lookupPrice resolves a symbol for portfolio valuation.
func (e *Engine) lookupPrice(symbol string) (string, decimal.Decimal, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	inst, ok := e.instruments[symbol]
	if !ok {
		return "", decimal.Zero, false
	}
	return inst.Name, inst.CurrentPrice, true
}

// CreateAccount opens a fresh account with the configured initial cash.
func (e *Engine) CreateAccount() (string, error) {
	id := uuid.NewString()
	p := domain.NewPortfolio(id, e.initialCash)

	e.accMu.Lock()
	e.accounts[id] = p
	e.accMu.Unlock()

	if e.store != nil {
		if err := e.store.SavePortfolio(p); err != nil {
			slog.Warn("failed to persist new account",
				slog.String("account", id), slog.Any("error", err))
		}
	}
	slog.Info("account created", slog.String("account", id))
	return id, nil
}

// EnsureAccount resolves an existing account id, falling back to a new
// account when the id is empty or unknown.
func (e *Engine) EnsureAccount(id string) (string, error) {
	if id == "" {
		return e.CreateAccount()
	}
	if _, err := e.portfolio(id); err != nil {
		if domain.IsNotFound(err) {
			return e.CreateAccount()
		}
		return "", err
	}
	return id, nil
}

// portfolio returns the in-memory ledger for an account, loading it
// from the persistence collaborator on first access.
func (e *Engine) portfolio(id string) (*domain.Portfolio, error) {
	e.accMu.RLock()
	p, ok := e.accounts[id]
	e.accMu.RUnlock()
	if ok {
		return p, nil
	}

	if e.store != nil {
		loaded, err := e.store.LoadPortfolio(id)
		if err != nil {
			return nil, err
		}
		if loaded != nil {
			e.accMu.Lock()
			if existing, ok := e.accounts[id]; ok {
				loaded = existing // lost the race; keep the first copy
			} else {
				e.accounts[id] = loaded
			}
			e.accMu.Unlock()
			return loaded, nil
		}
	}
	return nil, &domain.NotFoundError{Kind: "account", Key: id}
}

// PortfolioView values an account at current prices.
func (e *Engine) PortfolioView(id string) (domain.PortfolioView, error) {
	p, err := e.portfolio(id)
	if err != nil {
		return domain.PortfolioView{}, err
	}
	return p.View(e.lookupPrice), nil
}

// ExecuteTrade applies a validated buy or sell against an account at
// the instrument's current price. The trade may observe the pre- or
// post-tick price depending on interleaving; there is no notion of a
// true price between ticks.
func (e *Engine) ExecuteTrade(accountID, symbol string, quantity int64, side string) (domain.TradeResult, error) {
	p, err := e.portfolio(accountID)
	if err != nil {
		return domain.TradeResult{}, err
	}

	name, price, ok := e.lookupPrice(symbol)
	if !ok {
		infra.GlobalMetrics.RecordTradeRejected()
		return domain.TradeResult{}, &domain.NotFoundError{Kind: "instrument", Key: symbol}
	}

	rec, err := p.ExecuteTrade(symbol, name, quantity, side, price, e.clk.Now())
	if err != nil {
		infra.GlobalMetrics.RecordTradeRejected()
		return domain.TradeResult{}, err
	}
	infra.GlobalMetrics.RecordTradeExecuted()

	if e.store != nil {
		// Persistence failure does not unwind the trade; the ledger
		// remains authoritative in memory.
		if err := e.store.SavePortfolio(p); err != nil {
			slog.Error("failed to persist portfolio",
				slog.String("account", accountID), slog.Any("error", err))
		}
		if err := e.store.AppendTrade(accountID, rec); err != nil {
			slog.Error("failed to persist trade",
				slog.String("account", accountID), slog.Any("error", err))
		}
	}

	slog.Info("trade executed",
		slog.String("account", accountID),
		slog.String("symbol", symbol),
		slog.String("side", side),
		slog.Int64("quantity", quantity),
		slog.String("price", price.Round(2).String()))

	return domain.TradeResult{Trade: rec, Portfolio: p.View(e.lookupPrice)}, nil
}
