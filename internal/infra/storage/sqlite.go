package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"stock_sim/internal/domain"
)

// Storage persists account ledgers to SQLite. It implements
// domain.PortfolioStore; the engine never sees GORM.
type Storage struct {
	db *gorm.DB
}

// accountRow mirrors one account's cash balance. Cash is stored as a
// decimal string to avoid float drift in the database.
type accountRow struct {
	UserID    string `gorm:"primaryKey;column:user_id"`
	Cash      string
	UpdatedAt time.Time
}

func (accountRow) TableName() string { return "accounts" }

type positionRow struct {
	UserID   string `gorm:"primaryKey;column:user_id"`
	Symbol   string `gorm:"primaryKey"`
	Quantity int64
}

func (positionRow) TableName() string { return "positions" }

type tradeRow struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	UserID    string `gorm:"index;column:user_id"`
	Timestamp time.Time
	Symbol    string
	Name      string
	Price     string
	Quantity  int64
	Side      string
}

func (tradeRow) TableName() string { return "trades" }

// NewStorage opens (or creates) the SQLite database at path.
func NewStorage(path string) (*Storage, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create DB directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(&accountRow{}, &positionRow{}, &tradeRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Storage{db: db}, nil
}

// LoadPortfolio rebuilds an account's ledger from its rows. Returns
// (nil, nil) when the account is unknown.
func (s *Storage) LoadPortfolio(id string) (*domain.Portfolio, error) {
	var account accountRow
	err := s.db.First(&account, "user_id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	cash, err := decimal.NewFromString(account.Cash)
	if err != nil {
		return nil, fmt.Errorf("corrupt cash value for %s: %w", id, err)
	}

	var positions []positionRow
	if err := s.db.Find(&positions, "user_id = ?", id).Error; err != nil {
		return nil, err
	}
	held := make(map[string]int64, len(positions))
	for _, row := range positions {
		held[row.Symbol] = row.Quantity
	}

	// Most recent trades only; the ledger keeps a bounded view.
	var trades []tradeRow
	if err := s.db.
		Where("user_id = ?", id).
		Order("id DESC").
		Limit(domain.TradeHistoryCap).
		Find(&trades).Error; err != nil {
		return nil, err
	}
	history := make([]domain.TradeRecord, 0, len(trades))
	for n := len(trades) - 1; n >= 0; n-- {
		rec, err := trades[n].toRecord()
		if err != nil {
			return nil, err
		}
		history = append(history, rec)
	}

	return domain.RestorePortfolio(id, cash, held, history), nil
}

// SavePortfolio upserts cash and replaces the position rows in one
// transaction.
func (s *Storage) SavePortfolio(p *domain.Portfolio) error {
	cash, positions, _ := p.State()

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&accountRow{
			UserID:    p.ID,
			Cash:      cash.String(),
			UpdatedAt: time.Now(),
		}).Error; err != nil {
			return err
		}

		if err := tx.Delete(&positionRow{}, "user_id = ?", p.ID).Error; err != nil {
			return err
		}
		for symbol, quantity := range positions {
			if err := tx.Create(&positionRow{
				UserID:   p.ID,
				Symbol:   symbol,
				Quantity: quantity,
			}).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// AppendTrade records one executed trade in the full trade log.
func (s *Storage) AppendTrade(accountID string, rec domain.TradeRecord) error {
	return s.db.Create(&tradeRow{
		UserID:    accountID,
		Timestamp: rec.Timestamp,
		Symbol:    rec.Symbol,
		Name:      rec.Name,
		Price:     rec.Price.String(),
		Quantity:  rec.Quantity,
		Side:      rec.Side,
	}).Error
}

func (r tradeRow) toRecord() (domain.TradeRecord, error) {
	price, err := decimal.NewFromString(r.Price)
	if err != nil {
		return domain.TradeRecord{}, fmt.Errorf("corrupt trade price %q: %w", r.Price, err)
	}
	return domain.TradeRecord{
		Timestamp: r.Timestamp,
		Symbol:    r.Symbol,
		Name:      r.Name,
		Price:     price,
		Quantity:  r.Quantity,
		Side:      r.Side,
	}, nil
}
