package domain

// PortfolioStore is the pluggable persistence collaborator for account
// ledgers. The engine calls it but does not implement it; absence of a
// store leaves the engine fully in-memory.
type PortfolioStore interface {
	// LoadPortfolio returns the persisted ledger for an account id,
	// or (nil, nil) when the account is unknown.
	LoadPortfolio(id string) (*Portfolio, error)

	// SavePortfolio writes back cash and positions.
	SavePortfolio(p *Portfolio) error

	// AppendTrade records an executed trade in the full trade log.
	AppendTrade(accountID string, rec TradeRecord) error
}
