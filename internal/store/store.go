// Package store is the persistence collaborator consumed by the ledger
// core. It exposes load/save operations for accounts and holdings, an
// append operation for trades, and a transactional scope that commits or
// rolls back all writes performed inside it as one unit.
package store

import (
	"errors"

	"gorm.io/gorm"

	apperrors "tradefolio/internal/errors"
	"tradefolio/internal/models"
)

// Store abstracts the reads and writes the ledger core performs during a
// trade. SaveAccount and SaveHolding use optimistic concurrency: they only
// apply when the record's version is unchanged since it was loaded, and
// report ErrConcurrencyConflict otherwise.
type Store interface {
	GetAccount(id string) (*models.Account, error)
	SaveAccount(account *models.Account) error
	GetHolding(id string) (*models.Holding, error)
	GetHoldingByAccountStock(accountID, stockID string) (*models.Holding, error)
	SaveHolding(holding *models.Holding) error
	AppendTrade(trade *models.Trade) error
	NextTradeSequence(holdingID string) (int64, error)

	// WithTransaction runs fn against a Store bound to a single database
	// transaction. If fn returns an error the transaction is rolled back,
	// otherwise it is committed.
	WithTransaction(fn func(Store) error) error
}

type gormStore struct {
	db *gorm.DB
}

// New creates a Store backed by the given GORM database handle.
func New(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) GetAccount(id string) (*models.Account, error) {
	var account models.Account
	if err := s.db.First(&account, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrAccountNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &account, nil
}

// SaveAccount persists the account's balance with a compare-and-swap on the
// version column. RowsAffected == 0 means another writer got there first.
func (s *gormStore) SaveAccount(account *models.Account) error {
	res := s.db.Model(&models.Account{}).
		Where("id = ? AND version = ?", account.ID, account.Version).
		Updates(map[string]interface{}{
			"balance": account.Balance,
			"version": account.Version + 1,
		})
	if res.Error != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrConcurrencyConflict
	}
	account.Version++
	return nil
}

func (s *gormStore) GetHolding(id string) (*models.Holding, error) {
	var holding models.Holding
	if err := s.db.Preload("Stock").First(&holding, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrHoldingNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &holding, nil
}

func (s *gormStore) GetHoldingByAccountStock(accountID, stockID string) (*models.Holding, error) {
	var holding models.Holding
	if err := s.db.First(&holding, "account_id = ? AND stock_id = ?", accountID, stockID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrHoldingNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &holding, nil
}

// SaveHolding persists quantity and average price with the same
// compare-and-swap as SaveAccount.
func (s *gormStore) SaveHolding(holding *models.Holding) error {
	res := s.db.Model(&models.Holding{}).
		Where("id = ? AND version = ?", holding.ID, holding.Version).
		Updates(map[string]interface{}{
			"quantity":      holding.Quantity,
			"average_price": holding.AveragePrice,
			"version":       holding.Version + 1,
		})
	if res.Error != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrConcurrencyConflict
	}
	holding.Version++
	return nil
}

func (s *gormStore) AppendTrade(trade *models.Trade) error {
	if err := s.db.Create(trade).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// NextTradeSequence returns the next per-holding sequence number. The unique
// (holding_id, sequence) index backstops the rare case of two transactions
// reading the same maximum before either commits.
func (s *gormStore) NextTradeSequence(holdingID string) (int64, error) {
	var max int64
	if err := s.db.Model(&models.Trade{}).
		Where("holding_id = ?", holdingID).
		Select("COALESCE(MAX(sequence), 0)").
		Scan(&max).Error; err != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return max + 1, nil
}

func (s *gormStore) WithTransaction(fn func(Store) error) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx})
	})
}
