// Package postgres implements the repository interfaces on PostgreSQL.
package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/offerhub/offerhub/internal/repository"
	"github.com/offerhub/offerhub/pkg/database"
)

// Store bundles the PostgreSQL repositories over one Querier, which is either
// a connection pool or a transaction.
type Store struct {
	db   database.DBTX
	inTx bool
}

// NewStore creates a pool-backed store.
func NewStore(db database.DBTX) *Store {
	return &Store{db: db}
}

func (s *Store) Campaigns() repository.CampaignRepository {
	return &CampaignRepository{db: s.db}
}

func (s *Store) Schedules() repository.ScheduleRepository {
	return &ScheduleRepository{db: s.db}
}

func (s *Store) Offers() repository.OfferRepository {
	return &OfferRepository{db: s.db}
}

func (s *Store) Vouchers() repository.VoucherRepository {
	return &VoucherRepository{db: s.db}
}

func (s *Store) Assets() repository.AssetRepository {
	return &AssetRepository{db: s.db}
}

func (s *Store) Tags() repository.TagRepository {
	return &TagRepository{db: s.db}
}

// WithinTx runs fn against a transaction-scoped store and commits when fn
// returns nil. On a store that is already transactional, fn runs in the same
// transaction.
func (s *Store) WithinTx(ctx context.Context, fn func(repository.Store) error) error {
	if s.inTx {
		return fn(s)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&Store{db: tx, inTx: true}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// isUniqueViolation checks if the error is a PostgreSQL unique constraint violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "23505")
}
