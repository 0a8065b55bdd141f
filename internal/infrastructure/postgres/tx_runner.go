package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/inventario-ledger/internal/application/inventory"
	"github.com/jhoicas/inventario-ledger/internal/domain"
)

var _ inventory.TxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL.
type TxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// Run inicia una transacción, ejecuta fn con repos atados a la tx y hace Commit o Rollback.
// Serialización o deadlock (en fn o en el Commit) se devuelven como ErrConflict para que el caller reintente.
func (r *TxRunner) Run(ctx context.Context, fn func(repos inventory.TxRepos) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	repos := inventory.TxRepos{
		Movements:  NewStockMovementRepository(tx),
		Stock:      NewStockRepository(tx),
		Products:   NewProductRepository(tx),
		Warehouses: NewWarehouseRepository(tx),
		Variants:   NewVariantRepository(tx),
	}
	if err := fn(repos); err != nil {
		if isRetryable(err) {
			return domain.Conflict("", err)
		}
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		if isRetryable(err) {
			return domain.Conflict("", err)
		}
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
