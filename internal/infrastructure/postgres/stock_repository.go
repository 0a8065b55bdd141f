package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
)

var _ repository.StockRepository = (*StockRepo)(nil)

// StockRepo implementación de StockRepository sobre PostgreSQL (usable con pool o tx).
type StockRepo struct {
	q Querier
}

// NewStockRepository construye el adaptador de stock. Pasar pool o tx (Querier).
func NewStockRepository(q Querier) *StockRepo {
	return &StockRepo{q: q}
}

// Get obtiene el stock actual de un producto en una bodega. Sin fila = cantidad 0.
func (r *StockRepo) Get(ctx context.Context, productID, warehouseID string) (*entity.Stock, error) {
	s, err := r.get(ctx, `
		SELECT product_id, warehouse_id, quantity, updated_at
		FROM stock WHERE product_id = $1 AND warehouse_id = $2`, productID, warehouseID)
	if err != nil {
		return nil, fmt.Errorf("get stock: %w", err)
	}
	return s, nil
}

// GetForUpdate obtiene el stock y bloquea la fila para update (SELECT FOR UPDATE).
// Si la fila no existe no hay nada que bloquear; el lock del producto serializa igualmente.
func (r *StockRepo) GetForUpdate(ctx context.Context, productID, warehouseID string) (*entity.Stock, error) {
	s, err := r.get(ctx, `
		SELECT product_id, warehouse_id, quantity, updated_at
		FROM stock WHERE product_id = $1 AND warehouse_id = $2
		FOR UPDATE`, productID, warehouseID)
	if err != nil {
		return nil, fmt.Errorf("get stock for update: %w", err)
	}
	return s, nil
}

func (r *StockRepo) get(ctx context.Context, query, productID, warehouseID string) (*entity.Stock, error) {
	if !validID(productID) || !validID(warehouseID) {
		return &entity.Stock{ProductID: productID, WarehouseID: warehouseID}, nil
	}
	var s entity.Stock
	err := r.q.QueryRow(ctx, query, productID, warehouseID).Scan(
		&s.ProductID, &s.WarehouseID, &s.Quantity, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &entity.Stock{ProductID: productID, WarehouseID: warehouseID}, nil
		}
		return nil, err
	}
	return &s, nil
}

// Upsert inserta o actualiza la cantidad en stock (por producto y bodega).
func (r *StockRepo) Upsert(ctx context.Context, stock *entity.Stock) error {
	query := `
		INSERT INTO stock (product_id, warehouse_id, quantity, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (product_id, warehouse_id)
		DO UPDATE SET quantity = EXCLUDED.quantity, updated_at = now()`
	_, err := r.q.Exec(ctx, query, stock.ProductID, stock.WarehouseID, stock.Quantity)
	if err != nil {
		return fmt.Errorf("upsert stock: %w", err)
	}
	return nil
}
