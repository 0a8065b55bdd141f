package repository

import (
	"context"

	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
)

// StockRepository define el puerto para consultar/actualizar stock por bodega+producto.
// Usado dentro de transacciones para garantizar consistencia.
type StockRepository interface {
	Get(ctx context.Context, productID, warehouseID string) (*entity.Stock, error)
	// GetForUpdate bloquea la fila (SELECT FOR UPDATE). Sin fila devuelve cantidad 0.
	GetForUpdate(ctx context.Context, productID, warehouseID string) (*entity.Stock, error)
	Upsert(ctx context.Context, stock *entity.Stock) error
}
