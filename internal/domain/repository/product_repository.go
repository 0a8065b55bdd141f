package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
)

// ProductRepository define el puerto de persistencia para Product (DIP).
// No hay setter libre de Quantity: solo UpdateQuantity con la cantidad esperada.
type ProductRepository interface {
	Create(ctx context.Context, product *entity.Product) error
	GetByID(ctx context.Context, id string) (*entity.Product, error)
	// GetForUpdate obtiene el producto bloqueando la fila (SELECT FOR UPDATE).
	GetForUpdate(ctx context.Context, id string) (*entity.Product, error)
	// UpdateQuantity escribe newQty solo si la cantidad actual es expected; si no, ErrConflict.
	UpdateQuantity(ctx context.Context, productID string, expected, newQty int64) error
	UpdateCost(ctx context.Context, productID string, cost decimal.Decimal) error
}
