package repository

import (
	"context"

	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
)

// WarehouseRepository puerto de lectura de bodegas (el ledger solo valida que existan).
type WarehouseRepository interface {
	Create(ctx context.Context, warehouse *entity.Warehouse) error
	GetByID(ctx context.Context, id string) (*entity.Warehouse, error)
}

// VariantRepository puerto de lectura de variantes de producto.
type VariantRepository interface {
	Create(ctx context.Context, variant *entity.ProductVariant) error
	GetByID(ctx context.Context, id string) (*entity.ProductVariant, error)
}
