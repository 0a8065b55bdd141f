package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
)

// MovementFilter filtros opcionales sobre el ledger. Campos vacíos no filtran.
type MovementFilter struct {
	ProductID string
	From      *time.Time
	To        *time.Time
	Type      entity.MovementType
}

// MovementSummary agregado por tipo de movimiento.
type MovementSummary struct {
	Type      entity.MovementType
	Quantity  int64
	TotalCost decimal.Decimal
	Count     int64
}

// MovementCursor posición de paginación: created_at y seq del último movimiento ya entregado.
type MovementCursor struct {
	CreatedAt time.Time
	Seq       int64
}

// LedgerBalance totales del ledger de un producto, usados para conciliar contra products.quantity.
type LedgerBalance struct {
	Count       int64
	Sum         int64
	FirstBefore *int64 // QuantityBefore del primer movimiento
	LastAfter   *int64 // QuantityAfter del último movimiento
}

// StockMovementRepository puerto de persistencia del ledger (append-only: no hay Update ni Delete).
type StockMovementRepository interface {
	Create(ctx context.Context, movement *entity.StockMovement) error
	GetByID(ctx context.Context, id string) (*entity.StockMovement, error)
	// List devuelve movimientos del más reciente al más antiguo (created_at DESC, seq DESC),
	// estrictamente anteriores a after. after nil = desde el más reciente.
	List(ctx context.Context, filter MovementFilter, limit int, after *MovementCursor) ([]*entity.StockMovement, error)
	Summarize(ctx context.Context, filter MovementFilter) ([]MovementSummary, error)
	Balance(ctx context.Context, productID string) (LedgerBalance, error)
}
