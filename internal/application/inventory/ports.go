package inventory

import (
	"context"
	"time"

	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
)

// TxRepos repositorios atados a una misma transacción.
type TxRepos struct {
	Movements  repository.StockMovementRepository
	Stock      repository.StockRepository
	Products   repository.ProductRepository
	Warehouses repository.WarehouseRepository
	Variants   repository.VariantRepository
}

// TxRunner ejecuta una función dentro de una transacción de BD, pasando repositorios atados a esa tx.
// Commit si fn devuelve nil, Rollback en cualquier otro caso.
// Los fallos de serialización o deadlock se devuelven como ErrConflict.
type TxRunner interface {
	Run(ctx context.Context, fn func(repos TxRepos) error) error
}

// EventPublisher publica los movimientos ya confirmados (después del Commit).
type EventPublisher interface {
	PublishMovements(ctx context.Context, movements ...*entity.StockMovement) error
}

// SummaryCache cache de GetMovementSummary, versionado por producto.
// Get devuelve la versión vigente aunque no haya entrada; Set guarda bajo esa versión.
// Invalidate avanza la versión del producto y la global, así un resumen calculado antes
// de una escritura queda huérfano aunque se guarde después de ella.
type SummaryCache interface {
	Get(ctx context.Context, filter repository.MovementFilter) (summary []repository.MovementSummary, version int64, ok bool, err error)
	Set(ctx context.Context, filter repository.MovementFilter, version int64, summary []repository.MovementSummary) error
	Invalidate(ctx context.Context, productID string) error
}

// Metrics contadores del ledger.
type Metrics interface {
	MovementRecorded(t entity.MovementType, quantity int64)
	OperationFailed(op string, kind domain.ErrorKind)
	ConflictRetried(op string)
	ObserveLatency(op string, d time.Duration)
}

type noopPublisher struct{}

func (noopPublisher) PublishMovements(context.Context, ...*entity.StockMovement) error { return nil }

type noopCache struct{}

func (noopCache) Get(context.Context, repository.MovementFilter) ([]repository.MovementSummary, int64, bool, error) {
	return nil, 0, false, nil
}
func (noopCache) Set(context.Context, repository.MovementFilter, int64, []repository.MovementSummary) error {
	return nil
}
func (noopCache) Invalidate(context.Context, string) error { return nil }

type noopMetrics struct{}

func (noopMetrics) MovementRecorded(entity.MovementType, int64) {}
func (noopMetrics) OperationFailed(string, domain.ErrorKind) {}
func (noopMetrics) ConflictRetried(string) {}
func (noopMetrics) ObserveLatency(string, time.Duration) {}
