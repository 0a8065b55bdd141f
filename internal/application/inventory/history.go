package inventory

import (
	"context"
	"iter"
	"slices"
	"time"

	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
)

// HistoryQuery filtros del historial de un producto. Limit es obligatorio (> 0).
type HistoryQuery struct {
	ProductID string
	From      *time.Time
	To        *time.Time
	Type      entity.MovementType // vacío = todos
	Limit     int
}

func (q HistoryQuery) validate() error {
	if q.ProductID == "" {
		return domain.Validation("product_id", q.ProductID, "product_id es requerido")
	}
	if q.Type != "" && !q.Type.Valid() {
		return domain.Validation("type", q.Type, "tipo de movimiento inválido")
	}
	if q.Limit <= 0 {
		return domain.Validation("limit", q.Limit, "limit debe ser mayor que cero")
	}
	return validateRange(q.From, q.To)
}

func validateRange(from, to *time.Time) error {
	if from != nil && to != nil && from.After(*to) {
		return domain.Validation("from", from.Format(time.RFC3339), "from debe ser anterior a to")
	}
	return nil
}

// GetProductHistory devuelve los movimientos de un producto, del más reciente al más antiguo.
// La secuencia es perezosa (consulta por páginas a medida que se consume), finita (máximo Limit,
// acotado por HistoryMaxLimit) y reiniciable: cada recorrido vuelve a consultar desde el inicio.
// Cada página continúa desde el último movimiento entregado, así una escritura concurrente
// no repite ni salta filas.
// Los errores se entregan como segundo valor y terminan la secuencia.
func (uc *LedgerUseCase) GetProductHistory(ctx context.Context, q HistoryQuery) iter.Seq2[*entity.StockMovement, error] {
	return func(yield func(*entity.StockMovement, error) bool) {
		if err := q.validate(); err != nil {
			yield(nil, err)
			return
		}
		product, err := uc.products.GetByID(ctx, q.ProductID)
		if err != nil {
			yield(nil, err)
			return
		}
		if product == nil {
			yield(nil, domain.NotFound("product_id", q.ProductID))
			return
		}

		limit := min(q.Limit, uc.cfg.HistoryMaxLimit)
		filter := repository.MovementFilter{ProductID: q.ProductID, From: q.From, To: q.To, Type: q.Type}
		var after *repository.MovementCursor
		emitted := 0
		for emitted < limit {
			size := min(uc.cfg.HistoryPageSize, limit-emitted)
			page, err := uc.movements.List(ctx, filter, size, after)
			if err != nil {
				yield(nil, err)
				return
			}
			for _, m := range page {
				if !yield(m, nil) {
					return
				}
				emitted++
				after = &repository.MovementCursor{CreatedAt: m.CreatedAt, Seq: m.Seq}
			}
			if len(page) < size {
				return
			}
		}
	}
}

// ListProductHistory consume GetProductHistory en un slice.
func (uc *LedgerUseCase) ListProductHistory(ctx context.Context, q HistoryQuery) ([]*entity.StockMovement, error) {
	list := make([]*entity.StockMovement, 0)
	for m, err := range uc.GetProductHistory(ctx, q) {
		if err != nil {
			return nil, err
		}
		list = append(list, m)
	}
	return list, nil
}

// SummaryQuery filtros del resumen. ProductID vacío = todos los productos.
type SummaryQuery struct {
	ProductID string
	From      *time.Time
	To        *time.Time
}

// GetMovementSummary agrupa por tipo: suma de cantidades, suma de costos y número de movimientos.
// Solo lectura; sin movimientos devuelve un slice vacío.
func (uc *LedgerUseCase) GetMovementSummary(ctx context.Context, q SummaryQuery) ([]repository.MovementSummary, error) {
	if err := validateRange(q.From, q.To); err != nil {
		return nil, err
	}
	filter := repository.MovementFilter{ProductID: q.ProductID, From: q.From, To: q.To}

	// La versión se lee antes de Summarize: si una escritura confirma en medio,
	// el Set de abajo queda bajo una versión vieja y nunca se vuelve a leer.
	cached, version, ok, err := uc.cache.Get(ctx, filter)
	cacheable := err == nil
	if err != nil {
		uc.log.Warn().Err(err).Msg("leer cache de resumen")
	} else if ok {
		return cached, nil
	}

	summary, err := uc.movements.Summarize(ctx, filter)
	if err != nil {
		return nil, err
	}
	if summary == nil {
		summary = []repository.MovementSummary{}
	}
	sortSummary(summary)
	if cacheable {
		if err := uc.cache.Set(ctx, filter, version, summary); err != nil {
			uc.log.Warn().Err(err).Msg("escribir cache de resumen")
		}
	}
	return summary, nil
}

func sortSummary(s []repository.MovementSummary) {
	rank := make(map[entity.MovementType]int, len(entity.MovementTypes))
	for i, t := range entity.MovementTypes {
		rank[t] = i
	}
	slices.SortFunc(s, func(a, b repository.MovementSummary) int {
		return rank[a.Type] - rank[b.Type]
	})
}

// ReconciliationReport compara products.quantity contra el ledger.
type ReconciliationReport struct {
	ProductID   string
	Stored      int64 // products.quantity
	Movements   int64
	LedgerSum   int64  // suma de todas las cantidades
	FirstBefore *int64 // saldo antes del primer movimiento
	LastAfter   *int64 // saldo después del último movimiento
	Consistent  bool
}

// Reconcile verifica que FirstBefore + LedgerSum == Stored y LastAfter == Stored.
func (uc *LedgerUseCase) Reconcile(ctx context.Context, productID string) (*ReconciliationReport, error) {
	if productID == "" {
		return nil, domain.Validation("product_id", productID, "product_id es requerido")
	}
	product, err := uc.products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, domain.NotFound("product_id", productID)
	}
	bal, err := uc.movements.Balance(ctx, productID)
	if err != nil {
		return nil, err
	}
	rep := &ReconciliationReport{
		ProductID:   productID,
		Stored:      product.Quantity,
		Movements:   bal.Count,
		LedgerSum:   bal.Sum,
		FirstBefore: bal.FirstBefore,
		LastAfter:   bal.LastAfter,
		Consistent:  true,
	}
	if bal.Count > 0 && bal.FirstBefore != nil && bal.LastAfter != nil {
		rep.Consistent = *bal.FirstBefore+bal.Sum == product.Quantity && *bal.LastAfter == product.Quantity
	}
	if !rep.Consistent {
		uc.log.Error().
			Str("product_id", productID).
			Int64("stored", product.Quantity).
			Int64("ledger_sum", bal.Sum).
			Msg("ledger y producto no concuerdan")
	}
	return rep, nil
}
