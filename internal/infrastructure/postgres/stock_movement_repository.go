package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
)

var _ repository.StockMovementRepository = (*StockMovementRepo)(nil)

const movementColumns = `id, product_id, warehouse_id, variant_id, movement_type, quantity, quantity_before, quantity_after,
	unit_cost, total_cost, reference_type, reference_id, reference_number, batch_number, expiry_date,
	reason, notes, metadata, created_by, created_at`

const selectMovementColumns = movementColumns + `, seq`

// StockMovementRepo ledger de movimientos sobre PostgreSQL (usable con pool o tx).
// Solo inserta y consulta: la tabla es append-only.
type StockMovementRepo struct {
	q Querier
}

// NewStockMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewStockMovementRepository(q Querier) *StockMovementRepo {
	return &StockMovementRepo{q: q}
}

// Create persiste un movimiento. seq (orden de inserción) lo asigna la BD.
func (r *StockMovementRepo) Create(ctx context.Context, m *entity.StockMovement) error {
	query := `
		INSERT INTO stock_movements (` + movementColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		RETURNING seq`
	err := r.q.QueryRow(ctx, query,
		m.ID, m.ProductID, nullable(m.WarehouseID), nullable(m.VariantID), string(m.Type),
		m.Quantity, m.QuantityBefore, m.QuantityAfter, m.UnitCost, m.TotalCost,
		nullable(m.ReferenceType), nullable(m.ReferenceID), nullable(m.ReferenceNumber), nullable(m.BatchNumber),
		m.ExpiryDate, nullable(m.Reason), nullable(m.Notes), m.Metadata, nullable(m.CreatedBy), m.CreatedAt,
	).Scan(&m.Seq)
	if err != nil {
		return fmt.Errorf("create stock movement: %w", err)
	}
	return nil
}

// GetByID obtiene un movimiento por ID.
func (r *StockMovementRepo) GetByID(ctx context.Context, id string) (*entity.StockMovement, error) {
	if !validID(id) {
		return nil, nil
	}
	m, err := scanMovement(r.q.QueryRow(ctx, `SELECT `+selectMovementColumns+` FROM stock_movements WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get movement: %w", err)
	}
	return m, nil
}

// whereClause arma el WHERE a partir del filtro; devuelve la cláusula, los args y la siguiente posición.
func whereClause(f repository.MovementFilter) (string, []any, int) {
	var conds []string
	var args []any
	pos := 1
	add := func(cond string, v any) {
		conds = append(conds, fmt.Sprintf(cond, pos))
		args = append(args, v)
		pos++
	}
	if f.ProductID != "" {
		add("product_id = $%d", f.ProductID)
	}
	if f.Type != "" {
		add("movement_type = $%d", string(f.Type))
	}
	if f.From != nil {
		add("created_at >= $%d", *f.From)
	}
	if f.To != nil {
		add("created_at <= $%d", *f.To)
	}
	if len(conds) == 0 {
		return "", args, pos
	}
	return " WHERE " + strings.Join(conds, " AND "), args, pos
}

// List movimientos del más reciente al más antiguo; a igual created_at decide el orden de inserción.
// Pagina por keyset sobre (created_at, seq): lo insertado entre páginas no desplaza las siguientes.
func (r *StockMovementRepo) List(ctx context.Context, f repository.MovementFilter, limit int, after *repository.MovementCursor) ([]*entity.StockMovement, error) {
	if f.ProductID != "" && !validID(f.ProductID) {
		return []*entity.StockMovement{}, nil
	}
	where, args, pos := whereClause(f)
	if after != nil {
		cond := fmt.Sprintf("(created_at, seq) < ($%d, $%d)", pos, pos+1)
		if where == "" {
			where = " WHERE " + cond
		} else {
			where += " AND " + cond
		}
		args = append(args, after.CreatedAt, after.Seq)
		pos += 2
	}
	query := `SELECT ` + selectMovementColumns + ` FROM stock_movements` + where +
		fmt.Sprintf(" ORDER BY created_at DESC, seq DESC LIMIT $%d", pos)
	args = append(args, limit)

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list movements: %w", err)
	}
	defer rows.Close()
	list := make([]*entity.StockMovement, 0, limit)
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan movement: %w", err)
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

// Summarize agrupa por tipo: suma de cantidades, suma de costos y conteo.
func (r *StockMovementRepo) Summarize(ctx context.Context, f repository.MovementFilter) ([]repository.MovementSummary, error) {
	if f.ProductID != "" && !validID(f.ProductID) {
		return []repository.MovementSummary{}, nil
	}
	where, args, _ := whereClause(f)
	query := `
		SELECT movement_type, COALESCE(SUM(quantity), 0)::bigint, COALESCE(SUM(total_cost), 0), COUNT(*)
		FROM stock_movements` + where + `
		GROUP BY movement_type`
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("summarize movements: %w", err)
	}
	defer rows.Close()
	list := make([]repository.MovementSummary, 0)
	for rows.Next() {
		var s repository.MovementSummary
		var typ string
		if err := rows.Scan(&typ, &s.Quantity, &s.TotalCost, &s.Count); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		s.Type = entity.MovementType(typ)
		list = append(list, s)
	}
	return list, rows.Err()
}

// Balance totales del ledger de un producto para conciliación.
func (r *StockMovementRepo) Balance(ctx context.Context, productID string) (repository.LedgerBalance, error) {
	var bal repository.LedgerBalance
	if !validID(productID) {
		return bal, nil
	}
	err := r.q.QueryRow(ctx, `
		SELECT COUNT(*), COALESCE(SUM(quantity), 0)::bigint,
			(SELECT quantity_before FROM stock_movements WHERE product_id = $1 ORDER BY created_at, seq LIMIT 1),
			(SELECT quantity_after FROM stock_movements WHERE product_id = $1 ORDER BY created_at DESC, seq DESC LIMIT 1)
		FROM stock_movements WHERE product_id = $1`, productID,
	).Scan(&bal.Count, &bal.Sum, &bal.FirstBefore, &bal.LastAfter)
	if err != nil {
		return bal, fmt.Errorf("ledger balance: %w", err)
	}
	return bal, nil
}

func scanMovement(row pgx.Row) (*entity.StockMovement, error) {
	var (
		m                                entity.StockMovement
		typ                              string
		warehouseID, variantID           *string
		refType, refID, refNumber, batch *string
		reason, notes, createdBy         *string
		expiry                           *time.Time
	)
	err := row.Scan(&m.ID, &m.ProductID, &warehouseID, &variantID, &typ, &m.Quantity, &m.QuantityBefore,
		&m.QuantityAfter, &m.UnitCost, &m.TotalCost, &refType, &refID, &refNumber, &batch, &expiry,
		&reason, &notes, &m.Metadata, &createdBy, &m.CreatedAt, &m.Seq)
	if err != nil {
		return nil, err
	}
	m.Type = entity.MovementType(typ)
	m.WarehouseID = deref(warehouseID)
	m.VariantID = deref(variantID)
	m.ReferenceType = deref(refType)
	m.ReferenceID = deref(refID)
	m.ReferenceNumber = deref(refNumber)
	m.BatchNumber = deref(batch)
	m.ExpiryDate = expiry
	m.Reason = deref(reason)
	m.Notes = deref(notes)
	m.CreatedBy = deref(createdBy)
	return &m, nil
}
