package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
)

var (
	_ repository.WarehouseRepository = (*WarehouseRepo)(nil)
	_ repository.VariantRepository   = (*VariantRepo)(nil)
)

// WarehouseRepo implementación del puerto WarehouseRepository sobre PostgreSQL.
type WarehouseRepo struct {
	q Querier
}

// NewWarehouseRepository construye el adaptador de persistencia para bodegas.
func NewWarehouseRepository(q Querier) *WarehouseRepo {
	return &WarehouseRepo{q: q}
}

// Create persiste una nueva bodega.
func (r *WarehouseRepo) Create(ctx context.Context, warehouse *entity.Warehouse) error {
	query := `
		INSERT INTO warehouses (id, company_id, name, address, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.q.Exec(ctx, query,
		warehouse.ID, warehouse.CompanyID, warehouse.Name, warehouse.Address,
		warehouse.CreatedAt, warehouse.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert warehouse: %w", err)
	}
	return nil
}

// GetByID obtiene una bodega por ID.
func (r *WarehouseRepo) GetByID(ctx context.Context, id string) (*entity.Warehouse, error) {
	if !validID(id) {
		return nil, nil
	}
	query := `
		SELECT id, company_id, name, address, created_at, updated_at
		FROM warehouses WHERE id = $1`
	var w entity.Warehouse
	var address *string
	err := r.q.QueryRow(ctx, query, id).Scan(
		&w.ID, &w.CompanyID, &w.Name, &address, &w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get warehouse: %w", err)
	}
	w.Address = deref(address)
	return &w, nil
}

// VariantRepo variantes de producto.
type VariantRepo struct {
	q Querier
}

func NewVariantRepository(q Querier) *VariantRepo {
	return &VariantRepo{q: q}
}

func (r *VariantRepo) Create(ctx context.Context, v *entity.ProductVariant) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO product_variants (id, product_id, sku, name, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		v.ID, v.ProductID, v.SKU, v.Name, v.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		if isForeignKeyViolation(err) {
			return domain.NotFound("product_id", v.ProductID)
		}
		return fmt.Errorf("insert variant: %w", err)
	}
	return nil
}

func (r *VariantRepo) GetByID(ctx context.Context, id string) (*entity.ProductVariant, error) {
	if !validID(id) {
		return nil, nil
	}
	var v entity.ProductVariant
	err := r.q.QueryRow(ctx, `
		SELECT id, product_id, sku, name, created_at
		FROM product_variants WHERE id = $1`, id).Scan(&v.ID, &v.ProductID, &v.SKU, &v.Name, &v.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get variant: %w", err)
	}
	return &v, nil
}
