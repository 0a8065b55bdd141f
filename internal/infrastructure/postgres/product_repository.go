package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
)

var _ repository.ProductRepository = (*ProductRepo)(nil)

const productColumns = `id, company_id, sku, name, price, cost, quantity, attributes, created_at, updated_at`

// ProductRepo implementación del puerto ProductRepository sobre PostgreSQL (usable con pool o tx).
type ProductRepo struct {
	q Querier
}

// NewProductRepository construye el adaptador de persistencia para productos. Pasar pool o tx (Querier).
func NewProductRepository(q Querier) *ProductRepo {
	return &ProductRepo{q: q}
}

// Create persiste un nuevo producto.
func (r *ProductRepo) Create(ctx context.Context, product *entity.Product) error {
	query := `
		INSERT INTO products (` + productColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.q.Exec(ctx, query,
		product.ID, product.CompanyID, product.SKU, product.Name, product.Price,
		product.Cost, product.Quantity, product.Attributes, product.CreatedAt, product.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

// GetByID obtiene un producto por ID. Devuelve (nil, nil) si no existe.
func (r *ProductRepo) GetByID(ctx context.Context, id string) (*entity.Product, error) {
	if !validID(id) {
		return nil, nil
	}
	p, err := scanProduct(r.q.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

// GetForUpdate obtiene el producto y bloquea la fila hasta el fin de la transacción.
func (r *ProductRepo) GetForUpdate(ctx context.Context, id string) (*entity.Product, error) {
	if !validID(id) {
		return nil, nil
	}
	p, err := scanProduct(r.q.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if isRetryable(err) {
			return nil, domain.Conflict(id, err)
		}
		return nil, fmt.Errorf("get product for update: %w", err)
	}
	return p, nil
}

// UpdateQuantity compare-and-set: solo escribe si la cantidad actual sigue siendo expected.
func (r *ProductRepo) UpdateQuantity(ctx context.Context, productID string, expected, newQty int64) error {
	cmd, err := r.q.Exec(ctx,
		`UPDATE products SET quantity = $3, updated_at = now() WHERE id = $1 AND quantity = $2`,
		productID, expected, newQty,
	)
	if err != nil {
		if isRetryable(err) {
			return domain.Conflict(productID, err)
		}
		return fmt.Errorf("update product quantity: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.Conflict(productID, nil)
	}
	return nil
}

// UpdateCost actualiza solo el costo promedio del producto.
func (r *ProductRepo) UpdateCost(ctx context.Context, productID string, cost decimal.Decimal) error {
	_, err := r.q.Exec(ctx,
		`UPDATE products SET cost = $2, updated_at = now() WHERE id = $1`,
		productID, cost,
	)
	if err != nil {
		return fmt.Errorf("update product cost: %w", err)
	}
	return nil
}

func scanProduct(row pgx.Row) (*entity.Product, error) {
	var p entity.Product
	err := row.Scan(&p.ID, &p.CompanyID, &p.SKU, &p.Name, &p.Price, &p.Cost, &p.Quantity,
		&p.Attributes, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}
