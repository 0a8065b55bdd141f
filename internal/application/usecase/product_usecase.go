package usecase

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/inventario-ledger/internal/application/dto"
	"github.com/jhoicas/inventario-ledger/internal/application/inventory"
	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
)

// ProductUseCase alta y consulta de productos. Quantity y Cost se manejan vía movimientos.
type ProductUseCase struct {
	repo     repository.ProductRepository
	variants repository.VariantRepository
	txRunner inventory.TxRunner
	ledger   *inventory.LedgerUseCase
}

// NewProductUseCase construye el caso de uso.
func NewProductUseCase(
	repo repository.ProductRepository,
	variants repository.VariantRepository,
	txRunner inventory.TxRunner,
	ledger *inventory.LedgerUseCase,
) *ProductUseCase {
	return &ProductUseCase{repo: repo, variants: variants, txRunner: txRunner, ledger: ledger}
}

// Create crea un producto con cantidad 0. Si InitialQuantity > 0 registra el saldo inicial
// como movimiento "initial" en la misma transacción.
func (uc *ProductUseCase) Create(ctx context.Context, companyID, userID string, in dto.CreateProductRequest) (*dto.ProductResponse, error) {
	if in.SKU == "" {
		return nil, domain.Validation("sku", in.SKU, "sku es requerido")
	}
	if in.Name == "" {
		return nil, domain.Validation("name", in.Name, "name es requerido")
	}
	if in.Price.IsNegative() {
		return nil, domain.Validation("price", in.Price.String(), "price no puede ser negativo")
	}
	if in.InitialQuantity < 0 {
		return nil, domain.Validation("initial_quantity", in.InitialQuantity, "initial_quantity no puede ser negativo")
	}
	if len(in.Attributes) > 0 && !json.Valid(in.Attributes) {
		return nil, domain.Validation("attributes", string(in.Attributes), "attributes debe ser JSON válido")
	}

	now := time.Now().UTC()
	product := &entity.Product{
		ID:         uuid.New().String(),
		CompanyID:  companyID,
		SKU:        in.SKU,
		Name:       in.Name,
		Price:      in.Price,
		Cost:       decimal.Zero,
		Attributes: in.Attributes,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	var initial *entity.StockMovement
	err := uc.txRunner.Run(ctx, func(repos inventory.TxRepos) error {
		if err := repos.Products.Create(ctx, product); err != nil {
			return err
		}
		if in.InitialQuantity == 0 {
			return nil
		}
		m, err := uc.ledger.ApplyInTx(ctx, repos, inventory.MovementInput{
			CompanyID:   companyID,
			UserID:      userID,
			ProductID:   product.ID,
			WarehouseID: in.WarehouseID,
			Type:        entity.MovementInitial,
			Quantity:    in.InitialQuantity,
			UnitCost:    in.InitialCost,
			Reason:      "saldo inicial",
		})
		if err != nil {
			return err
		}
		initial = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	if initial != nil {
		uc.ledger.AfterCommit(ctx, initial)
		product.Quantity = initial.QuantityAfter
		if in.InitialCost != nil {
			product.Cost = *in.InitialCost
		}
	}
	return toProductResponse(product), nil
}

// GetByID obtiene un producto de la empresa.
func (uc *ProductUseCase) GetByID(ctx context.Context, companyID, id string) (*dto.ProductResponse, error) {
	product, err := uc.get(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	return toProductResponse(product), nil
}

// CreateVariant agrega una variante a un producto existente.
func (uc *ProductUseCase) CreateVariant(ctx context.Context, companyID, productID string, in dto.CreateVariantRequest) (*dto.VariantResponse, error) {
	if in.SKU == "" {
		return nil, domain.Validation("sku", in.SKU, "sku es requerido")
	}
	if in.Name == "" {
		return nil, domain.Validation("name", in.Name, "name es requerido")
	}
	if _, err := uc.get(ctx, companyID, productID); err != nil {
		return nil, err
	}
	v := &entity.ProductVariant{
		ID:        uuid.New().String(),
		ProductID: productID,
		SKU:       in.SKU,
		Name:      in.Name,
		CreatedAt: time.Now().UTC(),
	}
	if err := uc.variants.Create(ctx, v); err != nil {
		return nil, err
	}
	return &dto.VariantResponse{ID: v.ID, ProductID: v.ProductID, SKU: v.SKU, Name: v.Name, CreatedAt: v.CreatedAt}, nil
}

func (uc *ProductUseCase) get(ctx context.Context, companyID, id string) (*entity.Product, error) {
	product, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, domain.NotFound("product_id", id)
	}
	if product.CompanyID != companyID {
		return nil, domain.Forbidden("product_id", id)
	}
	return product, nil
}

func toProductResponse(p *entity.Product) *dto.ProductResponse {
	return &dto.ProductResponse{
		ID:         p.ID,
		CompanyID:  p.CompanyID,
		SKU:        p.SKU,
		Name:       p.Name,
		Price:      p.Price,
		Cost:       p.Cost,
		Quantity:   p.Quantity,
		Attributes: p.Attributes,
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
	}
}
