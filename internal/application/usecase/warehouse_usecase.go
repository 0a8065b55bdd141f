package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/inventario-ledger/internal/application/dto"
	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
)

// WarehouseUseCase alta y consulta de bodegas, y stock por bodega.
type WarehouseUseCase struct {
	repo  repository.WarehouseRepository
	stock repository.StockRepository
}

// NewWarehouseUseCase construye el caso de uso.
func NewWarehouseUseCase(repo repository.WarehouseRepository, stock repository.StockRepository) *WarehouseUseCase {
	return &WarehouseUseCase{repo: repo, stock: stock}
}

// Create crea una nueva bodega.
func (uc *WarehouseUseCase) Create(ctx context.Context, companyID string, in dto.CreateWarehouseRequest) (*dto.WarehouseResponse, error) {
	if in.Name == "" {
		return nil, domain.Validation("name", in.Name, "name es requerido")
	}
	now := time.Now().UTC()
	warehouse := &entity.Warehouse{
		ID:        uuid.New().String(),
		CompanyID: companyID,
		Name:      in.Name,
		Address:   in.Address,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := uc.repo.Create(ctx, warehouse); err != nil {
		return nil, err
	}
	return toWarehouseResponse(warehouse), nil
}

// GetByID obtiene una bodega de la empresa.
func (uc *WarehouseUseCase) GetByID(ctx context.Context, companyID, id string) (*dto.WarehouseResponse, error) {
	warehouse, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if warehouse == nil {
		return nil, domain.NotFound("warehouse_id", id)
	}
	if warehouse.CompanyID != companyID {
		return nil, domain.Forbidden("warehouse_id", id)
	}
	return toWarehouseResponse(warehouse), nil
}

// Stock cantidad de un producto en la bodega (0 si nunca tuvo movimientos).
func (uc *WarehouseUseCase) Stock(ctx context.Context, companyID, warehouseID, productID string) (*dto.StockResponse, error) {
	if _, err := uc.GetByID(ctx, companyID, warehouseID); err != nil {
		return nil, err
	}
	s, err := uc.stock.Get(ctx, productID, warehouseID)
	if err != nil {
		return nil, err
	}
	return &dto.StockResponse{ProductID: s.ProductID, WarehouseID: s.WarehouseID, Quantity: s.Quantity, UpdatedAt: s.UpdatedAt}, nil
}

func toWarehouseResponse(w *entity.Warehouse) *dto.WarehouseResponse {
	return &dto.WarehouseResponse{
		ID:        w.ID,
		CompanyID: w.CompanyID,
		Name:      w.Name,
		Address:   w.Address,
		CreatedAt: w.CreatedAt,
		UpdatedAt: w.UpdatedAt,
	}
}
