package inventory

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
)

// SaleInput venta: Quantity es la magnitud (> 0); el movimiento se registra negativo.
type SaleInput struct {
	CompanyID   string
	UserID      string
	ProductID   string
	WarehouseID string
	VariantID   string
	Quantity    int64
	UnitCost    *decimal.Decimal
	InvoiceID   string
	InvoiceRef  string // número de factura
	Notes       string
}

// RecordSale registra una venta (tipo sale, cantidad siempre negativa).
func (uc *LedgerUseCase) RecordSale(ctx context.Context, in SaleInput) (*entity.StockMovement, error) {
	if in.Quantity <= 0 {
		return nil, domain.Validation("quantity", in.Quantity, "quantity debe ser mayor que cero")
	}
	mov := MovementInput{
		CompanyID:       in.CompanyID,
		UserID:          in.UserID,
		ProductID:       in.ProductID,
		WarehouseID:     in.WarehouseID,
		VariantID:       in.VariantID,
		Type:            entity.MovementSale,
		Quantity:        -in.Quantity,
		UnitCost:        in.UnitCost,
		ReferenceID:     in.InvoiceID,
		ReferenceNumber: in.InvoiceRef,
		Notes:           in.Notes,
	}
	if in.InvoiceID != "" || in.InvoiceRef != "" {
		mov.ReferenceType = entity.ReferenceInvoice
	}
	return uc.RecordMovement(ctx, mov)
}

// PurchaseInput compra recibida: Quantity > 0 y UnitCost obligatorio.
type PurchaseInput struct {
	CompanyID        string
	UserID           string
	ProductID        string
	WarehouseID      string
	VariantID        string
	Quantity         int64
	UnitCost         *decimal.Decimal
	PurchaseOrderID  string
	PurchaseOrderRef string
	BatchNumber      string
	ExpiryDate       *time.Time
	Notes            string
}

// RecordPurchase registra una compra (tipo purchase, cantidad positiva) y actualiza el costo promedio.
func (uc *LedgerUseCase) RecordPurchase(ctx context.Context, in PurchaseInput) (*entity.StockMovement, error) {
	if in.Quantity <= 0 {
		return nil, domain.Validation("quantity", in.Quantity, "quantity debe ser mayor que cero")
	}
	if in.UnitCost == nil {
		return nil, domain.Validation("unit_cost", nil, "unit_cost es requerido en compras")
	}
	mov := MovementInput{
		CompanyID:       in.CompanyID,
		UserID:          in.UserID,
		ProductID:       in.ProductID,
		WarehouseID:     in.WarehouseID,
		VariantID:       in.VariantID,
		Type:            entity.MovementPurchase,
		Quantity:        in.Quantity,
		UnitCost:        in.UnitCost,
		ReferenceID:     in.PurchaseOrderID,
		ReferenceNumber: in.PurchaseOrderRef,
		BatchNumber:     in.BatchNumber,
		ExpiryDate:      in.ExpiryDate,
		Notes:           in.Notes,
	}
	if in.PurchaseOrderID != "" || in.PurchaseOrderRef != "" {
		mov.ReferenceType = entity.ReferencePurchaseOrder
	}
	return uc.RecordMovement(ctx, mov)
}

// AdjustmentInput ajuste manual (conteo físico): Quantity con signo, Reason obligatorio.
type AdjustmentInput struct {
	CompanyID       string
	UserID          string
	ProductID       string
	WarehouseID     string
	VariantID       string
	Quantity        int64
	Reason          string
	Notes           string
	ReferenceNumber string // número del acta de ajuste
}

// RecordAdjustment registra adjustment_in si Quantity > 0, adjustment_out en otro caso. El signo se conserva.
func (uc *LedgerUseCase) RecordAdjustment(ctx context.Context, in AdjustmentInput) (*entity.StockMovement, error) {
	if in.Quantity == 0 {
		return nil, domain.Validation("quantity", in.Quantity, "quantity no puede ser cero")
	}
	if in.Reason == "" {
		return nil, domain.Validation("reason", in.Reason, "reason es requerido en ajustes")
	}
	return uc.RecordMovement(ctx, MovementInput{
		CompanyID:       in.CompanyID,
		UserID:          in.UserID,
		ProductID:       in.ProductID,
		WarehouseID:     in.WarehouseID,
		VariantID:       in.VariantID,
		Type:            entity.AdjustmentFor(in.Quantity),
		Quantity:        in.Quantity,
		ReferenceType:   entity.ReferenceAdjustment,
		ReferenceNumber: in.ReferenceNumber,
		Reason:          in.Reason,
		Notes:           in.Notes,
	})
}

// Direcciones de una devolución.
const (
	ReturnFromCustomer = "in"  // el cliente devuelve: entra stock
	ReturnToSupplier   = "out" // se devuelve al proveedor: sale stock
)

// ReturnInput devolución de cliente (in) o a proveedor (out). Quantity es la magnitud (> 0).
type ReturnInput struct {
	CompanyID       string
	UserID          string
	ProductID       string
	WarehouseID     string
	VariantID       string
	Direction       string
	Quantity        int64
	UnitCost        *decimal.Decimal
	ReferenceID     string // factura u orden original
	ReferenceNumber string
	Reason          string
}

// RecordReturn registra return_in o return_out según Direction.
func (uc *LedgerUseCase) RecordReturn(ctx context.Context, in ReturnInput) (*entity.StockMovement, error) {
	if in.Quantity <= 0 {
		return nil, domain.Validation("quantity", in.Quantity, "quantity debe ser mayor que cero")
	}
	typ, qty := entity.MovementReturnIn, in.Quantity
	switch in.Direction {
	case ReturnFromCustomer:
	case ReturnToSupplier:
		typ, qty = entity.MovementReturnOut, -in.Quantity
	default:
		return nil, domain.Validation("direction", in.Direction, "direction debe ser in u out")
	}
	return uc.RecordMovement(ctx, MovementInput{
		CompanyID:       in.CompanyID,
		UserID:          in.UserID,
		ProductID:       in.ProductID,
		WarehouseID:     in.WarehouseID,
		VariantID:       in.VariantID,
		Type:            typ,
		Quantity:        qty,
		UnitCost:        in.UnitCost,
		ReferenceType:   entity.ReferenceReturn,
		ReferenceID:     in.ReferenceID,
		ReferenceNumber: in.ReferenceNumber,
		Reason:          in.Reason,
	})
}

// LossInput baja por avería o vencimiento. Quantity es la magnitud (> 0).
type LossInput struct {
	CompanyID   string
	UserID      string
	ProductID   string
	WarehouseID string
	VariantID   string
	Kind        entity.MovementType // damage | expired
	Quantity    int64
	BatchNumber string
	Reason      string
	Notes       string
}

// RecordLoss registra una salida de tipo damage o expired.
func (uc *LedgerUseCase) RecordLoss(ctx context.Context, in LossInput) (*entity.StockMovement, error) {
	if in.Kind != entity.MovementDamage && in.Kind != entity.MovementExpired {
		return nil, domain.Validation("kind", in.Kind, "kind debe ser damage o expired")
	}
	if in.Quantity <= 0 {
		return nil, domain.Validation("quantity", in.Quantity, "quantity debe ser mayor que cero")
	}
	return uc.RecordMovement(ctx, MovementInput{
		CompanyID:   in.CompanyID,
		UserID:      in.UserID,
		ProductID:   in.ProductID,
		WarehouseID: in.WarehouseID,
		VariantID:   in.VariantID,
		Type:        in.Kind,
		Quantity:    -in.Quantity,
		BatchNumber: in.BatchNumber,
		Reason:      in.Reason,
		Notes:       in.Notes,
	})
}
