package entity

import (
	"encoding/json"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/inventario-ledger/internal/domain"
)

// Tipos de documento de referencia más comunes.
const (
	ReferenceInvoice       = "invoice"
	ReferencePurchaseOrder = "purchase_order"
	ReferenceAdjustment    = "adjustment"
	ReferenceTransfer      = "transfer"
	ReferenceReturn        = "return"
)

// StockMovement fila inmutable del ledger: un cambio atómico y con signo en la cantidad de un producto.
// Solo se construye con NewStockMovement; no se actualiza ni se elimina.
type StockMovement struct {
	ID              string
	ProductID       string
	WarehouseID     string // opcional
	VariantID       string // opcional
	Type            MovementType
	Quantity        int64 // positivo entrada, negativo salida
	QuantityBefore  int64
	QuantityAfter   int64
	UnitCost        decimal.Decimal
	TotalCost       decimal.Decimal // |Quantity| * UnitCost
	ReferenceType   string
	ReferenceID     string
	ReferenceNumber string
	BatchNumber     string
	ExpiryDate      *time.Time
	Reason          string
	Notes           string
	Metadata        json.RawMessage // blob opaco del módulo que origina el movimiento
	CreatedBy       string          // vacío = movimiento del sistema
	CreatedAt       time.Time
	Seq             int64 // orden de inserción, lo asigna el repositorio al persistir
}

// MovementParams datos para construir un movimiento.
type MovementParams struct {
	ProductID       string
	WarehouseID     string
	VariantID       string
	Type            MovementType
	Quantity        int64
	QuantityBefore  int64
	UnitCost        *decimal.Decimal
	ReferenceType   string
	ReferenceID     string
	ReferenceNumber string
	BatchNumber     string
	ExpiryDate      *time.Time
	Reason          string
	Notes           string
	Metadata        json.RawMessage
	CreatedBy       string
	CreatedAt       time.Time
}

// NewStockMovement valida tipo y signo, calcula QuantityAfter y TotalCost.
// Falla con ErrInsufficientStock si QuantityAfter quedaría negativo.
func NewStockMovement(p MovementParams) (*StockMovement, error) {
	if p.ProductID == "" {
		return nil, domain.Validation("product_id", p.ProductID, "product_id es requerido")
	}
	if !p.Type.Valid() {
		return nil, domain.Validation("type", p.Type, "tipo de movimiento inválido")
	}
	if p.Quantity == 0 {
		return nil, domain.Validation("quantity", p.Quantity, "quantity no puede ser cero")
	}
	if !p.Type.AcceptsQuantity(p.Quantity) {
		return nil, domain.Validation("quantity", p.Quantity, "el signo de quantity no corresponde al tipo "+string(p.Type))
	}
	unitCost := decimal.Zero
	if p.UnitCost != nil {
		if p.UnitCost.IsNegative() {
			return nil, domain.Validation("unit_cost", p.UnitCost.String(), "unit_cost no puede ser negativo")
		}
		unitCost = *p.UnitCost
	}
	if p.Quantity == math.MinInt64 || (p.Quantity > 0 && p.Quantity > math.MaxInt64-p.QuantityBefore) {
		return nil, domain.Validation("quantity", p.Quantity, "quantity excede el rango admitido")
	}
	after := p.QuantityBefore + p.Quantity
	if after < 0 {
		return nil, domain.InsufficientStock("product_id", p.ProductID, -p.Quantity, p.QuantityBefore)
	}
	createdAt := p.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	abs := p.Quantity
	if abs < 0 {
		abs = -abs
	}
	return &StockMovement{
		ID:              uuid.New().String(),
		ProductID:       p.ProductID,
		WarehouseID:     p.WarehouseID,
		VariantID:       p.VariantID,
		Type:            p.Type,
		Quantity:        p.Quantity,
		QuantityBefore:  p.QuantityBefore,
		QuantityAfter:   after,
		UnitCost:        unitCost,
		TotalCost:       decimal.NewFromInt(abs).Mul(unitCost),
		ReferenceType:   p.ReferenceType,
		ReferenceID:     p.ReferenceID,
		ReferenceNumber: p.ReferenceNumber,
		BatchNumber:     p.BatchNumber,
		ExpiryDate:      p.ExpiryDate,
		Reason:          p.Reason,
		Notes:           p.Notes,
		Metadata:        p.Metadata,
		CreatedBy:       p.CreatedBy,
		CreatedAt:       createdAt,
	}, nil
}
