package dto

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// RegisterMovementRequest body para POST /api/inventory/movements.
// Quantity lleva signo y debe coincidir con la dirección de Type.
type RegisterMovementRequest struct {
	ProductID       string           `json:"product_id"`
	WarehouseID     string           `json:"warehouse_id,omitempty"`
	VariantID       string           `json:"variant_id,omitempty"`
	Type            string           `json:"type"`
	Quantity        int64            `json:"quantity"`
	UnitCost        *decimal.Decimal `json:"unit_cost,omitempty"`
	ReferenceType   string           `json:"reference_type,omitempty"`
	ReferenceID     string           `json:"reference_id,omitempty"`
	ReferenceNumber string           `json:"reference_number,omitempty"`
	BatchNumber     string           `json:"batch_number,omitempty"`
	ExpiryDate      *time.Time       `json:"expiry_date,omitempty"`
	Reason          string           `json:"reason,omitempty"`
	Notes           string           `json:"notes,omitempty"`
	Metadata        json.RawMessage  `json:"metadata,omitempty"`
}

// SaleRequest POST /api/inventory/sales. Quantity es la magnitud vendida (> 0).
type SaleRequest struct {
	ProductID   string           `json:"product_id"`
	WarehouseID string           `json:"warehouse_id,omitempty"`
	VariantID   string           `json:"variant_id,omitempty"`
	Quantity    int64            `json:"quantity"`
	UnitCost    *decimal.Decimal `json:"unit_cost,omitempty"`
	InvoiceID   string           `json:"invoice_id,omitempty"`
	InvoiceRef  string           `json:"invoice_ref,omitempty"`
	Notes       string           `json:"notes,omitempty"`
}

// PurchaseRequest POST /api/inventory/purchases.
type PurchaseRequest struct {
	ProductID        string           `json:"product_id"`
	WarehouseID      string           `json:"warehouse_id,omitempty"`
	VariantID        string           `json:"variant_id,omitempty"`
	Quantity         int64            `json:"quantity"`
	UnitCost         *decimal.Decimal `json:"unit_cost"`
	PurchaseOrderID  string           `json:"purchase_order_id,omitempty"`
	PurchaseOrderRef string           `json:"purchase_order_ref,omitempty"`
	BatchNumber      string           `json:"batch_number,omitempty"`
	ExpiryDate       *time.Time       `json:"expiry_date,omitempty"`
	Notes            string           `json:"notes,omitempty"`
}

// AdjustmentRequest POST /api/inventory/adjustments. Quantity con signo.
type AdjustmentRequest struct {
	ProductID       string `json:"product_id"`
	WarehouseID     string `json:"warehouse_id,omitempty"`
	VariantID       string `json:"variant_id,omitempty"`
	Quantity        int64  `json:"quantity"`
	Reason          string `json:"reason"`
	Notes           string `json:"notes,omitempty"`
	ReferenceNumber string `json:"reference_number,omitempty"`
}

// TransferRequest POST /api/inventory/transfers.
type TransferRequest struct {
	ProductID       string           `json:"product_id"`
	VariantID       string           `json:"variant_id,omitempty"`
	FromWarehouseID string           `json:"from_warehouse_id"`
	ToWarehouseID   string           `json:"to_warehouse_id"`
	Quantity        int64            `json:"quantity"`
	UnitCost        *decimal.Decimal `json:"unit_cost,omitempty"`
	ReferenceNumber string           `json:"reference_number,omitempty"`
	Notes           string           `json:"notes,omitempty"`
}

// ReturnRequest POST /api/inventory/returns. Direction: in (cliente) | out (proveedor).
type ReturnRequest struct {
	ProductID       string           `json:"product_id"`
	WarehouseID     string           `json:"warehouse_id,omitempty"`
	VariantID       string           `json:"variant_id,omitempty"`
	Direction       string           `json:"direction"`
	Quantity        int64            `json:"quantity"`
	UnitCost        *decimal.Decimal `json:"unit_cost,omitempty"`
	ReferenceID     string           `json:"reference_id,omitempty"`
	ReferenceNumber string           `json:"reference_number,omitempty"`
	Reason          string           `json:"reason,omitempty"`
}

// LossRequest POST /api/inventory/losses. Kind: damage | expired.
type LossRequest struct {
	ProductID   string `json:"product_id"`
	WarehouseID string `json:"warehouse_id,omitempty"`
	VariantID   string `json:"variant_id,omitempty"`
	Kind        string `json:"kind"`
	Quantity    int64  `json:"quantity"`
	BatchNumber string `json:"batch_number,omitempty"`
	Reason      string `json:"reason,omitempty"`
	Notes       string `json:"notes,omitempty"`
}

// MovementResponse fila del ledger.
type MovementResponse struct {
	ID              string          `json:"id"`
	ProductID       string          `json:"product_id"`
	WarehouseID     string          `json:"warehouse_id,omitempty"`
	VariantID       string          `json:"variant_id,omitempty"`
	Type            string          `json:"type"`
	Quantity        int64           `json:"quantity"`
	QuantityBefore  int64           `json:"quantity_before"`
	QuantityAfter   int64           `json:"quantity_after"`
	UnitCost        decimal.Decimal `json:"unit_cost"`
	TotalCost       decimal.Decimal `json:"total_cost"`
	ReferenceType   string          `json:"reference_type,omitempty"`
	ReferenceID     string          `json:"reference_id,omitempty"`
	ReferenceNumber string          `json:"reference_number,omitempty"`
	BatchNumber     string          `json:"batch_number,omitempty"`
	ExpiryDate      *time.Time      `json:"expiry_date,omitempty"`
	Reason          string          `json:"reason,omitempty"`
	Notes           string          `json:"notes,omitempty"`
	Metadata        json.RawMessage `json:"metadata,omitempty"`
	CreatedBy       string          `json:"created_by,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// TransferResponse las dos patas de un traslado.
type TransferResponse struct {
	Out MovementResponse `json:"out"`
	In  MovementResponse `json:"in"`
}

// HistoryResponse historial de un producto, del más reciente al más antiguo.
type HistoryResponse struct {
	ProductID string             `json:"product_id"`
	Items     []MovementResponse `json:"items"`
	Limit     int                `json:"limit"`
}

// SummaryItem agregado por tipo.
type SummaryItem struct {
	Type      string          `json:"type"`
	Quantity  int64           `json:"quantity"`
	TotalCost decimal.Decimal `json:"total_cost"`
	Count     int64           `json:"count"`
}

// SummaryResponse resumen por tipo de movimiento.
type SummaryResponse struct {
	ProductID string        `json:"product_id,omitempty"`
	From      *time.Time    `json:"from,omitempty"`
	To        *time.Time    `json:"to,omitempty"`
	Items     []SummaryItem `json:"items"`
}

// ReconciliationResponse resultado de conciliar producto vs ledger.
type ReconciliationResponse struct {
	ProductID   string `json:"product_id"`
	Stored      int64  `json:"stored_quantity"`
	Movements   int64  `json:"movements"`
	LedgerSum   int64  `json:"ledger_sum"`
	FirstBefore *int64 `json:"first_quantity_before,omitempty"`
	LastAfter   *int64 `json:"last_quantity_after,omitempty"`
	Consistent  bool   `json:"consistent"`
}
