package kafka

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
)

// MovementRecordedEvent evento publicado por cada movimiento confirmado en el ledger.
type MovementRecordedEvent struct {
	EventID         string          `json:"event_id"`
	EventType       string          `json:"event_type"`
	MovementID      string          `json:"movement_id"`
	ProductID       string          `json:"product_id"`
	WarehouseID     string          `json:"warehouse_id,omitempty"`
	VariantID       string          `json:"variant_id,omitempty"`
	MovementType    string          `json:"movement_type"`
	Quantity        int64           `json:"quantity"`
	QuantityBefore  int64           `json:"quantity_before"`
	QuantityAfter   int64           `json:"quantity_after"`
	UnitCost        decimal.Decimal `json:"unit_cost"`
	TotalCost       decimal.Decimal `json:"total_cost"`
	ReferenceType   string          `json:"reference_type,omitempty"`
	ReferenceID     string          `json:"reference_id,omitempty"`
	ReferenceNumber string          `json:"reference_number,omitempty"`
	Metadata        json.RawMessage `json:"metadata,omitempty"`
	CreatedBy       string          `json:"created_by,omitempty"`
	OccurredAt      time.Time       `json:"occurred_at"`
	Timestamp       time.Time       `json:"timestamp"`
}

// Event types
const (
	EventTypeMovementRecorded = "stock.movement_recorded"
)

// DefaultTopicMovements topic por defecto de movimientos.
const DefaultTopicMovements = "inventory.stock-movements"

// NewMovementRecordedEvent arma el evento a partir del movimiento. El EventID es el ID del movimiento
// para que los consumidores puedan deduplicar.
func NewMovementRecordedEvent(m *entity.StockMovement, now time.Time) MovementRecordedEvent {
	return MovementRecordedEvent{
		EventID:         m.ID,
		EventType:       EventTypeMovementRecorded,
		MovementID:      m.ID,
		ProductID:       m.ProductID,
		WarehouseID:     m.WarehouseID,
		VariantID:       m.VariantID,
		MovementType:    string(m.Type),
		Quantity:        m.Quantity,
		QuantityBefore:  m.QuantityBefore,
		QuantityAfter:   m.QuantityAfter,
		UnitCost:        m.UnitCost,
		TotalCost:       m.TotalCost,
		ReferenceType:   m.ReferenceType,
		ReferenceID:     m.ReferenceID,
		ReferenceNumber: m.ReferenceNumber,
		Metadata:        m.Metadata,
		CreatedBy:       m.CreatedBy,
		OccurredAt:      m.CreatedAt,
		Timestamp:       now,
	}
}
