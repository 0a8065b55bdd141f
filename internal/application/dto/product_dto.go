package dto

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// CreateProductRequest entrada para crear un producto.
// InitialQuantity > 0 registra un movimiento "initial" en la misma transacción.
type CreateProductRequest struct {
	SKU             string           `json:"sku" validate:"required,min=1,max=100"`
	Name            string           `json:"name" validate:"required,min=1,max=200"`
	Price           decimal.Decimal  `json:"price"`
	Attributes      json.RawMessage  `json:"attributes"`
	InitialQuantity int64            `json:"initial_quantity"`
	InitialCost     *decimal.Decimal `json:"initial_cost,omitempty"`
	WarehouseID     string           `json:"warehouse_id,omitempty"`
}

// ProductResponse salida de un producto. Quantity y Cost solo cambian vía movimientos.
type ProductResponse struct {
	ID         string          `json:"id"`
	CompanyID  string          `json:"company_id"`
	SKU        string          `json:"sku"`
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`
	Cost       decimal.Decimal `json:"cost"`
	Quantity   int64           `json:"quantity"`
	Attributes json.RawMessage `json:"attributes,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// CreateVariantRequest entrada para crear una variante.
type CreateVariantRequest struct {
	SKU  string `json:"sku" validate:"required"`
	Name string `json:"name" validate:"required"`
}

// VariantResponse salida de una variante.
type VariantResponse struct {
	ID        string    `json:"id"`
	ProductID string    `json:"product_id"`
	SKU       string    `json:"sku"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
