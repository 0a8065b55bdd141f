package entity

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Product representa un producto o SKU del catálogo.
// Quantity es el saldo total desnormalizado; solo el ledger lo escribe (vía movimientos).
// Cost es promedio ponderado calculado desde las entradas con costo.
type Product struct {
	ID         string
	CompanyID  string
	SKU        string // código único por empresa
	Name       string
	Price      decimal.Decimal // precio de venta
	Cost       decimal.Decimal // costo promedio ponderado (inicia en 0)
	Quantity   int64
	Attributes json.RawMessage
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ProductVariant variante de un producto (talla, color, presentación).
type ProductVariant struct {
	ID        string
	ProductID string
	SKU       string
	Name      string
	CreatedAt time.Time
}
