package entity

import "time"

// Stock cantidad de un producto en una bodega (bucket por bodega).
// Una fila inexistente equivale a cantidad 0.
type Stock struct {
	ProductID   string
	WarehouseID string
	Quantity    int64
	UpdatedAt   time.Time
}
