package entity

import "strings"

// MovementType tipo de movimiento de inventario (enumeración cerrada).
// Cada tipo tiene una dirección fija: entrada (+) o salida (-).
type MovementType string

const (
	MovementPurchase      MovementType = "purchase"       // compra recibida
	MovementSale          MovementType = "sale"           // venta
	MovementReturnIn      MovementType = "return_in"      // devolución de cliente
	MovementReturnOut     MovementType = "return_out"     // devolución a proveedor
	MovementAdjustmentIn  MovementType = "adjustment_in"  // ajuste positivo (conteo físico)
	MovementAdjustmentOut MovementType = "adjustment_out" // ajuste negativo
	MovementTransferIn    MovementType = "transfer_in"    // traslado, bodega destino
	MovementTransferOut   MovementType = "transfer_out"   // traslado, bodega origen
	MovementDamage        MovementType = "damage"         // avería
	MovementExpired       MovementType = "expired"        // vencido
	MovementInitial       MovementType = "initial"        // saldo inicial
)

// MovementTypes todos los tipos en orden canónico (usado para ordenar resúmenes).
var MovementTypes = []MovementType{
	MovementInitial,
	MovementPurchase,
	MovementSale,
	MovementReturnIn,
	MovementReturnOut,
	MovementAdjustmentIn,
	MovementAdjustmentOut,
	MovementTransferIn,
	MovementTransferOut,
	MovementDamage,
	MovementExpired,
}

var inbound = map[MovementType]bool{
	MovementPurchase:      true,
	MovementReturnIn:      true,
	MovementAdjustmentIn:  true,
	MovementTransferIn:    true,
	MovementInitial:       true,
	MovementSale:          false,
	MovementReturnOut:     false,
	MovementAdjustmentOut: false,
	MovementTransferOut:   false,
	MovementDamage:        false,
	MovementExpired:       false,
}

// ParseMovementType normaliza y valida el nombre del tipo.
func ParseMovementType(s string) (MovementType, bool) {
	t := MovementType(strings.ToLower(strings.TrimSpace(s)))
	return t, t.Valid()
}

// Valid indica si el tipo pertenece a la enumeración.
func (t MovementType) Valid() bool {
	_, ok := inbound[t]
	return ok
}

// IsInbound true para tipos que aumentan el stock.
func (t MovementType) IsInbound() bool {
	return inbound[t]
}

// Sign +1 para entradas, -1 para salidas, 0 si el tipo no es válido.
func (t MovementType) Sign() int64 {
	if !t.Valid() {
		return 0
	}
	if t.IsInbound() {
		return 1
	}
	return -1
}

// AcceptsQuantity verifica que el signo de quantity sea coherente con el tipo.
func (t MovementType) AcceptsQuantity(quantity int64) bool {
	if quantity == 0 {
		return false
	}
	return (quantity > 0) == t.IsInbound() && t.Valid()
}

// AdjustmentFor elige AdjustmentIn o AdjustmentOut según el signo del delta.
func AdjustmentFor(delta int64) MovementType {
	if delta > 0 {
		return MovementAdjustmentIn
	}
	return MovementAdjustmentOut
}

func (t MovementType) String() string { return string(t) }
