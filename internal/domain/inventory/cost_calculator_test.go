package inventory_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/inventario-ledger/internal/domain/inventory"
)

func TestCostCalculator_PromedioPonderado(t *testing.T) {
	// 100 @ 200 + 100 @ 300 = 250
	got := inventory.CostCalculator(100, decimal.NewFromInt(200), 100, decimal.NewFromInt(300))
	assert.True(t, got.Equal(decimal.NewFromInt(250)), "esperado 250, obtenido %s", got)
}

func TestCostCalculator_SinStockTomaCostoEntrada(t *testing.T) {
	got := inventory.CostCalculator(0, decimal.Zero, 10, decimal.NewFromInt(15))
	assert.True(t, got.Equal(decimal.NewFromInt(15)))
}

func TestCostCalculator_EntradaNoPositivaConservaCosto(t *testing.T) {
	actual := decimal.NewFromInt(42)
	got := inventory.CostCalculator(10, actual, 0, decimal.NewFromInt(99))
	assert.True(t, got.Equal(actual))
}
