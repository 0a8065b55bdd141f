package inventory

import "github.com/shopspring/decimal"

// CostCalculator implementa la lógica de costo promedio ponderado (servicio de dominio).
// NuevoCosto = ((StockActual * CostoActual) + (CantEntrada * CostoEntrada)) / (StockActual + CantEntrada)
// Con stock resultante <= 0 el costo vigente se reemplaza por el de la entrada.
func CostCalculator(stockActual int64, costoActual decimal.Decimal, cantEntrada int64, costoEntrada decimal.Decimal) decimal.Decimal {
	if cantEntrada <= 0 {
		return costoActual
	}
	if stockActual < 0 {
		stockActual = 0
	}
	sum := stockActual + cantEntrada
	actual := decimal.NewFromInt(stockActual)
	entrada := decimal.NewFromInt(cantEntrada)
	num := actual.Mul(costoActual).Add(entrada.Mul(costoEntrada))
	return num.Div(decimal.NewFromInt(sum)).Round(4)
}
