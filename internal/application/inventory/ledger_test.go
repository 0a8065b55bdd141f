package inventory_test

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-ledger/internal/application/inventory"
	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
	"github.com/jhoicas/inventario-ledger/internal/infrastructure/memory"
)

const companyID = "company-1"

type fixture struct {
	store *memory.Store
	uc    *inventory.LedgerUseCase
	clock time.Time
}

func newFixture(t *testing.T, opts ...inventory.Option) *fixture {
	t.Helper()
	f := &fixture{
		store: memory.NewStore(),
		clock: time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC),
	}
	repos := f.store.Repos()
	cfg := inventory.LedgerConfig{MaxRetries: 3, RetryBackoff: time.Millisecond, HistoryPageSize: 2, HistoryMaxLimit: 50}
	clock := inventory.WithClock(func() time.Time {
		// cada movimiento avanza un segundo para que el orden por fecha sea estable
		f.clock = f.clock.Add(time.Second)
		return f.clock
	})
	f.uc = inventory.NewLedgerUseCase(f.store, repos.Movements, repos.Products, cfg, append([]inventory.Option{clock}, opts...)...)
	return f
}

func (f *fixture) product(t *testing.T, id string, qty int64) {
	t.Helper()
	require.NoError(t, f.store.Repos().Products.Create(context.Background(), &entity.Product{
		ID: id, CompanyID: companyID, SKU: "SKU-" + id, Name: "Producto " + id,
		Price: decimal.NewFromInt(20), Cost: decimal.Zero, Quantity: qty,
	}))
}

func (f *fixture) warehouse(t *testing.T, id string, stock map[string]int64) {
	t.Helper()
	ctx := context.Background()
	repos := f.store.Repos()
	require.NoError(t, repos.Warehouses.Create(ctx, &entity.Warehouse{ID: id, CompanyID: companyID, Name: "Bodega " + id}))
	for productID, qty := range stock {
		require.NoError(t, repos.Stock.Upsert(ctx, &entity.Stock{ProductID: productID, WarehouseID: id, Quantity: qty}))
	}
}

func (f *fixture) quantity(t *testing.T, productID string) int64 {
	t.Helper()
	p, err := f.store.Repos().Products.GetByID(context.Background(), productID)
	require.NoError(t, err)
	require.NotNil(t, p)
	return p.Quantity
}

func (f *fixture) history(t *testing.T, productID string) []*entity.StockMovement {
	t.Helper()
	list, err := f.uc.ListProductHistory(context.Background(), inventory.HistoryQuery{ProductID: productID, Limit: 1000})
	require.NoError(t, err)
	return list
}

func cost(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

func TestLedger_EscenarioCompleto(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.product(t, "P", 100)

	// 1. compra
	purchase, err := f.uc.RecordPurchase(ctx, inventory.PurchaseInput{ProductID: "P", Quantity: 50, UnitCost: cost(10)})
	require.NoError(t, err)
	assert.Equal(t, entity.MovementPurchase, purchase.Type)
	assert.Equal(t, int64(50), purchase.Quantity)
	assert.Equal(t, int64(100), purchase.QuantityBefore)
	assert.Equal(t, int64(150), purchase.QuantityAfter)
	assert.True(t, purchase.TotalCost.Equal(decimal.NewFromInt(500)), "total_cost %s", purchase.TotalCost)
	assert.Equal(t, int64(150), f.quantity(t, "P"))

	// 2. venta
	sale, err := f.uc.RecordSale(ctx, inventory.SaleInput{ProductID: "P", Quantity: 30})
	require.NoError(t, err)
	assert.Equal(t, int64(-30), sale.Quantity)
	assert.Equal(t, int64(150), sale.QuantityBefore)
	assert.Equal(t, int64(120), sale.QuantityAfter)
	assert.Equal(t, int64(120), f.quantity(t, "P"))

	// 3. venta sin stock suficiente
	_, err = f.uc.RecordSale(ctx, inventory.SaleInput{ProductID: "P", Quantity: 200})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Equal(t, domain.KindInsufficientStock, domain.KindOf(err))
	assert.Equal(t, int64(120), f.quantity(t, "P"))
	assert.Len(t, f.history(t, "P"), 2)

	// 4. ajuste negativo
	adj, err := f.uc.RecordAdjustment(ctx, inventory.AdjustmentInput{ProductID: "P", Quantity: -20, Reason: "damage"})
	require.NoError(t, err)
	assert.Equal(t, entity.MovementAdjustmentOut, adj.Type)
	assert.Equal(t, int64(-20), adj.Quantity)
	assert.Equal(t, int64(100), f.quantity(t, "P"))

	// 6. resumen por tipo
	summary, err := f.uc.GetMovementSummary(ctx, inventory.SummaryQuery{ProductID: "P"})
	require.NoError(t, err)
	require.Len(t, summary, 3)
	byType := map[entity.MovementType]repository.MovementSummary{}
	for _, s := range summary {
		byType[s.Type] = s
	}
	assert.Equal(t, int64(50), byType[entity.MovementPurchase].Quantity)
	assert.True(t, byType[entity.MovementPurchase].TotalCost.Equal(decimal.NewFromInt(500)))
	assert.Equal(t, int64(1), byType[entity.MovementPurchase].Count)
	assert.Equal(t, int64(-30), byType[entity.MovementSale].Quantity)
	assert.True(t, byType[entity.MovementSale].TotalCost.IsZero())
	assert.Equal(t, int64(1), byType[entity.MovementSale].Count)
	assert.Equal(t, int64(-20), byType[entity.MovementAdjustmentOut].Quantity)
	assert.True(t, byType[entity.MovementAdjustmentOut].TotalCost.IsZero())
	assert.Equal(t, int64(1), byType[entity.MovementAdjustmentOut].Count)

	// orden canónico de tipos
	assert.Equal(t, entity.MovementPurchase, summary[0].Type)
	assert.Equal(t, entity.MovementSale, summary[1].Type)
	assert.Equal(t, entity.MovementAdjustmentOut, summary[2].Type)
}

func TestLedger_CompraActualizaCostoPromedio(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.product(t, "P", 0)

	_, err := f.uc.RecordPurchase(ctx, inventory.PurchaseInput{ProductID: "P", Quantity: 100, UnitCost: cost(200)})
	require.NoError(t, err)
	_, err = f.uc.RecordPurchase(ctx, inventory.PurchaseInput{ProductID: "P", Quantity: 100, UnitCost: cost(300)})
	require.NoError(t, err)

	p, err := f.store.Repos().Products.GetByID(ctx, "P")
	require.NoError(t, err)
	assert.True(t, p.Cost.Equal(decimal.NewFromInt(250)), "costo %s", p.Cost)
}

func TestLedger_ValidacionDeEntrada(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.product(t, "P", 10)

	tests := []struct {
		name  string
		input inventory.MovementInput
		field string
	}{
		{"cantidad cero", inventory.MovementInput{ProductID: "P", Type: entity.MovementPurchase, Quantity: 0}, "quantity"},
		{"sin producto", inventory.MovementInput{Type: entity.MovementPurchase, Quantity: 1}, "product_id"},
		{"tipo inválido", inventory.MovementInput{ProductID: "P", Type: "gift", Quantity: 1}, "type"},
		{"venta positiva", inventory.MovementInput{ProductID: "P", Type: entity.MovementSale, Quantity: 5}, "quantity"},
		{"compra negativa", inventory.MovementInput{ProductID: "P", Type: entity.MovementPurchase, Quantity: -5}, "quantity"},
		{"costo negativo", inventory.MovementInput{ProductID: "P", Type: entity.MovementPurchase, Quantity: 1, UnitCost: cost(-1)}, "unit_cost"},
		{"metadata inválida", inventory.MovementInput{ProductID: "P", Type: entity.MovementPurchase, Quantity: 1, Metadata: []byte("{")}, "metadata"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.uc.RecordMovement(ctx, tt.input)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
			le, ok := domain.AsLedgerError(err)
			require.True(t, ok)
			assert.Equal(t, tt.field, le.Field)
		})
	}
	assert.Equal(t, int64(10), f.quantity(t, "P"))
	assert.Empty(t, f.history(t, "P"))
}

func TestLedger_ReferenciasInexistentes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.product(t, "P", 10)

	_, err := f.uc.RecordPurchase(ctx, inventory.PurchaseInput{ProductID: "X", Quantity: 1, UnitCost: cost(1)})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.uc.RecordPurchase(ctx, inventory.PurchaseInput{ProductID: "P", WarehouseID: "W-404", Quantity: 1, UnitCost: cost(1)})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	le, ok := domain.AsLedgerError(err)
	require.True(t, ok)
	assert.Equal(t, "warehouse_id", le.Field)

	_, err = f.uc.RecordPurchase(ctx, inventory.PurchaseInput{ProductID: "P", VariantID: "V-404", Quantity: 1, UnitCost: cost(1)})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.uc.RecordSale(ctx, inventory.SaleInput{CompanyID: "otra", ProductID: "P", Quantity: 1})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	assert.Equal(t, int64(10), f.quantity(t, "P"))
}

func TestLedger_AjustePositivoEsAdjustmentIn(t *testing.T) {
	f := newFixture(t)
	f.product(t, "P", 5)

	m, err := f.uc.RecordAdjustment(context.Background(), inventory.AdjustmentInput{ProductID: "P", Quantity: 7, Reason: "conteo físico"})
	require.NoError(t, err)
	assert.Equal(t, entity.MovementAdjustmentIn, m.Type)
	assert.Equal(t, int64(12), m.QuantityAfter)

	_, err = f.uc.RecordAdjustment(context.Background(), inventory.AdjustmentInput{ProductID: "P", Quantity: 1})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestLedger_DevolucionesYBajas(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.product(t, "P", 10)

	in, err := f.uc.RecordReturn(ctx, inventory.ReturnInput{ProductID: "P", Direction: inventory.ReturnFromCustomer, Quantity: 2})
	require.NoError(t, err)
	assert.Equal(t, entity.MovementReturnIn, in.Type)
	assert.Equal(t, int64(2), in.Quantity)

	out, err := f.uc.RecordReturn(ctx, inventory.ReturnInput{ProductID: "P", Direction: inventory.ReturnToSupplier, Quantity: 3})
	require.NoError(t, err)
	assert.Equal(t, entity.MovementReturnOut, out.Type)
	assert.Equal(t, int64(-3), out.Quantity)

	loss, err := f.uc.RecordLoss(ctx, inventory.LossInput{ProductID: "P", Kind: entity.MovementExpired, Quantity: 4, BatchNumber: "L-1"})
	require.NoError(t, err)
	assert.Equal(t, entity.MovementExpired, loss.Type)
	assert.Equal(t, int64(5), loss.QuantityAfter)

	_, err = f.uc.RecordLoss(ctx, inventory.LossInput{ProductID: "P", Kind: entity.MovementSale, Quantity: 1})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = f.uc.RecordReturn(ctx, inventory.ReturnInput{ProductID: "P", Direction: "sideways", Quantity: 1})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	assert.Equal(t, int64(5), f.quantity(t, "P"))
}

func TestLedger_Traslado(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.product(t, "P", 100)
	f.warehouse(t, "A", map[string]int64{"P": 60})
	f.warehouse(t, "B", map[string]int64{"P": 40})

	res, err := f.uc.RecordTransfer(ctx, inventory.TransferInput{ProductID: "P", FromWarehouseID: "A", ToWarehouseID: "B", Quantity: 25})
	require.NoError(t, err)
	assert.Equal(t, entity.MovementTransferOut, res.Out.Type)
	assert.Equal(t, int64(-25), res.Out.Quantity)
	assert.Equal(t, entity.MovementTransferIn, res.In.Type)
	assert.Equal(t, int64(25), res.In.Quantity)
	assert.Equal(t, res.Out.ID, res.In.ReferenceID)
	assert.Equal(t, entity.ReferenceTransfer, res.In.ReferenceType)

	// el total del producto no cambia; las bodegas sí
	assert.Equal(t, int64(100), f.quantity(t, "P"))
	a, err := f.store.Repos().Stock.Get(ctx, "P", "A")
	require.NoError(t, err)
	b, err := f.store.Repos().Stock.Get(ctx, "P", "B")
	require.NoError(t, err)
	assert.Equal(t, int64(35), a.Quantity)
	assert.Equal(t, int64(65), b.Quantity)
	assert.Len(t, f.history(t, "P"), 2)
}

func TestLedger_TrasladoSinStockEnBodegaOrigen(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.product(t, "P", 100)
	f.warehouse(t, "A", map[string]int64{"P": 30})
	f.warehouse(t, "B", nil)

	_, err := f.uc.RecordTransfer(ctx, inventory.TransferInput{ProductID: "P", FromWarehouseID: "A", ToWarehouseID: "B", Quantity: 40})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	a, err := f.store.Repos().Stock.Get(ctx, "P", "A")
	require.NoError(t, err)
	assert.Equal(t, int64(30), a.Quantity)
	assert.Equal(t, int64(100), f.quantity(t, "P"))
	assert.Empty(t, f.history(t, "P"))
}

func TestLedger_TrasladoRevierteSiFallaLaEntrada(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.product(t, "P", 100)
	f.warehouse(t, "A", map[string]int64{"P": 50})

	// bodega destino inexistente
	_, err := f.uc.RecordTransfer(ctx, inventory.TransferInput{ProductID: "P", FromWarehouseID: "A", ToWarehouseID: "Z", Quantity: 10})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// fallo al escribir la pata de entrada
	f.warehouse(t, "B", nil)
	boom := errors.New("disco lleno")
	f.store.FailMovementWrites(func(m *entity.StockMovement) error {
		if m.Type == entity.MovementTransferIn {
			return boom
		}
		return nil
	})
	_, err = f.uc.RecordTransfer(ctx, inventory.TransferInput{ProductID: "P", FromWarehouseID: "A", ToWarehouseID: "B", Quantity: 10})
	assert.ErrorIs(t, err, boom)

	a, err := f.store.Repos().Stock.Get(ctx, "P", "A")
	require.NoError(t, err)
	assert.Equal(t, int64(50), a.Quantity)
	assert.Equal(t, int64(100), f.quantity(t, "P"))
	assert.Empty(t, f.history(t, "P"))
}

func TestLedger_TrasladoMismaBodega(t *testing.T) {
	f := newFixture(t)
	_, err := f.uc.RecordTransfer(context.Background(), inventory.TransferInput{ProductID: "P", FromWarehouseID: "A", ToWarehouseID: "A", Quantity: 1})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestLedger_ReintentaConflictos(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.product(t, "P", 10)

	f.store.InjectConflicts(2)
	m, err := f.uc.RecordSale(ctx, inventory.SaleInput{ProductID: "P", Quantity: 4})
	require.NoError(t, err)
	assert.Equal(t, int64(6), m.QuantityAfter)
	assert.Len(t, f.history(t, "P"), 1)
}

func TestLedger_ConflictoAgotaReintentos(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.product(t, "P", 10)

	f.store.InjectConflicts(10)
	_, err := f.uc.RecordSale(ctx, inventory.SaleInput{ProductID: "P", Quantity: 4})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.Equal(t, int64(10), f.quantity(t, "P"))
	assert.Empty(t, f.history(t, "P"))
}

func TestLedger_VentasConcurrentesNoSobregiran(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.product(t, "P", 50)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		ok, fail int
	)
	for i := 0; i < 80; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.uc.RecordSale(ctx, inventory.SaleInput{ProductID: "P", Quantity: 1})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				fail++
				return
			}
			ok++
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, ok)
	assert.Equal(t, 30, fail)
	assert.Equal(t, int64(0), f.quantity(t, "P"))

	rep, err := f.uc.Reconcile(ctx, "P")
	require.NoError(t, err)
	assert.True(t, rep.Consistent)
	assert.Equal(t, int64(50), rep.Movements)
}

func TestLedger_HistorialOrdenYLimite(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.product(t, "P", 0)
	f.product(t, "Q", 0)

	for i := int64(1); i <= 5; i++ {
		_, err := f.uc.RecordPurchase(ctx, inventory.PurchaseInput{ProductID: "P", Quantity: i, UnitCost: cost(1)})
		require.NoError(t, err)
	}
	_, err := f.uc.RecordPurchase(ctx, inventory.PurchaseInput{ProductID: "Q", Quantity: 9, UnitCost: cost(1)})
	require.NoError(t, err)

	all := f.history(t, "P")
	require.Len(t, all, 5)
	for i, m := range all {
		assert.Equal(t, int64(5-i), m.Quantity, "posición %d", i)
		assert.Equal(t, "P", m.ProductID)
	}

	limited, err := f.uc.ListProductHistory(ctx, inventory.HistoryQuery{ProductID: "P", Limit: 3})
	require.NoError(t, err)
	require.Len(t, limited, 3)
	assert.Equal(t, int64(3), limited[2].Quantity)

	// la secuencia se puede recorrer más de una vez y cortar antes de tiempo
	seq := f.uc.GetProductHistory(ctx, inventory.HistoryQuery{ProductID: "P", Limit: 5})
	for pass := 0; pass < 2; pass++ {
		var got []int64
		for m, err := range seq {
			require.NoError(t, err)
			got = append(got, m.Quantity)
			if len(got) == 2 {
				break
			}
		}
		assert.Equal(t, []int64{5, 4}, got)
	}

	purchases, err := f.uc.ListProductHistory(ctx, inventory.HistoryQuery{ProductID: "P", Type: entity.MovementSale, Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, purchases)
}

func TestLedger_HistorialErrores(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.product(t, "P", 0)

	_, err := f.uc.ListProductHistory(ctx, inventory.HistoryQuery{ProductID: "P", Limit: 0})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.uc.ListProductHistory(ctx, inventory.HistoryQuery{ProductID: "nope", Limit: 5})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	from := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(-time.Hour)
	_, err = f.uc.ListProductHistory(ctx, inventory.HistoryQuery{ProductID: "P", From: &from, To: &to, Limit: 5})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestLedger_ResumenVacio(t *testing.T) {
	f := newFixture(t)
	f.product(t, "P", 3)

	summary, err := f.uc.GetMovementSummary(context.Background(), inventory.SummaryQuery{ProductID: "P"})
	require.NoError(t, err)
	assert.NotNil(t, summary)
	assert.Empty(t, summary)
}

func TestLedger_SaldosEncadenados(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.product(t, "P", 20)

	_, err := f.uc.RecordPurchase(ctx, inventory.PurchaseInput{ProductID: "P", Quantity: 15, UnitCost: cost(2)})
	require.NoError(t, err)
	_, err = f.uc.RecordSale(ctx, inventory.SaleInput{ProductID: "P", Quantity: 7})
	require.NoError(t, err)
	_, err = f.uc.RecordAdjustment(ctx, inventory.AdjustmentInput{ProductID: "P", Quantity: -3, Reason: "rotura"})
	require.NoError(t, err)
	_, err = f.uc.RecordReturn(ctx, inventory.ReturnInput{ProductID: "P", Direction: inventory.ReturnFromCustomer, Quantity: 1})
	require.NoError(t, err)

	hist := f.history(t, "P")
	require.Len(t, hist, 4)
	// del más antiguo al más reciente: before(n+1) == after(n), after == before + quantity
	prev := int64(20)
	for i := len(hist) - 1; i >= 0; i-- {
		m := hist[i]
		assert.Equal(t, prev, m.QuantityBefore)
		assert.Equal(t, m.QuantityBefore+m.Quantity, m.QuantityAfter)
		prev = m.QuantityAfter
	}
	assert.Equal(t, prev, f.quantity(t, "P"))

	rep, err := f.uc.Reconcile(ctx, "P")
	require.NoError(t, err)
	assert.True(t, rep.Consistent)
	assert.Equal(t, int64(6), rep.LedgerSum)
	assert.Equal(t, int64(4), rep.Movements)
}

// versionedCache cache en memoria con la misma semántica de versiones que el de Redis.
type versionedCache struct {
	mu        sync.Mutex
	gen       map[string]int64
	data      map[string][]repository.MovementSummary
	hits      int
	beforeSet func()
}

func newVersionedCache() *versionedCache {
	return &versionedCache{gen: map[string]int64{}, data: map[string][]repository.MovementSummary{}}
}

func cacheScope(productID string) string {
	if productID == "" {
		return "all"
	}
	return productID
}

func (c *versionedCache) Get(_ context.Context, f repository.MovementFilter) ([]repository.MovementSummary, int64, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	scope := cacheScope(f.ProductID)
	v := c.gen[scope]
	s, ok := c.data[fmt.Sprintf("%s:v%d", scope, v)]
	if ok {
		c.hits++
	}
	return s, v, ok, nil
}

func (c *versionedCache) Set(_ context.Context, f repository.MovementFilter, version int64, s []repository.MovementSummary) error {
	if hook := c.beforeSet; hook != nil {
		c.beforeSet = nil
		hook()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[fmt.Sprintf("%s:v%d", cacheScope(f.ProductID), version)] = s
	return nil
}

func (c *versionedCache) Invalidate(_ context.Context, productID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if productID != "" {
		c.gen[productID]++
	}
	c.gen["all"]++
	return nil
}

func quantityOf(summary []repository.MovementSummary, t entity.MovementType) int64 {
	for _, s := range summary {
		if s.Type == t {
			return s.Quantity
		}
	}
	return 0
}

func TestLedger_ResumenCacheadoSeInvalidaConEscrituras(t *testing.T) {
	ctx := context.Background()
	c := newVersionedCache()
	f := newFixture(t, inventory.WithSummaryCache(c))
	f.product(t, "P", 10)

	_, err := f.uc.RecordPurchase(ctx, inventory.PurchaseInput{ProductID: "P", Quantity: 5, UnitCost: cost(1)})
	require.NoError(t, err)

	first, err := f.uc.GetMovementSummary(ctx, inventory.SummaryQuery{ProductID: "P"})
	require.NoError(t, err)
	again, err := f.uc.GetMovementSummary(ctx, inventory.SummaryQuery{ProductID: "P"})
	require.NoError(t, err)
	assert.Equal(t, first, again)
	assert.Equal(t, 1, c.hits)

	_, err = f.uc.RecordSale(ctx, inventory.SaleInput{ProductID: "P", Quantity: 2})
	require.NoError(t, err)

	for _, q := range []inventory.SummaryQuery{{ProductID: "P"}, {}} {
		summary, err := f.uc.GetMovementSummary(ctx, q)
		require.NoError(t, err)
		assert.Equal(t, int64(-2), quantityOf(summary, entity.MovementSale), "producto %q", q.ProductID)
	}
}

func TestLedger_ResumenNoGuardaDatosViejosSiHayEscrituraEnMedio(t *testing.T) {
	ctx := context.Background()
	c := newVersionedCache()
	f := newFixture(t, inventory.WithSummaryCache(c))
	f.product(t, "P", 10)

	_, err := f.uc.RecordPurchase(ctx, inventory.PurchaseInput{ProductID: "P", Quantity: 5, UnitCost: cost(1)})
	require.NoError(t, err)

	// la venta confirma e invalida entre el Summarize y el Set de la primera lectura
	c.beforeSet = func() {
		_, err := f.uc.RecordSale(ctx, inventory.SaleInput{ProductID: "P", Quantity: 3})
		require.NoError(t, err)
	}
	stale, err := f.uc.GetMovementSummary(ctx, inventory.SummaryQuery{ProductID: "P"})
	require.NoError(t, err)
	assert.Equal(t, int64(0), quantityOf(stale, entity.MovementSale))

	fresh, err := f.uc.GetMovementSummary(ctx, inventory.SummaryQuery{ProductID: "P"})
	require.NoError(t, err)
	assert.Equal(t, int64(-3), quantityOf(fresh, entity.MovementSale))
	assert.Equal(t, int64(5), quantityOf(fresh, entity.MovementPurchase))
	assert.Equal(t, 0, c.hits)
}

func TestLedger_CompraFueraDeRangoEsValidacion(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.product(t, "P", 10)

	_, err := f.uc.RecordPurchase(ctx, inventory.PurchaseInput{ProductID: "P", Quantity: math.MaxInt64, UnitCost: cost(1)})
	require.Error(t, err)
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))
	assert.Equal(t, int64(10), f.quantity(t, "P"))
	assert.Empty(t, f.history(t, "P"))
}

func TestLedger_HistorialNoRepiteFilasConEscriturasEntrePaginas(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.product(t, "P", 0)
	for i := int64(1); i <= 5; i++ {
		_, err := f.uc.RecordPurchase(ctx, inventory.PurchaseInput{ProductID: "P", Quantity: i, UnitCost: cost(1)})
		require.NoError(t, err)
	}

	// páginas de 2: la venta entra justo después de consumir la primera página
	var got []int64
	seen := map[string]bool{}
	for m, err := range f.uc.GetProductHistory(ctx, inventory.HistoryQuery{ProductID: "P", Limit: 10}) {
		require.NoError(t, err)
		assert.False(t, seen[m.ID], "movimiento repetido %s", m.ID)
		seen[m.ID] = true
		got = append(got, m.Quantity)
		if len(got) == 2 {
			_, err := f.uc.RecordSale(ctx, inventory.SaleInput{ProductID: "P", Quantity: 1})
			require.NoError(t, err)
		}
	}
	assert.Equal(t, []int64{5, 4, 3, 2, 1}, got)

	// un recorrido nuevo sí ve la venta, primero
	all := f.history(t, "P")
	require.Len(t, all, 6)
	assert.Equal(t, entity.MovementSale, all[0].Type)
	assert.Greater(t, all[0].Seq, all[1].Seq)
}
