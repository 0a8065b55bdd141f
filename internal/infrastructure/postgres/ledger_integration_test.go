package postgres_test

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-ledger/internal/application/inventory"
	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/infrastructure/postgres"
	"github.com/jhoicas/inventario-ledger/migrations"
	"github.com/jhoicas/inventario-ledger/pkg/config"
)

var companyID = uuid.NewString()

func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	_ = godotenv.Load("../../../.env")

	// Base de datos dedicada: los tests truncan las tablas.
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL no definido, se omite el test de integración")
	}

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, config.DBConfig{DatabaseURL: dbURL, MaxConns: 20})
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, err = postgres.Migrate(ctx, pool, migrations.FS, zerolog.Nop())
	require.NoError(t, err)

	_, err = pool.Exec(ctx, `TRUNCATE TABLE stock_movements, stock, product_variants, products, warehouses CASCADE`)
	require.NoError(t, err)
	return pool
}

func newLedger(pool *pgxpool.Pool) *inventory.LedgerUseCase {
	return inventory.NewLedgerUseCase(
		postgres.NewTxRunner(pool),
		postgres.NewStockMovementRepository(pool),
		postgres.NewProductRepository(pool),
		inventory.LedgerConfig{MaxRetries: 5, RetryBackoff: 5 * time.Millisecond, HistoryPageSize: 2, HistoryMaxLimit: 100},
	)
}

func seedProduct(t *testing.T, pool *pgxpool.Pool, qty int64) string {
	t.Helper()
	id := uuid.NewString()
	now := time.Now().UTC()
	require.NoError(t, postgres.NewProductRepository(pool).Create(context.Background(), &entity.Product{
		ID: id, CompanyID: companyID, SKU: "SKU-" + id[:8], Name: "Producto", Price: decimal.NewFromInt(10),
		Cost: decimal.Zero, Quantity: qty, CreatedAt: now, UpdatedAt: now,
	}))
	return id
}

func seedWarehouse(t *testing.T, pool *pgxpool.Pool, productID string, qty int64) string {
	t.Helper()
	ctx := context.Background()
	id := uuid.NewString()
	now := time.Now().UTC()
	require.NoError(t, postgres.NewWarehouseRepository(pool).Create(ctx, &entity.Warehouse{
		ID: id, CompanyID: companyID, Name: "Bodega", CreatedAt: now, UpdatedAt: now,
	}))
	if qty > 0 {
		require.NoError(t, postgres.NewStockRepository(pool).Upsert(ctx, &entity.Stock{ProductID: productID, WarehouseID: id, Quantity: qty}))
	}
	return id
}

func productQty(t *testing.T, pool *pgxpool.Pool, id string) int64 {
	t.Helper()
	p, err := postgres.NewProductRepository(pool).GetByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, p)
	return p.Quantity
}

func TestLedgerPostgres_Escenarios(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	uc := newLedger(pool)
	p := seedProduct(t, pool, 100)

	unit := decimal.NewFromInt(10)
	purchase, err := uc.RecordPurchase(ctx, inventory.PurchaseInput{ProductID: p, Quantity: 50, UnitCost: &unit})
	require.NoError(t, err)
	assert.Equal(t, int64(150), purchase.QuantityAfter)
	assert.True(t, purchase.TotalCost.Equal(decimal.NewFromInt(500)))

	_, err = uc.RecordSale(ctx, inventory.SaleInput{ProductID: p, Quantity: 30})
	require.NoError(t, err)

	_, err = uc.RecordSale(ctx, inventory.SaleInput{ProductID: p, Quantity: 200})
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Equal(t, int64(120), productQty(t, pool, p))

	adj, err := uc.RecordAdjustment(ctx, inventory.AdjustmentInput{ProductID: p, Quantity: -20, Reason: "damage"})
	require.NoError(t, err)
	assert.Equal(t, entity.MovementAdjustmentOut, adj.Type)
	assert.Equal(t, int64(100), productQty(t, pool, p))

	summary, err := uc.GetMovementSummary(ctx, inventory.SummaryQuery{ProductID: p})
	require.NoError(t, err)
	require.Len(t, summary, 3)
	assert.Equal(t, entity.MovementPurchase, summary[0].Type)
	assert.True(t, summary[0].TotalCost.Equal(decimal.NewFromInt(500)))
	assert.Equal(t, int64(-30), summary[1].Quantity)
	assert.Equal(t, int64(1), summary[2].Count)

	hist, err := uc.ListProductHistory(ctx, inventory.HistoryQuery{ProductID: p, Limit: 10})
	require.NoError(t, err)
	require.Len(t, hist, 3)
	assert.Equal(t, adj.ID, hist[0].ID)
	assert.Equal(t, purchase.ID, hist[2].ID)

	rep, err := uc.Reconcile(ctx, p)
	require.NoError(t, err)
	assert.True(t, rep.Consistent)
}

func TestLedgerPostgres_TrasladoAtomico(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	uc := newLedger(pool)
	p := seedProduct(t, pool, 100)
	a := seedWarehouse(t, pool, p, 30)
	b := seedWarehouse(t, pool, p, 0)

	_, err := uc.RecordTransfer(ctx, inventory.TransferInput{ProductID: p, FromWarehouseID: a, ToWarehouseID: b, Quantity: 40})
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	stock, err := postgres.NewStockRepository(pool).Get(ctx, p, a)
	require.NoError(t, err)
	assert.Equal(t, int64(30), stock.Quantity)

	res, err := uc.RecordTransfer(ctx, inventory.TransferInput{ProductID: p, FromWarehouseID: a, ToWarehouseID: b, Quantity: 10})
	require.NoError(t, err)
	assert.Equal(t, res.Out.ID, res.In.ReferenceID)
	assert.Equal(t, int64(100), productQty(t, pool, p))

	// destino inexistente: la pata de salida también se revierte
	_, err = uc.RecordTransfer(ctx, inventory.TransferInput{ProductID: p, FromWarehouseID: a, ToWarehouseID: uuid.NewString(), Quantity: 5})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	stock, err = postgres.NewStockRepository(pool).Get(ctx, p, a)
	require.NoError(t, err)
	assert.Equal(t, int64(20), stock.Quantity)

	hist, err := uc.ListProductHistory(ctx, inventory.HistoryQuery{ProductID: p, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, hist, 2)
}

func TestLedgerPostgres_VentasConcurrentes(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	uc := newLedger(pool)
	p := seedProduct(t, pool, 20)

	var (
		wg sync.WaitGroup
		mu sync.Mutex
		ok int
	)
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := uc.RecordSale(ctx, inventory.SaleInput{ProductID: p, Quantity: 1}); err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 20, ok)
	assert.Equal(t, int64(0), productQty(t, pool, p))
	rep, err := uc.Reconcile(ctx, p)
	require.NoError(t, err)
	assert.True(t, rep.Consistent)
	assert.Equal(t, int64(20), rep.Movements)
}

func TestLedgerPostgres_LedgerInmutable(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	uc := newLedger(pool)
	p := seedProduct(t, pool, 5)

	m, err := uc.RecordSale(ctx, inventory.SaleInput{ProductID: p, Quantity: 1})
	require.NoError(t, err)

	_, err = pool.Exec(ctx, `UPDATE stock_movements SET quantity = -2 WHERE id = $1`, m.ID)
	assert.Error(t, err)
	_, err = pool.Exec(ctx, `DELETE FROM stock_movements WHERE id = $1`, m.ID)
	assert.Error(t, err)
}

func TestLedgerPostgres_IDsMalFormadosSonNotFound(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	uc := newLedger(pool)
	p := seedProduct(t, pool, 10)
	w := seedWarehouse(t, pool, p, 10)

	_, err := uc.RecordSale(ctx, inventory.SaleInput{ProductID: "no-es-uuid", Quantity: 1})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = uc.RecordSale(ctx, inventory.SaleInput{ProductID: p, WarehouseID: "bodega-x", Quantity: 1})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = uc.RecordTransfer(ctx, inventory.TransferInput{ProductID: p, FromWarehouseID: w, ToWarehouseID: "bodega-x", Quantity: 2})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	stock, err := postgres.NewStockRepository(pool).Get(ctx, p, w)
	require.NoError(t, err)
	assert.Equal(t, int64(10), stock.Quantity)

	_, err = uc.ListProductHistory(ctx, inventory.HistoryQuery{ProductID: "123", Limit: 5})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = uc.Reconcile(ctx, "123")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	summary, err := uc.GetMovementSummary(ctx, inventory.SummaryQuery{ProductID: "123"})
	require.NoError(t, err)
	assert.Empty(t, summary)
	assert.Equal(t, int64(10), productQty(t, pool, p))
}

func TestLedgerPostgres_HistorialKeyset(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	uc := newLedger(pool)
	p := seedProduct(t, pool, 0)

	unit := decimal.NewFromInt(1)
	for i := int64(1); i <= 5; i++ {
		_, err := uc.RecordPurchase(ctx, inventory.PurchaseInput{ProductID: p, Quantity: i, UnitCost: &unit})
		require.NoError(t, err)
	}

	var got []int64
	for m, err := range uc.GetProductHistory(ctx, inventory.HistoryQuery{ProductID: p, Limit: 10}) {
		require.NoError(t, err)
		assert.NotZero(t, m.Seq)
		got = append(got, m.Quantity)
		if len(got) == 2 {
			_, err := uc.RecordSale(ctx, inventory.SaleInput{ProductID: p, Quantity: 1})
			require.NoError(t, err)
		}
	}
	assert.Equal(t, []int64{5, 4, 3, 2, 1}, got)
}
