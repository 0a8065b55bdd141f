package http

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/inventario-ledger/internal/application/inventory"
	"github.com/jhoicas/inventario-ledger/internal/application/usecase"
	"github.com/jhoicas/inventario-ledger/pkg/jwt"
)

// HTTPObserver registra duración y status por ruta (lo implementa *metrics.LedgerMetrics).
type HTTPObserver interface {
	ObserveHTTP(method, route, status string, d time.Duration)
}

// RouterDeps dependencias para el router.
type RouterDeps struct {
	LedgerUC    *inventory.LedgerUseCase
	ProductUC   *usecase.ProductUseCase
	WarehouseUC *usecase.WarehouseUseCase
	JWTSecret   string
	JWTIssuer   string
	Metrics     HTTPObserver // opcional
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	if deps.Metrics != nil {
		app.Use(metricsMiddleware(deps.Metrics))
	}
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret, deps.JWTIssuer))

	stockRoles := RequireRole(jwt.RoleAdmin, jwt.RoleWarehouse)
	anyRole := RequireRole(jwt.RoleAdmin, jwt.RoleWarehouse, jwt.RoleSeller)
	adminOnly := RequireRole(jwt.RoleAdmin)

	// Warehouses
	warehouses := protected.Group("/warehouses")
	warehouseHandler := NewWarehouseHandler(deps.WarehouseUC)
	warehouses.Post("/", adminOnly, warehouseHandler.Create)
	warehouses.Get("/:id", anyRole, warehouseHandler.GetByID)
	warehouses.Get("/:id/stock/:productId", anyRole, warehouseHandler.Stock)

	// Products
	products := protected.Group("/products")
	productHandler := NewProductHandler(deps.ProductUC)
	inventoryHandler := NewInventoryHandler(deps.LedgerUC, deps.ProductUC)
	products.Post("/", stockRoles, productHandler.Create)
	products.Get("/:id", anyRole, productHandler.GetByID)
	products.Post("/:id/variants", stockRoles, productHandler.CreateVariant)
	products.Get("/:id/history", anyRole, inventoryHandler.GetProductHistory)
	products.Get("/:id/reconcile", adminOnly, inventoryHandler.Reconcile)

	// Ledger de movimientos
	inv := protected.Group("/inventory")
	inv.Post("/movements", stockRoles, inventoryHandler.RegisterMovement)
	inv.Post("/sales", anyRole, inventoryHandler.RecordSale)
	inv.Post("/returns", anyRole, inventoryHandler.RecordReturn)
	inv.Post("/purchases", stockRoles, inventoryHandler.RecordPurchase)
	inv.Post("/adjustments", stockRoles, inventoryHandler.RecordAdjustment)
	inv.Post("/transfers", stockRoles, inventoryHandler.RecordTransfer)
	inv.Post("/losses", stockRoles, inventoryHandler.RecordLoss)
	inv.Get("/summary", anyRole, inventoryHandler.GetMovementSummary)
}

// metricsMiddleware mide cada petición usando el patrón de ruta, no la URL, para acotar la cardinalidad.
func metricsMiddleware(obs HTTPObserver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}
		obs.ObserveHTTP(c.Method(), c.Route().Path, strconv.Itoa(status), time.Since(start))
		return err
	}
}
