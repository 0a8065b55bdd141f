package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jhoicas/inventario-ledger/internal/application/inventory"
	"github.com/jhoicas/inventario-ledger/internal/application/usecase"
	"github.com/jhoicas/inventario-ledger/internal/infrastructure/cache"
	"github.com/jhoicas/inventario-ledger/internal/infrastructure/kafka"
	"github.com/jhoicas/inventario-ledger/internal/infrastructure/metrics"
	"github.com/jhoicas/inventario-ledger/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/inventario-ledger/internal/interfaces/http"
	"github.com/jhoicas/inventario-ledger/migrations"
	"github.com/jhoicas/inventario-ledger/pkg/config"
	"github.com/jhoicas/inventario-ledger/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
		Service: cfg.App.Name,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Msg("iniciando aplicación")

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	if cfg.DB.AutoMigrate {
		applied, err := postgres.Migrate(ctx, pool, migrations.FS, log.Component("migrate"))
		if err != nil {
			log.Fatal().Err(err).Msg("aplicar migraciones")
		}
		log.Info().Int("applied", applied).Msg("migraciones al día")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	ledgerMetrics := metrics.NewLedgerMetrics(registry)

	opts := []inventory.Option{
		inventory.WithLogger(log.Component("ledger")),
		inventory.WithMetrics(ledgerMetrics),
	}

	// Redis es opcional: sin REDIS_URL el resumen se calcula siempre contra la DB.
	if cfg.Redis.URL != "" {
		rdb, err := cache.NewRedis(ctx, cfg.Redis.URL)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a Redis")
		}
		defer rdb.Close()
		opts = append(opts, inventory.WithSummaryCache(cache.NewSummaryCache(rdb, cfg.Redis.TTL)))
		log.Info().Dur("ttl", cfg.Redis.TTL).Msg("cache de resúmenes activo")
	}

	if cfg.Kafka.Enabled() {
		publisher, err := kafka.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.MovementsTopic, log.Component("kafka"))
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a Kafka")
		}
		defer publisher.Close()
		opts = append(opts, inventory.WithPublisher(publisher))
	}

	txRunner := postgres.NewTxRunner(pool)
	movementRepo := postgres.NewStockMovementRepository(pool)
	productRepo := postgres.NewProductRepository(pool)
	warehouseRepo := postgres.NewWarehouseRepository(pool)
	stockRepo := postgres.NewStockRepository(pool)
	variantRepo := postgres.NewVariantRepository(pool)

	ledgerUC := inventory.NewLedgerUseCase(txRunner, movementRepo, productRepo, inventory.LedgerConfig{
		MaxRetries:      cfg.Ledger.MaxRetries,
		RetryBackoff:    cfg.Ledger.RetryBackoff,
		HistoryPageSize: cfg.Ledger.HistoryPageSize,
		HistoryMaxLimit: cfg.Ledger.HistoryMaxLimit,
	}, opts...)
	productUC := usecase.NewProductUseCase(productRepo, variantRepo, txRunner, ledgerUC)
	warehouseUC := usecase.NewWarehouseUseCase(warehouseRepo, stockRepo)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Inventario Ledger API",
	}))

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	httpRouter.Router(app, httpRouter.RouterDeps{
		LedgerUC:    ledgerUC,
		ProductUC:   productUC,
		WarehouseUC: warehouseUC,
		JWTSecret:   cfg.JWT.Secret,
		JWTIssuer:   cfg.JWT.Issuer,
		Metrics:     ledgerMetrics,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
