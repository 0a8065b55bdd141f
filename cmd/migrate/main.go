// Comando migrate aplica las migraciones embebidas en migrations/ y termina.
package main

import (
	"context"
	"time"

	"github.com/jhoicas/inventario-ledger/internal/infrastructure/postgres"
	"github.com/jhoicas/inventario-ledger/migrations"
	"github.com/jhoicas/inventario-ledger/pkg/config"
	"github.com/jhoicas/inventario-ledger/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel, Service: "migrate"})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	applied, err := postgres.Migrate(ctx, pool, migrations.FS, log.Zerolog())
	if err != nil {
		log.Fatal().Err(err).Msg("aplicar migraciones")
	}
	log.Info().Int("applied", applied).Msg("migraciones aplicadas")
}
