package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/inventory"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
)

var tracer = otel.Tracer("inventory-ledger")

// LedgerConfig parámetros del ledger.
type LedgerConfig struct {
	MaxRetries      int           // reintentos ante ErrConflict (además del primer intento)
	RetryBackoff    time.Duration // espera base entre reintentos, crece linealmente
	HistoryPageSize int           // filas por consulta al iterar el historial
	HistoryMaxLimit int           // tope de filas por historial
}

// DefaultLedgerConfig valores por defecto.
func DefaultLedgerConfig() LedgerConfig {
	return LedgerConfig{
		MaxRetries:      3,
		RetryBackoff:    20 * time.Millisecond,
		HistoryPageSize: 100,
		HistoryMaxLimit: 1000,
	}
}

// LedgerUseCase único camino de escritura sobre products.quantity.
// Cada movimiento se valida y aplica de forma atómica: una fila en stock_movements y una
// actualización de la cantidad del producto, o ninguna de las dos.
type LedgerUseCase struct {
	txRunner  TxRunner
	movements repository.StockMovementRepository
	products  repository.ProductRepository
	cfg       LedgerConfig

	publisher EventPublisher
	cache     SummaryCache
	metrics   Metrics
	log       zerolog.Logger
	now       func() time.Time
}

// Option configura dependencias opcionales del ledger.
type Option func(*LedgerUseCase)

// WithPublisher publica un evento por movimiento confirmado.
func WithPublisher(p EventPublisher) Option {
	return func(uc *LedgerUseCase) {
		if p != nil {
			uc.publisher = p
		}
	}
}

// WithSummaryCache cachea los resúmenes por tipo.
func WithSummaryCache(c SummaryCache) Option {
	return func(uc *LedgerUseCase) {
		if c != nil {
			uc.cache = c
		}
	}
}

// WithMetrics registra métricas de operaciones.
func WithMetrics(m Metrics) Option {
	return func(uc *LedgerUseCase) {
		if m != nil {
			uc.metrics = m
		}
	}
}

// WithLogger logger estructurado.
func WithLogger(l zerolog.Logger) Option {
	return func(uc *LedgerUseCase) { uc.log = l }
}

// WithClock reemplaza time.Now (tests).
func WithClock(now func() time.Time) Option {
	return func(uc *LedgerUseCase) {
		if now != nil {
			uc.now = now
		}
	}
}

// NewLedgerUseCase construye el caso de uso. movements y products se usan para lecturas fuera de transacción.
func NewLedgerUseCase(
	txRunner TxRunner,
	movements repository.StockMovementRepository,
	products repository.ProductRepository,
	cfg LedgerConfig,
	opts ...Option,
) *LedgerUseCase {
	def := DefaultLedgerConfig()
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = def.RetryBackoff
	}
	if cfg.HistoryPageSize <= 0 {
		cfg.HistoryPageSize = def.HistoryPageSize
	}
	if cfg.HistoryMaxLimit <= 0 {
		cfg.HistoryMaxLimit = def.HistoryMaxLimit
	}
	uc := &LedgerUseCase{
		txRunner:  txRunner,
		movements: movements,
		products:  products,
		cfg:       cfg,
		publisher: noopPublisher{},
		cache:     noopCache{},
		metrics:   noopMetrics{},
		log:       zerolog.Nop(),
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// MovementInput entrada de RecordMovement.
// Quantity lleva signo y debe coincidir con la dirección de Type.
type MovementInput struct {
	CompanyID       string // opcional: si viene, el producto y la bodega deben ser de esa empresa
	UserID          string // vacío = movimiento del sistema
	ProductID       string
	WarehouseID     string
	VariantID       string
	Type            entity.MovementType
	Quantity        int64
	UnitCost        *decimal.Decimal
	ReferenceType   string
	ReferenceID     string
	ReferenceNumber string
	BatchNumber     string
	ExpiryDate      *time.Time
	Reason          string
	Notes           string
	Metadata        json.RawMessage
}

func (in MovementInput) validate() error {
	if in.ProductID == "" {
		return domain.Validation("product_id", in.ProductID, "product_id es requerido")
	}
	if in.Type == "" {
		return domain.Validation("type", in.Type, "type es requerido")
	}
	if !in.Type.Valid() {
		return domain.Validation("type", in.Type, "tipo de movimiento inválido")
	}
	if in.Quantity == 0 {
		return domain.Validation("quantity", in.Quantity, "quantity no puede ser cero")
	}
	if !in.Type.AcceptsQuantity(in.Quantity) {
		return domain.Validation("quantity", in.Quantity, "el signo de quantity no corresponde al tipo "+string(in.Type))
	}
	if in.UnitCost != nil && in.UnitCost.IsNegative() {
		return domain.Validation("unit_cost", in.UnitCost.String(), "unit_cost no puede ser negativo")
	}
	if len(in.Metadata) > 0 && !json.Valid(in.Metadata) {
		return domain.Validation("metadata", string(in.Metadata), "metadata debe ser JSON válido")
	}
	return nil
}

// RecordMovement valida y aplica un cambio de inventario en una transacción.
// Reintenta ante ErrConflict hasta MaxRetries veces, releyendo la cantidad en cada intento.
func (uc *LedgerUseCase) RecordMovement(ctx context.Context, input MovementInput) (*entity.StockMovement, error) {
	ctx, span := tracer.Start(ctx, "ledger.RecordMovement", trace.WithAttributes(
		attribute.String("product.id", input.ProductID),
		attribute.String("movement.type", string(input.Type)),
		attribute.Int64("movement.quantity", input.Quantity),
	))
	defer span.End()
	start := time.Now()
	defer func() { uc.metrics.ObserveLatency("record_movement", time.Since(start)) }()

	if err := input.validate(); err != nil {
		uc.fail(span, "record_movement", err)
		return nil, err
	}

	var mov *entity.StockMovement
	err := uc.withRetry(ctx, "record_movement", input.ProductID, func() error {
		return uc.txRunner.Run(ctx, func(repos TxRepos) error {
			m, err := uc.ApplyInTx(ctx, repos, input)
			if err != nil {
				return err
			}
			mov = m
			return nil
		})
	})
	if err != nil {
		uc.fail(span, "record_movement", err)
		return nil, err
	}
	span.SetAttributes(attribute.String("movement.id", mov.ID))
	uc.AfterCommit(ctx, mov)
	return mov, nil
}

// ApplyInTx aplica un movimiento usando los repositorios proporcionados (misma transacción del caller).
// El caller debe hacer Commit y luego invocar AfterCommit con el movimiento devuelto.
// Bloquea la fila del producto (SELECT FOR UPDATE) y, si hay bodega, la fila de stock de esa bodega.
func (uc *LedgerUseCase) ApplyInTx(ctx context.Context, repos TxRepos, input MovementInput) (*entity.StockMovement, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	if input.VariantID != "" {
		variant, err := repos.Variants.GetByID(ctx, input.VariantID)
		if err != nil {
			return nil, err
		}
		if variant == nil || variant.ProductID != input.ProductID {
			return nil, domain.NotFound("variant_id", input.VariantID)
		}
	}
	if input.WarehouseID != "" {
		wh, err := repos.Warehouses.GetByID(ctx, input.WarehouseID)
		if err != nil {
			return nil, err
		}
		if wh == nil {
			return nil, domain.NotFound("warehouse_id", input.WarehouseID)
		}
		if input.CompanyID != "" && wh.CompanyID != input.CompanyID {
			return nil, domain.Forbidden("warehouse_id", input.WarehouseID)
		}
	}

	// Bloquea la fila del producto para serializar movimientos concurrentes del mismo producto
	product, err := repos.Products.GetForUpdate(ctx, input.ProductID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, domain.NotFound("product_id", input.ProductID)
	}
	if input.CompanyID != "" && product.CompanyID != input.CompanyID {
		return nil, domain.Forbidden("product_id", input.ProductID)
	}

	now := uc.now()
	mov, err := entity.NewStockMovement(entity.MovementParams{
		ProductID:       input.ProductID,
		WarehouseID:     input.WarehouseID,
		VariantID:       input.VariantID,
		Type:            input.Type,
		Quantity:        input.Quantity,
		QuantityBefore:  product.Quantity,
		UnitCost:        input.UnitCost,
		ReferenceType:   input.ReferenceType,
		ReferenceID:     input.ReferenceID,
		ReferenceNumber: input.ReferenceNumber,
		BatchNumber:     input.BatchNumber,
		ExpiryDate:      input.ExpiryDate,
		Reason:          input.Reason,
		Notes:           input.Notes,
		Metadata:        input.Metadata,
		CreatedBy:       input.UserID,
		CreatedAt:       now,
	})
	if err != nil {
		return nil, err
	}

	if input.WarehouseID != "" {
		bucket, err := repos.Stock.GetForUpdate(ctx, input.ProductID, input.WarehouseID)
		if err != nil {
			return nil, err
		}
		after := bucket.Quantity + input.Quantity
		if after < 0 {
			return nil, domain.InsufficientStock("warehouse_id", input.WarehouseID, -input.Quantity, bucket.Quantity)
		}
		bucket.Quantity = after
		bucket.UpdatedAt = now
		if err := repos.Stock.Upsert(ctx, bucket); err != nil {
			return nil, err
		}
	}

	// Entradas con costo actualizan el costo promedio ponderado
	if input.Type.IsInbound() && input.UnitCost != nil {
		newCost := inventory.CostCalculator(product.Quantity, product.Cost, input.Quantity, *input.UnitCost)
		if !newCost.Equal(product.Cost) {
			if err := repos.Products.UpdateCost(ctx, product.ID, newCost); err != nil {
				return nil, err
			}
		}
	}

	if err := repos.Products.UpdateQuantity(ctx, product.ID, mov.QuantityBefore, mov.QuantityAfter); err != nil {
		return nil, err
	}
	if err := repos.Movements.Create(ctx, mov); err != nil {
		return nil, err
	}
	return mov, nil
}

// AfterCommit efectos posteriores al Commit: invalida cache, publica eventos, métricas y log.
// Los fallos aquí se registran pero no revierten el movimiento ya confirmado.
func (uc *LedgerUseCase) AfterCommit(ctx context.Context, movements ...*entity.StockMovement) {
	seen := make(map[string]bool, len(movements))
	for _, m := range movements {
		uc.metrics.MovementRecorded(m.Type, m.Quantity)
		uc.log.Info().
			Str("movement_id", m.ID).
			Str("product_id", m.ProductID).
			Str("warehouse_id", m.WarehouseID).
			Str("type", string(m.Type)).
			Int64("quantity", m.Quantity).
			Int64("quantity_before", m.QuantityBefore).
			Int64("quantity_after", m.QuantityAfter).
			Msg("movimiento registrado")
		if seen[m.ProductID] {
			continue
		}
		seen[m.ProductID] = true
		if err := uc.cache.Invalidate(ctx, m.ProductID); err != nil {
			uc.log.Warn().Err(err).Str("product_id", m.ProductID).Msg("invalidar cache de resumen")
		}
	}
	if len(movements) == 0 {
		return
	}
	if err := uc.publisher.PublishMovements(ctx, movements...); err != nil {
		uc.log.Warn().Err(err).Int("movements", len(movements)).Msg("publicar eventos de movimiento")
	}
}

// withRetry reintenta fn mientras devuelva ErrConflict, con espera lineal.
func (uc *LedgerUseCase) withRetry(ctx context.Context, op, productID string, fn func() error) error {
	for attempt := 0; ; attempt++ {
		err := fn()
		if err == nil || !errors.Is(err, domain.ErrConflict) || attempt >= uc.cfg.MaxRetries {
			return err
		}
		uc.metrics.ConflictRetried(op)
		uc.log.Warn().
			Err(err).
			Str("op", op).
			Str("product_id", productID).
			Int("attempt", attempt+1).
			Msg("conflicto de concurrencia, reintentando")
		wait := uc.cfg.RetryBackoff * time.Duration(attempt+1)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

func (uc *LedgerUseCase) fail(span trace.Span, op string, err error) {
	kind := domain.KindOf(err)
	uc.metrics.OperationFailed(op, kind)
	span.RecordError(err)
	span.SetStatus(codes.Error, string(kind))
	ev := uc.log.Warn()
	if kind == domain.KindInternal {
		ev = uc.log.Error()
	}
	ev.Err(err).Str("op", op).Str("kind", string(kind)).Msg("operación de inventario rechazada")
}
