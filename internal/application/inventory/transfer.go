package inventory

import (
	"context"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
)

// TransferInput traslado entre bodegas. Quantity es la magnitud (> 0).
type TransferInput struct {
	CompanyID       string
	UserID          string
	ProductID       string
	VariantID       string
	FromWarehouseID string
	ToWarehouseID   string
	Quantity        int64
	UnitCost        *decimal.Decimal
	ReferenceNumber string
	Notes           string
}

// TransferResult las dos patas del traslado.
type TransferResult struct {
	Out *entity.StockMovement
	In  *entity.StockMovement
}

// RecordTransfer resta de la bodega origen (transfer_out) y suma en la destino (transfer_in)
// en una sola transacción. transfer_in.ReferenceID apunta a transfer_out.ID.
// Si cualquiera de las dos patas falla se revierten ambas: no existen traslados parciales.
func (uc *LedgerUseCase) RecordTransfer(ctx context.Context, in TransferInput) (*TransferResult, error) {
	ctx, span := tracer.Start(ctx, "ledger.RecordTransfer", trace.WithAttributes(
		attribute.String("product.id", in.ProductID),
		attribute.String("warehouse.from", in.FromWarehouseID),
		attribute.String("warehouse.to", in.ToWarehouseID),
		attribute.Int64("movement.quantity", in.Quantity),
	))
	defer span.End()

	if err := in.validate(); err != nil {
		uc.fail(span, "record_transfer", err)
		return nil, err
	}

	var res TransferResult
	err := uc.withRetry(ctx, "record_transfer", in.ProductID, func() error {
		return uc.txRunner.Run(ctx, func(repos TxRepos) error {
			out, err := uc.ApplyInTx(ctx, repos, MovementInput{
				CompanyID:       in.CompanyID,
				UserID:          in.UserID,
				ProductID:       in.ProductID,
				WarehouseID:     in.FromWarehouseID,
				VariantID:       in.VariantID,
				Type:            entity.MovementTransferOut,
				Quantity:        -in.Quantity,
				UnitCost:        in.UnitCost,
				ReferenceType:   entity.ReferenceTransfer,
				ReferenceNumber: in.ReferenceNumber,
				Notes:           in.Notes,
			})
			if err != nil {
				return err
			}
			inMov, err := uc.ApplyInTx(ctx, repos, MovementInput{
				CompanyID:       in.CompanyID,
				UserID:          in.UserID,
				ProductID:       in.ProductID,
				WarehouseID:     in.ToWarehouseID,
				VariantID:       in.VariantID,
				Type:            entity.MovementTransferIn,
				Quantity:        in.Quantity,
				UnitCost:        in.UnitCost,
				ReferenceType:   entity.ReferenceTransfer,
				ReferenceID:     out.ID,
				ReferenceNumber: in.ReferenceNumber,
				Notes:           in.Notes,
			})
			if err != nil {
				// Rollback de la tx deshace también la pata de salida
				return err
			}
			res = TransferResult{Out: out, In: inMov}
			return nil
		})
	})
	if err != nil {
		uc.fail(span, "record_transfer", err)
		return nil, err
	}
	uc.AfterCommit(ctx, res.Out, res.In)
	return &res, nil
}

func (in TransferInput) validate() error {
	if in.ProductID == "" {
		return domain.Validation("product_id", in.ProductID, "product_id es requerido")
	}
	if in.FromWarehouseID == "" {
		return domain.Validation("from_warehouse_id", in.FromWarehouseID, "from_warehouse_id es requerido")
	}
	if in.ToWarehouseID == "" {
		return domain.Validation("to_warehouse_id", in.ToWarehouseID, "to_warehouse_id es requerido")
	}
	if in.FromWarehouseID == in.ToWarehouseID {
		return domain.Validation("to_warehouse_id", in.ToWarehouseID, "la bodega destino debe ser distinta de la origen")
	}
	if in.Quantity <= 0 {
		return domain.Validation("quantity", in.Quantity, "quantity debe ser mayor que cero")
	}
	return nil
}
