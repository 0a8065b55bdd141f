package http

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/inventario-ledger/internal/application/dto"
	"github.com/jhoicas/inventario-ledger/internal/application/inventory"
	"github.com/jhoicas/inventario-ledger/internal/application/usecase"
	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
	"github.com/jhoicas/inventario-ledger/pkg/jwt"
)

// InventoryHandler maneja las peticiones HTTP del ledger de movimientos (protegido).
type InventoryHandler struct {
	ledger   *inventory.LedgerUseCase
	products *usecase.ProductUseCase
}

// NewInventoryHandler construye el handler. products se usa para verificar que
// el producto consultado pertenece a la empresa del token.
func NewInventoryHandler(ledger *inventory.LedgerUseCase, products *usecase.ProductUseCase) *InventoryHandler {
	return &InventoryHandler{ledger: ledger, products: products}
}

// RegisterMovement godoc
// @Summary      Registrar movimiento genérico
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.RegisterMovementRequest  true  "quantity con signo según type"
// @Success      201   {object}  dto.MovementResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/inventory/movements [post]
func (h *InventoryHandler) RegisterMovement(c *fiber.Ctx) error {
	companyID, userID := GetCompanyID(c), GetUserID(c)
	if companyID == "" || userID == "" {
		return unauthorized(c)
	}
	var in dto.RegisterMovementRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	m, err := h.ledger.RecordMovement(c.UserContext(), inventory.MovementInput{
		CompanyID:       companyID,
		UserID:          userID,
		ProductID:       in.ProductID,
		WarehouseID:     in.WarehouseID,
		VariantID:       in.VariantID,
		Type:            movementType(in.Type),
		Quantity:        in.Quantity,
		UnitCost:        in.UnitCost,
		ReferenceType:   in.ReferenceType,
		ReferenceID:     in.ReferenceID,
		ReferenceNumber: in.ReferenceNumber,
		BatchNumber:     in.BatchNumber,
		ExpiryDate:      in.ExpiryDate,
		Reason:          in.Reason,
		Notes:           in.Notes,
		Metadata:        in.Metadata,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toMovementResponse(m))
}

// RecordSale godoc
// @Summary      Registrar venta
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.SaleRequest  true  "quantity es la cantidad vendida (> 0)"
// @Success      201   {object}  dto.MovementResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/inventory/sales [post]
func (h *InventoryHandler) RecordSale(c *fiber.Ctx) error {
	companyID, userID := GetCompanyID(c), GetUserID(c)
	if companyID == "" || userID == "" {
		return unauthorized(c)
	}
	var in dto.SaleRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	m, err := h.ledger.RecordSale(c.UserContext(), inventory.SaleInput{
		CompanyID:   companyID,
		UserID:      userID,
		ProductID:   in.ProductID,
		WarehouseID: in.WarehouseID,
		VariantID:   in.VariantID,
		Quantity:    in.Quantity,
		UnitCost:    in.UnitCost,
		InvoiceID:   in.InvoiceID,
		InvoiceRef:  in.InvoiceRef,
		Notes:       in.Notes,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toMovementResponse(m))
}

// RecordPurchase godoc
// @Summary      Registrar compra
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.PurchaseRequest  true  "quantity > 0, unit_cost requerido"
// @Success      201   {object}  dto.MovementResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/inventory/purchases [post]
func (h *InventoryHandler) RecordPurchase(c *fiber.Ctx) error {
	companyID, userID := GetCompanyID(c), GetUserID(c)
	if companyID == "" || userID == "" {
		return unauthorized(c)
	}
	var in dto.PurchaseRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	m, err := h.ledger.RecordPurchase(c.UserContext(), inventory.PurchaseInput{
		CompanyID:        companyID,
		UserID:           userID,
		ProductID:        in.ProductID,
		WarehouseID:      in.WarehouseID,
		VariantID:        in.VariantID,
		Quantity:         in.Quantity,
		UnitCost:         in.UnitCost,
		PurchaseOrderID:  in.PurchaseOrderID,
		PurchaseOrderRef: in.PurchaseOrderRef,
		BatchNumber:      in.BatchNumber,
		ExpiryDate:       in.ExpiryDate,
		Notes:            in.Notes,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toMovementResponse(m))
}

// RecordAdjustment godoc
// @Summary      Registrar ajuste de inventario
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.AdjustmentRequest  true  "quantity con signo, reason requerido"
// @Success      201   {object}  dto.MovementResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/inventory/adjustments [post]
func (h *InventoryHandler) RecordAdjustment(c *fiber.Ctx) error {
	companyID, userID := GetCompanyID(c), GetUserID(c)
	if companyID == "" || userID == "" {
		return unauthorized(c)
	}
	var in dto.AdjustmentRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	m, err := h.ledger.RecordAdjustment(c.UserContext(), inventory.AdjustmentInput{
		CompanyID:       companyID,
		UserID:          userID,
		ProductID:       in.ProductID,
		WarehouseID:     in.WarehouseID,
		VariantID:       in.VariantID,
		Quantity:        in.Quantity,
		Reason:          in.Reason,
		Notes:           in.Notes,
		ReferenceNumber: in.ReferenceNumber,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toMovementResponse(m))
}

// RecordTransfer godoc
// @Summary      Trasladar stock entre bodegas
// @Description  Registra transfer_out y transfer_in en una sola transacción.
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.TransferRequest  true  "from_warehouse_id, to_warehouse_id, quantity > 0"
// @Success      201   {object}  dto.TransferResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/inventory/transfers [post]
func (h *InventoryHandler) RecordTransfer(c *fiber.Ctx) error {
	companyID, userID := GetCompanyID(c), GetUserID(c)
	if companyID == "" || userID == "" {
		return unauthorized(c)
	}
	var in dto.TransferRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	res, err := h.ledger.RecordTransfer(c.UserContext(), inventory.TransferInput{
		CompanyID:       companyID,
		UserID:          userID,
		ProductID:       in.ProductID,
		VariantID:       in.VariantID,
		FromWarehouseID: in.FromWarehouseID,
		ToWarehouseID:   in.ToWarehouseID,
		Quantity:        in.Quantity,
		UnitCost:        in.UnitCost,
		ReferenceNumber: in.ReferenceNumber,
		Notes:           in.Notes,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.TransferResponse{
		Out: toMovementResponse(res.Out),
		In:  toMovementResponse(res.In),
	})
}

// RecordReturn godoc
// @Summary      Registrar devolución
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ReturnRequest  true  "direction: in (cliente) | out (proveedor)"
// @Success      201   {object}  dto.MovementResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/inventory/returns [post]
func (h *InventoryHandler) RecordReturn(c *fiber.Ctx) error {
	companyID, userID := GetCompanyID(c), GetUserID(c)
	if companyID == "" || userID == "" {
		return unauthorized(c)
	}
	var in dto.ReturnRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	m, err := h.ledger.RecordReturn(c.UserContext(), inventory.ReturnInput{
		CompanyID:       companyID,
		UserID:          userID,
		ProductID:       in.ProductID,
		WarehouseID:     in.WarehouseID,
		VariantID:       in.VariantID,
		Direction:       in.Direction,
		Quantity:        in.Quantity,
		UnitCost:        in.UnitCost,
		ReferenceID:     in.ReferenceID,
		ReferenceNumber: in.ReferenceNumber,
		Reason:          in.Reason,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toMovementResponse(m))
}

// RecordLoss godoc
// @Summary      Registrar baja (avería o vencimiento)
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.LossRequest  true  "kind: damage | expired"
// @Success      201   {object}  dto.MovementResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/inventory/losses [post]
func (h *InventoryHandler) RecordLoss(c *fiber.Ctx) error {
	companyID, userID := GetCompanyID(c), GetUserID(c)
	if companyID == "" || userID == "" {
		return unauthorized(c)
	}
	var in dto.LossRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	m, err := h.ledger.RecordLoss(c.UserContext(), inventory.LossInput{
		CompanyID:   companyID,
		UserID:      userID,
		ProductID:   in.ProductID,
		WarehouseID: in.WarehouseID,
		VariantID:   in.VariantID,
		Kind:        movementType(in.Kind),
		Quantity:    in.Quantity,
		BatchNumber: in.BatchNumber,
		Reason:      in.Reason,
		Notes:       in.Notes,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toMovementResponse(m))
}

// GetProductHistory godoc
// @Summary      Historial de movimientos de un producto
// @Description  Del más reciente al más antiguo. from/to en RFC3339.
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        id     path   string  true   "ID del producto"
// @Param        from   query  string  false  "desde (RFC3339)"
// @Param        to     query  string  false  "hasta (RFC3339)"
// @Param        type   query  string  false  "tipo de movimiento"
// @Param        limit  query  int     false  "máximo de movimientos (default 50)"
// @Success      200  {object}  dto.HistoryResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/products/{id}/history [get]
func (h *InventoryHandler) GetProductHistory(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	productID := c.Params("id")
	if _, err := h.products.GetByID(c.UserContext(), companyID, productID); err != nil {
		return writeError(c, err)
	}
	from, to, err := parseRange(c)
	if err != nil {
		return writeError(c, err)
	}
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil {
			return writeError(c, domain.Validation("limit", raw, "limit debe ser un entero"))
		}
	}

	resp := dto.HistoryResponse{ProductID: productID, Limit: limit, Items: []dto.MovementResponse{}}
	q := inventory.HistoryQuery{ProductID: productID, From: from, To: to, Type: movementType(c.Query("type")), Limit: limit}
	for m, err := range h.ledger.GetProductHistory(c.UserContext(), q) {
		if err != nil {
			return writeError(c, err)
		}
		resp.Items = append(resp.Items, toMovementResponse(m))
	}
	return c.JSON(resp)
}

// GetMovementSummary godoc
// @Summary      Resumen de movimientos por tipo
// @Description  Sin product_id agrega todos los productos (solo admin).
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        product_id  query  string  false  "ID del producto"
// @Param        from        query  string  false  "desde (RFC3339)"
// @Param        to          query  string  false  "hasta (RFC3339)"
// @Success      200  {object}  dto.SummaryResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Router       /api/inventory/summary [get]
func (h *InventoryHandler) GetMovementSummary(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	productID := c.Query("product_id")
	if productID == "" {
		if GetRole(c) != jwt.RoleAdmin {
			return writeError(c, domain.Forbidden("product_id", productID))
		}
	} else if _, err := h.products.GetByID(c.UserContext(), companyID, productID); err != nil {
		return writeError(c, err)
	}
	from, to, err := parseRange(c)
	if err != nil {
		return writeError(c, err)
	}
	summary, err := h.ledger.GetMovementSummary(c.UserContext(), inventory.SummaryQuery{ProductID: productID, From: from, To: to})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.SummaryResponse{ProductID: productID, From: from, To: to, Items: toSummaryItems(summary)})
}

// Reconcile godoc
// @Summary      Conciliar cantidad del producto contra el ledger
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del producto"
// @Success      200  {object}  dto.ReconciliationResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/products/{id}/reconcile [get]
func (h *InventoryHandler) Reconcile(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	productID := c.Params("id")
	if _, err := h.products.GetByID(c.UserContext(), companyID, productID); err != nil {
		return writeError(c, err)
	}
	rep, err := h.ledger.Reconcile(c.UserContext(), productID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.ReconciliationResponse{
		ProductID:   rep.ProductID,
		Stored:      rep.Stored,
		Movements:   rep.Movements,
		LedgerSum:   rep.LedgerSum,
		FirstBefore: rep.FirstBefore,
		LastAfter:   rep.LastAfter,
		Consistent:  rep.Consistent,
	})
}

// movementType normaliza mayúsculas y espacios; un nombre desconocido se deja tal cual
// para que la validación del caso de uso lo rechace con su campo.
func movementType(raw string) entity.MovementType {
	if t, ok := entity.ParseMovementType(raw); ok {
		return t
	}
	return entity.MovementType(raw)
}

func parseRange(c *fiber.Ctx) (from, to *time.Time, err error) {
	if from, err = parseTime(c, "from"); err != nil {
		return nil, nil, err
	}
	if to, err = parseTime(c, "to"); err != nil {
		return nil, nil, err
	}
	return from, to, nil
}

func parseTime(c *fiber.Ctx, key string) (*time.Time, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, domain.Validation(key, raw, key+" debe estar en formato RFC3339")
	}
	return &t, nil
}

func toMovementResponse(m *entity.StockMovement) dto.MovementResponse {
	return dto.MovementResponse{
		ID:              m.ID,
		ProductID:       m.ProductID,
		WarehouseID:     m.WarehouseID,
		VariantID:       m.VariantID,
		Type:            string(m.Type),
		Quantity:        m.Quantity,
		QuantityBefore:  m.QuantityBefore,
		QuantityAfter:   m.QuantityAfter,
		UnitCost:        m.UnitCost,
		TotalCost:       m.TotalCost,
		ReferenceType:   m.ReferenceType,
		ReferenceID:     m.ReferenceID,
		ReferenceNumber: m.ReferenceNumber,
		BatchNumber:     m.BatchNumber,
		ExpiryDate:      m.ExpiryDate,
		Reason:          m.Reason,
		Notes:           m.Notes,
		Metadata:        m.Metadata,
		CreatedBy:       m.CreatedBy,
		CreatedAt:       m.CreatedAt,
	}
}

func toSummaryItems(s []repository.MovementSummary) []dto.SummaryItem {
	items := make([]dto.SummaryItem, 0, len(s))
	for _, row := range s {
		items = append(items, dto.SummaryItem{
			Type:      string(row.Type),
			Quantity:  row.Quantity,
			TotalCost: row.TotalCost,
			Count:     row.Count,
		})
	}
	return items
}
