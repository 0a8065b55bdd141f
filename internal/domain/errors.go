package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound          = errors.New("recurso no encontrado")
	ErrInvalidInput      = errors.New("entrada inválida")
	ErrDuplicate         = errors.New("recurso duplicado")
	ErrForbidden         = errors.New("acceso denegado")
	ErrConflict          = errors.New("conflicto con el estado actual")
	ErrInsufficientStock = errors.New("stock insuficiente")
)

// ErrorKind clasifica los errores del ledger para que la capa de transporte elija el status.
type ErrorKind string

const (
	KindValidation        ErrorKind = "VALIDATION"
	KindNotFound          ErrorKind = "NOT_FOUND"
	KindInsufficientStock ErrorKind = "INSUFFICIENT_STOCK"
	KindConflict          ErrorKind = "CONFLICT"
	KindForbidden         ErrorKind = "FORBIDDEN"
	KindDuplicate         ErrorKind = "DUPLICATE"
	KindInternal          ErrorKind = "INTERNAL"
)

var sentinelByKind = map[ErrorKind]error{
	KindValidation:        ErrInvalidInput,
	KindNotFound:          ErrNotFound,
	KindInsufficientStock: ErrInsufficientStock,
	KindConflict:          ErrConflict,
	KindForbidden:         ErrForbidden,
	KindDuplicate:         ErrDuplicate,
}

// LedgerError error estructurado: tipo, campo y valor ofensivo.
// errors.Is(err, ErrInsufficientStock) y similares funcionan sobre él.
type LedgerError struct {
	Kind    ErrorKind
	Field   string
	Value   any
	Message string
	Cause   error
}

func (e *LedgerError) Error() string {
	msg := e.Message
	if msg == "" {
		if s, ok := sentinelByKind[e.Kind]; ok {
			msg = s.Error()
		} else {
			msg = string(e.Kind)
		}
	}
	if e.Field != "" {
		msg = fmt.Sprintf("%s (%s=%v)", msg, e.Field, e.Value)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap expone el sentinel del tipo y la causa original.
func (e *LedgerError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if s, ok := sentinelByKind[e.Kind]; ok {
		errs = append(errs, s)
	}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

// Validation campo faltante o con valor inválido.
func Validation(field string, value any, message string) error {
	return &LedgerError{Kind: KindValidation, Field: field, Value: value, Message: message}
}

// NotFound referencia a un producto, bodega o variante inexistente.
func NotFound(field string, value any) error {
	return &LedgerError{Kind: KindNotFound, Field: field, Value: value}
}

// InsufficientStock el movimiento dejaría la cantidad en negativo.
func InsufficientStock(field string, value any, requested, available int64) error {
	return &LedgerError{
		Kind:    KindInsufficientStock,
		Field:   field,
		Value:   value,
		Message: fmt.Sprintf("stock insuficiente: solicitado %d, disponible %d", requested, available),
	}
}

// Conflict una modificación concurrente invalidó el check-and-update.
func Conflict(productID string, cause error) error {
	return &LedgerError{Kind: KindConflict, Field: "product_id", Value: productID, Cause: cause}
}

// Forbidden el recurso pertenece a otra empresa.
func Forbidden(field string, value any) error {
	return &LedgerError{Kind: KindForbidden, Field: field, Value: value}
}

// AsLedgerError extrae el LedgerError de la cadena, si existe.
func AsLedgerError(err error) (*LedgerError, bool) {
	var le *LedgerError
	if errors.As(err, &le) {
		return le, true
	}
	return nil, false
}

// KindOf devuelve el tipo de error; los sentinels sueltos también se clasifican.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	if le, ok := AsLedgerError(err); ok {
		return le.Kind
	}
	for kind, s := range sentinelByKind {
		if errors.Is(err, s) {
			return kind
		}
	}
	return KindInternal
}
