package contract

import "errors"

var (
	ErrClassification  = errors.New("classification failed")
	ErrSchemaViolation = errors.New("classifier response violates schema")
	ErrValidation      = errors.New("validation failed")
	ErrNotFound        = errors.New("record not found")
	ErrConflict        = errors.New("record already exists")
	ErrEmptyCart       = errors.New("cart is empty")
)
