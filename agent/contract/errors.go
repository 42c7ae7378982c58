package contract

import (
	"errors"

	fipex "github.com/tanpawarit/vehicle-order-agent/pkg/fipe"
)

var (
	ErrMalformedArgument   = errors.New("malformed argument")
	ErrUpstreamUnavailable = fipex.ErrUpstreamUnavailable
	ErrNotFound            = fipex.ErrNotFound
	ErrOrderPersistence    = errors.New("order persistence failed")

	ErrModelInvoke     = errors.New("model invoke failed")
	ErrSchemaViolation = errors.New("model response violates schema")
	ErrValidation      = errors.New("validation failed")
)
