package contract

import "errors"

var (
	ErrModelInvoke     = errors.New("model invoke failed")
	ErrSchemaViolation = errors.New("model response violates schema")
	ErrPromptMissing   = errors.New("required prompt is missing")
	ErrValidation      = errors.New("validation failed")

	ErrInvalidMessage  = errors.New("message is empty")
	ErrInvalidCustomer = errors.New("customer id is empty")
	ErrInvalidLocation = errors.New("customer location is out of range")
	ErrMissingLocation = errors.New("customer location is required")
	ErrMissingEntity   = errors.New("required entity is missing")
	ErrAgentPanic      = errors.New("agent panicked")
	ErrUnknownAgent    = errors.New("agent is not registered")
)
