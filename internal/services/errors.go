package services

import "errors"

// State-conflict and validation errors surfaced by the order service.
// Handlers map these onto HTTP status codes; the store is left untouched
// whenever one of them is returned.
var (
	ErrOrderNotFound      = errors.New("order not found")
	ErrOrderNotAvailable  = errors.New("order is not available for assignment")
	ErrOrderExpired       = errors.New("order auction has expired")
	ErrAlreadyAssigned    = errors.New("order already assigned")
	ErrDuplicateNonce     = errors.New("order with this nonce already exists")
	ErrAssignmentNotFound = errors.New("assignment not found")
	ErrSecretNotRevealed  = errors.New("secret not revealed")
	ErrSecretMismatch     = errors.New("secret does not match order hashlock")
	ErrSecretImmutable    = errors.New("secret already set with a different value")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrInvalidOrder       = errors.New("invalid order")
)
