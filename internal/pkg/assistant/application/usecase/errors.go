package usecase

import "errors"

// ErrPersistence marks failures of the shared state store so the HTTP layer
// can answer with a retryable status.
var ErrPersistence = errors.New("persistence failure")
