package service

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")
	// ErrExternalService is returned when the embedding or chat provider fails.
	ErrExternalService = errors.New("external service error")
	// ErrVectorStore is returned when the vector store cannot be queried or written.
	ErrVectorStore = errors.New("vector store error")
)

// ValidationError represents a validation error with a field name.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field %s: %s", e.Field, e.Message)
}

// Is lets errors.Is(err, ErrInvalidInput) match any ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// Classify wraps err so that errors.Is(result, kind) holds while keeping err in the chain.
func Classify(kind error, err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", msg, kind, err)
}
