package models

import (
	"errors"
	"fmt"
)

var (
	ErrSourceUnavailable     = errors.New("source unavailable")
	ErrQuotaExhausted        = errors.New("source quota exhausted")
	ErrClassificationFailed  = errors.New("classification failed")
	ErrClassifierUnavailable = errors.New("classifier not configured")
	ErrLoadInProgress        = errors.New("load cycle already in progress")
	ErrInvalidCategory       = errors.New("invalid category")
	ErrCacheMiss             = errors.New("cache miss")
	ErrEntryNotFound         = errors.New("catalog entry not found")
)

// InvalidCategoryError carries the rejected value.
type InvalidCategoryError struct {
	Value string
}

func (e *InvalidCategoryError) Error() string {
	return fmt.Sprintf("invalid category %q", e.Value)
}

func (e *InvalidCategoryError) Unwrap() error { return ErrInvalidCategory }
