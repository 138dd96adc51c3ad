package errors

import (
	"errors"
	"fmt"
)

// --- visacheck Core Error Types ---

// ErrNotReady is returned when an operation needs a hydrated selection state
// but the initial persistence load has not completed yet.
var ErrNotReady = errors.New("selection state is not ready")

// ErrKeyNotFound indicates that a requested key does not exist in a storage backend.
var ErrKeyNotFound = errors.New("key not found in storage backend")

// ConfigError represents an error encountered while loading, parsing or
// validating settings, rule tables or the country list.
type ConfigError struct {
	Message string
	Cause   error
}

func NewConfigError(message string, cause error) *ConfigError {
	return &ConfigError{Message: message, Cause: cause}
}
func (e *ConfigError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("configuration error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("configuration error: %s", e.Message)
}
func (e *ConfigError) Unwrap() error { return e.Cause }

// ValidationError indicates that some input (a document, a country code, a
// persisted value) failed validation checks.
type ValidationError struct {
	Message string
	Cause   error
}

func NewValidationError(message string, cause error) *ValidationError {
	return &ValidationError{Message: message, Cause: cause}
}
func (e *ValidationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("validation error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}
func (e *ValidationError) Unwrap() error { return e.Cause }

// LoadError represents a failed attempt to materialize the rule table of one nationality.
type LoadError struct {
	Nationality string
	Cause       error
}

func NewLoadError(nationality string, cause error) *LoadError {
	return &LoadError{Nationality: nationality, Cause: cause}
}
func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load visa rules for '%s': %v", e.Nationality, e.Cause)
}
func (e *LoadError) Unwrap() error { return e.Cause }

// StorageError represents a failed key-value storage operation.
// Op names the failed operation, e.g. "get", "set", "remove_many" or "open".
type StorageError struct {
	Op    string
	Key   string
	Cause error
}

func NewStorageError(op, key string, cause error) *StorageError {
	return &StorageError{Op: op, Key: key, Cause: cause}
}
func (e *StorageError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("storage %s failed: %v", e.Op, e.Cause)
	}
	return fmt.Sprintf("storage %s '%s' failed: %v", e.Op, e.Key, e.Cause)
}
func (e *StorageError) Unwrap() error { return e.Cause }

// NationalityNotSupportedError indicates that no rule loader is registered
// for a nationality code.
type NationalityNotSupportedError struct {
	Nationality string
}

func NewNationalityNotSupportedError(nationality string) *NationalityNotSupportedError {
	return &NationalityNotSupportedError{Nationality: nationality}
}
func (e *NationalityNotSupportedError) Error() string {
	return fmt.Sprintf("no visa rules registered for nationality: %s", e.Nationality)
}

// IsNotSupported checks if an error is a NationalityNotSupportedError using errors.As.
func IsNotSupported(err error) bool {
	var nsErr *NationalityNotSupportedError
	return errors.As(err, &nsErr)
}
