package model

import "fmt"

// ConfigError reports invalid component configuration. It is returned from
// constructors, never from call sites.
type ConfigError struct {
	Component string
	Reason    string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: invalid configuration: %s", e.Component, e.Reason)
}

func NewConfigError(component, format string, args ...interface{}) *ConfigError {
	return &ConfigError{Component: component, Reason: fmt.Sprintf(format, args...)}
}

// ValidationError reports an invalid identifier or argument on a call.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func NewValidationError(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// SafetyLimitError names a hard resource limit that was exceeded. Limits are
// never silently truncated since truncation would bias results invisibly.
type SafetyLimitError struct {
	Limit     string
	Requested int
	Allowed   int
}

func (e *SafetyLimitError) Error() string {
	return fmt.Sprintf("safety limit %s exceeded: requested %d, allowed %d", e.Limit, e.Requested, e.Allowed)
}

// StorageError wraps a failure surfaced by the external store.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func NewStorageError(op string, err error) *StorageError {
	return &StorageError{Op: op, Err: err}
}
