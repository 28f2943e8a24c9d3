package shared

import "fmt"

// DomainError is the base error type for all domain errors
type DomainError struct {
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

func NewDomainError(message string) *DomainError {
	return &DomainError{Message: message}
}

// Sync lifecycle errors

// SyncInProgressError is returned when a sync is requested while one is running
type SyncInProgressError struct {
	*DomainError
}

func NewSyncInProgressError() *SyncInProgressError {
	return &SyncInProgressError{DomainError: &DomainError{Message: "cruise sync already in progress"}}
}

// EnvironmentGuardError is returned when a sync is attempted from a
// non-production environment without the bypass flag
type EnvironmentGuardError struct {
	*DomainError
	APIURL string
}

func NewEnvironmentGuardError(apiURL string) *EnvironmentGuardError {
	return &EnvironmentGuardError{
		DomainError: &DomainError{Message: fmt.Sprintf("refusing to sync from non-production environment (API_URL=%s)", apiURL)},
		APIURL:      apiURL,
	}
}

// LockNotAcquiredError is returned when the cluster advisory lock is held elsewhere
type LockNotAcquiredError struct {
	*DomainError
	LockName string
}

func NewLockNotAcquiredError(lockName string) *LockNotAcquiredError {
	return &LockNotAcquiredError{
		DomainError: &DomainError{Message: fmt.Sprintf("advisory lock %q held by another replica", lockName)},
		LockName:    lockName,
	}
}

// ValidationError carries a field-level validation failure
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}
