package db

import "errors"

// DuplicateKeyError is an error type for duplicate key errors
type DuplicateKeyError struct {
	Key     string
	Message string
}

func (e *DuplicateKeyError) Error() string {
	return e.Message
}

func IsDuplicateKeyError(err error) bool {
	var e *DuplicateKeyError
	return errors.As(err, &e)
}

// Not found Error
type NotFoundError struct {
	Key     string
	Message string
}

func (e *NotFoundError) Error() string {
	return e.Message
}

func IsNotFoundError(err error) bool {
	var e *NotFoundError
	return errors.As(err, &e)
}

// WriteConflictError is returned when a transaction lost a race against a
// concurrent transaction touching the same records. The transaction can be retried.
type WriteConflictError struct {
	Key     string
	Message string
}

func (e *WriteConflictError) Error() string {
	return e.Message
}

func IsWriteConflictError(err error) bool {
	var e *WriteConflictError
	return errors.As(err, &e)
}
