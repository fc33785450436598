package errs

import "errors"

var (
	// ErrValidation indicates that an entity failed field validation.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound indicates that the requested record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrVendorNotFound indicates that a contract references a missing vendor.
	ErrVendorNotFound = errors.New("vendor not found")
	// ErrDuplicateEmail indicates that another vendor already uses the email address.
	ErrDuplicateEmail = errors.New("vendor email already exists")
	// ErrInvalidWindow indicates a non-positive reminder window.
	ErrInvalidWindow = errors.New("window days must be positive")
	// ErrNilDatabaseConnection indicates that a store was built without a database handle.
	ErrNilDatabaseConnection = errors.New("database connection is nil")
	// ErrUnsupportedDriver indicates an unknown storage driver in configuration.
	ErrUnsupportedDriver = errors.New("unsupported storage driver")
	// ErrUnsupportedProvider indicates an unknown mail provider in configuration.
	ErrUnsupportedProvider = errors.New("unsupported mail provider")
	// ErrInvalidHeader indicates a mail header value containing a line break.
	ErrInvalidHeader = errors.New("mail header contains a line break")
)
