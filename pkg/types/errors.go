package types

import "errors"

// Store lifecycle errors.
var (
	ErrStoreDetached   = errors.New("store is detached")
	ErrAlreadyAttached = errors.New("store is already attached")
)

// Entity operation errors.
var (
	ErrNotFound       = errors.New("entity not found")
	ErrInvalidID      = errors.New("invalid entity ID")
	ErrInvalidData    = errors.New("invalid entity data")
	ErrInvalidName    = errors.New("invalid name")
	ErrInvalidStatus  = errors.New("invalid status value")
	ErrInvalidAxes    = errors.New("invalid analytical axes")
	ErrDuplicateEmail = errors.New("email is already registered")
	ErrAlreadyMember  = errors.New("user is already a project member")
	ErrNotEmpty       = errors.New("database is not empty")
)

// Access errors.
var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrForbidden       = errors.New("access to this project is forbidden")
	ErrBadCredentials  = errors.New("invalid email or password")
)
