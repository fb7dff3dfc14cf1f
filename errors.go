package kvault

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedBackend matches every *UnsupportedBackendError.
	ErrUnsupportedBackend = errors.New("kvault: unsupported storage backend")
	// ErrEncryptionKeyRequired is returned when Encryption is enabled without a key.
	ErrEncryptionKeyRequired = errors.New("kvault: encryption key is required when encryption is enabled")
	// ErrVersionDowngrade is returned by the embedded store when the on-disk
	// schema version is newer than the requested one.
	ErrVersionDowngrade = errors.New("kvault: schema version downgrade")
	// ErrInvalidOptions matches every *OptionError.
	ErrInvalidOptions = errors.New("kvault: invalid options")
)

type UnsupportedBackendError struct {
	Type string
}

func (e *UnsupportedBackendError) Error() string {
	return fmt.Sprintf("kvault: unsupported storage type: %q", e.Type)
}

func (e *UnsupportedBackendError) Is(target error) bool {
	return target == ErrUnsupportedBackend
}

type OptionError struct {
	Field  string
	Reason string
}

func (e *OptionError) Error() string {
	return fmt.Sprintf("kvault: option %s %s", e.Field, e.Reason)
}

func (e *OptionError) Is(target error) bool {
	return target == ErrInvalidOptions
}

// VersionError carries both sides of a rejected schema downgrade.
type VersionError struct {
	DBName    string
	OnDisk    int
	Requested int
}

func (e *VersionError) Error() string {
	return fmt.Sprintf("kvault: database %q is at version %d, requested %d: downgrade not allowed",
		e.DBName, e.OnDisk, e.Requested)
}

func (e *VersionError) Unwrap() error { return ErrVersionDowngrade }
