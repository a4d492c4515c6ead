package cachekit

import (
	"errors"
	"fmt"

	"github.com/unkn0wn-root/cachekit/internal/wire"
)

var (
	// ErrConfig marks construction-time configuration failures.
	ErrConfig = errors.New("cachekit: invalid configuration")

	// ErrStorageUnavailable marks provider failures (disk full, network store down).
	ErrStorageUnavailable = errors.New("cachekit: storage unavailable")

	// ErrEmptyKey is returned when a key normalises to nothing ("", "/", "..").
	ErrEmptyKey = errors.New("cachekit: empty key")

	// ErrEntryTooLarge is returned by Write when the encoded value does not
	// fit the entry frame's 32-bit length.
	ErrEntryTooLarge = wire.ErrTooLarge
)

// ConfigError names the configuration field that is missing or invalid.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("cachekit: config %q: %s", e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() error { return ErrConfig }

// OpError is returned when a provider fails during a cache operation.
// It matches both ErrStorageUnavailable and the provider's own error.
type OpError struct {
	Op  string
	Key string
	Err error
}

func (e *OpError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("cachekit: %s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("cachekit: %s %q failed: %v", e.Op, e.Key, e.Err)
}

func (e *OpError) Unwrap() []error {
	errs := make([]error, 0, 2)
	errs = append(errs, ErrStorageUnavailable)
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}
