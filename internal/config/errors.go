package config

import (
	"errors"
	"fmt"
)

var (
	ErrLibKindAmbiguous     = errors.New("both staticlib and cdylib are declared")
	ErrLibKindMissing       = errors.New("missing '[lib] crate-type' in Cargo.toml")
	ErrCrateTypeNotDeclared = errors.New("crate-type not declared")
	ErrNoPlatform           = errors.New("nothing to build")
	ErrIncludeDirMissing    = errors.New("include directory does not exist")
	ErrTargetMismatch       = errors.New("target does not match platform")
)

// ConfigError points at the configuration field that failed validation.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("field '%s': %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

func fieldErr(field string, err error) error {
	return &ConfigError{Field: field, Err: err}
}
