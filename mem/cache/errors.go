package cache

import (
	"errors"
	"fmt"
)

// Errors that reject a single trace record. The record is skipped and the
// simulation continues with the next one.
var (
	ErrInvalidAccessSize = errors.New("invalid access size")
	ErrMisalignedAccess  = errors.New("misaligned access")
	ErrMalformedRecord   = errors.New("malformed record")
)

// A ConfigError reports a cache geometry that cannot be simulated. It is
// fatal: no access is processed once a ConfigError is returned.
type ConfigError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
	}

	return fmt.Sprintf("config: %s %q: %s", e.Field, e.Value, e.Reason)
}

// A RecordError binds a rejected record to its position in the trace.
type RecordError struct {
	Seq  uint64
	Line string
	Err  error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("record %d (%q): %v", e.Seq, e.Line, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}
