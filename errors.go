package chatdet

import "fmt"

// ConfigError reports a model or evaluator configuration that cannot be
// used. It is returned at construction time, before any data is touched.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("chatdet: invalid %s: %s", e.Field, e.Reason)
}

// MalformedError reports input that could not be decoded: a truncated or
// inconsistent model file, or a row missing a required field.
//
// For model data Offset is the byte offset at which decoding failed; for rows
// it is the 1-based row number.
type MalformedError struct {
	Source string
	Offset int64
	Reason string
	Err    error
}

func (e *MalformedError) Error() string {
	msg := fmt.Sprintf("chatdet: malformed %s at %d: %s", e.Source, e.Offset, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MalformedError) Unwrap() error { return e.Err }
