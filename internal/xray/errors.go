package xray

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNoInbound           = errors.New("no matching inbound")
	ErrMissingField        = errors.New("missing field")
	ErrDuplicateName       = errors.New("duplicate name")
	ErrUnsupportedSecurity = errors.New("unsupported security mode")
	ErrMalformed           = errors.New("malformed document")
	ErrEmpty               = errors.New("no entries")
)

// ConfigError reports a missing or malformed field in one of the input
// documents. It is fatal at startup.
type ConfigError struct {
	Doc   string // "xray config" or "servers"
	Index int    // entry index, -1 when the error is not tied to an entry
	Field string
	Err   error
}

func NewConfigError(doc string, err error) *ConfigError {
	return &ConfigError{Doc: doc, Index: -1, Err: err}
}

func FieldError(doc string, index int, field string, err error) *ConfigError {
	return &ConfigError{Doc: doc, Index: index, Field: field, Err: err}
}

func (e *ConfigError) Error() string {
	var b strings.Builder
	b.WriteString("config error: ")
	b.WriteString(e.Doc)
	if e.Index >= 0 {
		fmt.Fprintf(&b, "[%d]", e.Index)
	}
	if e.Field != "" {
		b.WriteString(".")
		b.WriteString(e.Field)
	}
	b.WriteString(": ")
	b.WriteString(e.Err.Error())
	return b.String()
}

func (e *ConfigError) Unwrap() error { return e.Err }
