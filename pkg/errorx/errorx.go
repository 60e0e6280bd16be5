// Package errorx provides errors carrying a registered business code.
//
// Handlers register a Coder per code in init() and wrap failures with
// WithCode/WrapC; core.WriteResponse resolves the code back to an HTTP status.
package errorx

import (
	"errors"
	"fmt"
	"net/http"
	"sync"
)

// Coder describes a registered error code.
type Coder interface {
	// Code returns the business code.
	Code() int
	// HTTPStatus returns the HTTP status the code maps to.
	HTTPStatus() int
	// String returns the external, user-safe message.
	String() string
	// Reference returns an optional documentation link.
	Reference() string
}

// ErrUnknown is the code used for errors that carry no registered code.
const ErrUnknown = 1

type defaultCoder struct {
	code int
	http int
	msg  string
}

func (c defaultCoder) Code() int         { return c.code }
func (c defaultCoder) HTTPStatus() int   { return c.http }
func (c defaultCoder) String() string    { return c.msg }
func (c defaultCoder) Reference() string { return "" }

var (
	codeMu sync.RWMutex
	codes  = map[int]Coder{
		ErrUnknown: defaultCoder{code: ErrUnknown, http: http.StatusInternalServerError, msg: "Internal server error"},
	}
)

// Register registers a coder, replacing an existing one with the same code.
func Register(c Coder) {
	if c.Code() == ErrUnknown {
		panic("code 1 is reserved for unknown errors")
	}
	codeMu.Lock()
	defer codeMu.Unlock()
	codes[c.Code()] = c
}

// MustRegister registers a coder and panics if the code is already taken.
func MustRegister(c Coder) {
	if c.Code() == ErrUnknown {
		panic("code 1 is reserved for unknown errors")
	}
	codeMu.Lock()
	defer codeMu.Unlock()
	if _, ok := codes[c.Code()]; ok {
		panic(fmt.Sprintf("code %d already registered", c.Code()))
	}
	codes[c.Code()] = c
}

type withCode struct {
	err   error
	code  int
	cause error
}

// WithCode creates a new error carrying code.
func WithCode(code int, format string, args ...interface{}) error {
	return &withCode{
		err:  fmt.Errorf(format, args...),
		code: code,
	}
}

// WrapC wraps err with a code and a message. It returns nil if err is nil.
func WrapC(err error, code int, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return &withCode{
		err:   fmt.Errorf(format, args...),
		code:  code,
		cause: err,
	}
}

func (w *withCode) Error() string {
	if w.cause != nil {
		return fmt.Sprintf("%s: %s", w.err.Error(), w.cause.Error())
	}
	return w.err.Error()
}

func (w *withCode) Unwrap() error { return w.cause }

// ParseCoder returns the Coder registered for err's outermost code.
// Errors without a code map to ErrUnknown.
func ParseCoder(err error) Coder {
	if err == nil {
		return nil
	}
	var wc *withCode
	if errors.As(err, &wc) {
		codeMu.RLock()
		defer codeMu.RUnlock()
		if c, ok := codes[wc.code]; ok {
			return c
		}
	}
	codeMu.RLock()
	defer codeMu.RUnlock()
	return codes[ErrUnknown]
}

// IsCode reports whether any error in err's chain carries code.
func IsCode(err error, code int) bool {
	for err != nil {
		if wc, ok := err.(*withCode); ok && wc.code == code {
			return true
		}
		err = errors.Unwrap(err)
	}
	return false
}
