package errors

import (
	"errors"
	"fmt"
)

// Wrapper tags errors from one module operation with a client-safe message.
type Wrapper struct {
	module    string
	operation string
}

// NewWrapper returns a Wrapper for module and operation, e.g.
// ("program", "load_dataset").
func NewWrapper(module, operation string) Wrapper {
	return Wrapper{module: module, operation: operation}
}

// Wrap attaches userMessage to err. A nil err stays nil.
func (w Wrapper) Wrap(err error, userMessage string) error {
	if err == nil {
		return nil
	}
	return &WrappedError{
		Module:      w.module,
		Operation:   w.operation,
		UserMessage: userMessage,
		Cause:       err,
	}
}

// WrappedError keeps the internal cause next to the message shown to clients.
type WrappedError struct {
	Module      string
	Operation   string
	UserMessage string
	Cause       error
}

func (e *WrappedError) Error() string {
	return fmt.Sprintf("%s.%s: %v", e.Module, e.Operation, e.Cause)
}

func (e *WrappedError) Unwrap() error {
	return e.Cause
}

// UserMessage returns the client-safe message of the outermost WrappedError
// in err's chain.
func UserMessage(err error) (string, bool) {
	var wrapped *WrappedError
	if !errors.As(err, &wrapped) || wrapped.UserMessage == "" {
		return "", false
	}
	return wrapped.UserMessage, true
}
