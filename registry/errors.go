package registry

import (
	"errors"
	"fmt"

	"mini-tl/message"
)

var (
	ErrDecodeFailed = errors.New("registry: unable to deserialize data")
	ErrTooDeep      = errors.New("registry: nesting too deep")
	ErrNotVector    = errors.New("registry: unable to deserialize vector")
	ErrTrailingData = errors.New("registry: trailing data after packed message")
)

// UnsupportedTypeError reports an identifier present in neither mapping.
type UnsupportedTypeError struct {
	ID message.TypeID
}

func (e UnsupportedTypeError) Error() string {
	return fmt.Sprintf("registry: unsupported type %s", e.ID)
}

// DecodeError wraps a failure that is not a stream error: a factory returning nil or
// panicking. It unwraps to ErrDecodeFailed and the original cause.
type DecodeError struct {
	ID  message.TypeID
	Err error
}

func (e DecodeError) Error() string {
	return fmt.Sprintf("registry: decode %s: %v", e.ID, e.Err)
}

func (e DecodeError) Unwrap() []error {
	return []error{ErrDecodeFailed, e.Err}
}
