package protocol

import "errors"

var (
	ErrTruncated     = errors.New("protocol: truncated stream")
	ErrInvalidLength = errors.New("protocol: invalid length")
	ErrBlobTooLarge  = errors.New("protocol: blob too large")
)
