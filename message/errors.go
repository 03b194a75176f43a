package message

import "errors"

var (
	ErrNilEntity      = errors.New("message: nil entity")
	ErrNoDecoder      = errors.New("message: object elements need a decoder")
	ErrVectorTooLong  = errors.New("message: vector too long")
	ErrNegativeLength = errors.New("message: negative vector length")
	ErrUnexpectedType = errors.New("message: unexpected type")
)
