// Package protocol implements the TL byte primitives every entity body is built from.
//
// All integers are little-endian. Byte strings are length-prefixed and zero padded so
// the framed value always occupies a multiple of 4 bytes:
//
//	len < 254:   ┌─────┬─────────────┬─────────┐
//	             │ len │ payload ... │ padding │
//	             └─────┴─────────────┴─────────┘
//	len >= 254:  ┌──────┬────────────┬─────────────┬─────────┐
//	             │ 0xFE │ len (3 LE) │ payload ... │ padding │
//	             └──────┴────────────┴─────────────┴─────────┘
//
// Reader and Writer are the only places in the module that touch raw bytes; entity
// bodies are expressed entirely in terms of their Read*/Write* calls.
package protocol
