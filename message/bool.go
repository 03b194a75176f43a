package message

import "mini-tl/protocol"

// Reserved identifiers of the two boolean constructors. The dispatcher answers them
// without a registry lookup.
const (
	BoolTrueID  TypeID = 0x997275b5
	BoolFalseID TypeID = 0xbc799737
)

// BoolTrue is the boolTrue constructor. It has an empty body.
type BoolTrue struct{}

// BoolFalse is the boolFalse constructor. It has an empty body.
type BoolFalse struct{}

var (
	True  Entity = BoolTrue{}
	False Entity = BoolFalse{}
)

func (BoolTrue) TypeID() TypeID                                  { return BoolTrueID }
func (BoolTrue) SerializeBody(*protocol.Writer) error            { return nil }
func (BoolTrue) DeserializeBody(*protocol.Reader, Decoder) error { return nil }
func (BoolTrue) String() string                                  { return "boolTrue#997275b5" }

func (BoolFalse) TypeID() TypeID                                  { return BoolFalseID }
func (BoolFalse) SerializeBody(*protocol.Writer) error            { return nil }
func (BoolFalse) DeserializeBody(*protocol.Reader, Decoder) error { return nil }
func (BoolFalse) String() string                                  { return "boolFalse#bc799737" }

// Bool returns the singleton for v.
func Bool(v bool) Entity {
	if v {
		return True
	}
	return False
}

// AsBool reports the value of a boolean singleton. ok is false for any other entity.
func AsBool(e Entity) (value, ok bool) {
	switch e.(type) {
	case BoolTrue, *BoolTrue:
		return true, true
	case BoolFalse, *BoolFalse:
		return false, true
	}
	return false, false
}
