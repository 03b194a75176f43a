// Package service holds the TL types every node understands: the ping/pong liveness
// exchange and the generic rpc_error reply.
//
//	ping#7abe77ec ping_id:long = Pong;
//	pong#347773c5 msg_id:long ping_id:long = Pong;
//	rpc_error#2144ca19 error_code:int error_message:string = RpcError;
//
// pong#6f7c4a02 is the superseded pong form without msg_id. It is registered in the
// compatibility mapping only and normalized to Pong by Converter.
package service

import (
	"fmt"

	"mini-tl/message"
	"mini-tl/protocol"
	"mini-tl/registry"
)

const (
	PingID       message.TypeID = 0x7abe77ec
	PongID       message.TypeID = 0x347773c5
	RpcErrorID   message.TypeID = 0x2144ca19
	LegacyPongID message.TypeID = 0x6f7c4a02
)

// Ping asks the peer to answer with a Pong carrying the same PingID.
type Ping struct {
	PingID int64
}

func (*Ping) TypeID() message.TypeID { return PingID }

func (p *Ping) SerializeBody(w *protocol.Writer) error {
	return w.WriteInt64(p.PingID)
}

func (p *Ping) DeserializeBody(r *protocol.Reader, _ message.Decoder) error {
	var err error
	p.PingID, err = r.ReadInt64()
	return err
}

// DeserializeResponse reads the reply to p. An rpc_error reply is returned as the error.
func (p *Ping) DeserializeResponse(r *protocol.Reader, d message.Decoder) (message.Entity, error) {
	e, err := d.Dispatch(r)
	if err != nil {
		return nil, err
	}
	switch resp := e.(type) {
	case *Pong:
		if resp.PingID != p.PingID {
			return nil, fmt.Errorf("service: pong for ping %d, want %d", resp.PingID, p.PingID)
		}
		return resp, nil
	case *RpcError:
		return nil, resp
	}
	return nil, fmt.Errorf("%w: %s in reply to ping", message.ErrUnexpectedType, e.TypeID())
}

func (p *Ping) String() string {
	return fmt.Sprintf("ping#7abe77ec{ping_id:%d}", p.PingID)
}

// Pong answers a Ping.
type Pong struct {
	MsgID  int64
	PingID int64
}

func (*Pong) TypeID() message.TypeID { return PongID }

func (p *Pong) SerializeBody(w *protocol.Writer) error {
	if err := w.WriteInt64(p.MsgID); err != nil {
		return err
	}
	return w.WriteInt64(p.PingID)
}

func (p *Pong) DeserializeBody(r *protocol.Reader, _ message.Decoder) error {
	var err error
	if p.MsgID, err = r.ReadInt64(); err != nil {
		return err
	}
	p.PingID, err = r.ReadInt64()
	return err
}

func (p *Pong) String() string {
	return fmt.Sprintf("pong#347773c5{msg_id:%d ping_id:%d}", p.MsgID, p.PingID)
}

// LegacyPong is the old pong constructor, still sent by outdated peers.
type LegacyPong struct {
	PingID int64
}

func (*LegacyPong) TypeID() message.TypeID { return LegacyPongID }

func (p *LegacyPong) SerializeBody(w *protocol.Writer) error {
	return w.WriteInt64(p.PingID)
}

func (p *LegacyPong) DeserializeBody(r *protocol.Reader, _ message.Decoder) error {
	var err error
	p.PingID, err = r.ReadInt64()
	return err
}

// RpcError is a failed call's reply. It doubles as a Go error.
type RpcError struct {
	Code    int32
	Message string
}

func (*RpcError) TypeID() message.TypeID { return RpcErrorID }

func (e *RpcError) SerializeBody(w *protocol.Writer) error {
	if err := w.WriteInt32(e.Code); err != nil {
		return err
	}
	return w.WriteString(e.Message)
}

func (e *RpcError) DeserializeBody(r *protocol.Reader, _ message.Decoder) error {
	var err error
	if e.Code, err = r.ReadInt32(); err != nil {
		return err
	}
	e.Message, err = r.ReadString()
	return err
}

func (e *RpcError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// Converter maps compatibility forms to their current types. Anything else passes
// through unchanged.
func Converter(e message.Entity) message.Entity {
	if old, ok := e.(*LegacyPong); ok {
		return &Pong{PingID: old.PingID}
	}
	return e
}

// Register adds the service types to reg. Pass Converter to registry.New through
// registry.WithConverter so LegacyPong arrives as Pong.
func Register(reg *registry.Registry) {
	reg.RegisterEntity(func() message.Entity { return &Ping{} })
	reg.RegisterEntity(func() message.Entity { return &Pong{} })
	reg.RegisterEntity(func() message.Entity { return &RpcError{} })
	reg.RegisterCompatEntity(func() message.Entity { return &LegacyPong{} })
}

// NewRegistry returns a registry that decodes the service types.
func NewRegistry(opts ...registry.Option) *registry.Registry {
	reg := registry.New(append([]registry.Option{registry.WithConverter(Converter)}, opts...)...)
	Register(reg)
	return reg
}
