package registry

import (
	"strings"

	"mini-tl/message"
	"mini-tl/protocol"
)

const (
	userID    message.TypeID = 0xd23c81a3
	oldUserID message.TypeID = 0x2e13f4c3
	boxID     message.TypeID = 0x0b0b0b0b
	pointID   message.TypeID = 0x4f3a9c10
)

// user#d23c81a3 id:int name:string = User
type user struct {
	ID   int32
	Name string
}

func (*user) TypeID() message.TypeID { return userID }

func (u *user) SerializeBody(w *protocol.Writer) error {
	if err := w.WriteInt32(u.ID); err != nil {
		return err
	}
	return w.WriteString(u.Name)
}

func (u *user) DeserializeBody(r *protocol.Reader, _ message.Decoder) error {
	var err error
	if u.ID, err = r.ReadInt32(); err != nil {
		return err
	}
	u.Name, err = r.ReadString()
	return err
}

// userOld#2e13f4c3 id:int first_name:string last_name:string = User
type oldUser struct {
	ID    int32
	First string
	Last  string
}

func (*oldUser) TypeID() message.TypeID { return oldUserID }

func (u *oldUser) SerializeBody(w *protocol.Writer) error {
	if err := w.WriteInt32(u.ID); err != nil {
		return err
	}
	if err := w.WriteString(u.First); err != nil {
		return err
	}
	return w.WriteString(u.Last)
}

func (u *oldUser) DeserializeBody(r *protocol.Reader, _ message.Decoder) error {
	var err error
	if u.ID, err = r.ReadInt32(); err != nil {
		return err
	}
	if u.First, err = r.ReadString(); err != nil {
		return err
	}
	u.Last, err = r.ReadString()
	return err
}

func convertUser(e message.Entity) message.Entity {
	if old, ok := e.(*oldUser); ok {
		return &user{ID: old.ID, Name: strings.TrimSpace(old.First + " " + old.Last)}
	}
	return e
}

// box#0b0b0b0b inner:Object = Box
type box struct {
	Inner message.Entity
}

func (*box) TypeID() message.TypeID { return boxID }

func (b *box) SerializeBody(w *protocol.Writer) error {
	return message.Write(w, b.Inner)
}

func (b *box) DeserializeBody(r *protocol.Reader, d message.Decoder) error {
	inner, err := d.Dispatch(r)
	if err != nil {
		return err
	}
	b.Inner = inner
	return nil
}

// point#4f3a9c10 x:double y:double tags:Vector<long> = Point
type point struct {
	X, Y float64
	Tags *message.LongVector
}

func (*point) TypeID() message.TypeID { return pointID }

func (p *point) SerializeBody(w *protocol.Writer) error {
	if err := w.WriteDouble(p.X); err != nil {
		return err
	}
	if err := w.WriteDouble(p.Y); err != nil {
		return err
	}
	return message.Write(w, p.Tags)
}

func (p *point) DeserializeBody(r *protocol.Reader, d message.Decoder) error {
	var err error
	if p.X, err = r.ReadDouble(); err != nil {
		return err
	}
	if p.Y, err = r.ReadDouble(); err != nil {
		return err
	}
	id, err := r.ReadUint32()
	if err != nil {
		return err
	}
	if message.TypeID(id) != message.VectorID {
		return message.ErrUnexpectedType
	}
	p.Tags = message.NewLongVector()
	return p.Tags.DeserializeBody(r, d)
}

func newTestRegistry(opts ...Option) *Registry {
	reg := New(opts...)
	reg.Register(userID, func() message.Entity { return &user{} })
	reg.Register(boxID, func() message.Entity { return &box{} })
	reg.RegisterEntity(func() message.Entity { return &point{} })
	return reg
}

func nested(depth int) message.Entity {
	var e message.Entity = &user{ID: 1, Name: "leaf"}
	for i := 0; i < depth; i++ {
		e = &box{Inner: e}
	}
	return e
}
