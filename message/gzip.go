package message

import "mini-tl/protocol"

// GzipPackedID identifies the compressed envelope.
const GzipPackedID TypeID = 0x3072cfa1

// GzipPacked carries one compressed, self-describing message. It only holds the
// bytes; unpacking is a dispatcher stage, not a property of the entity.
type GzipPacked struct {
	PackedData []byte
}

func (*GzipPacked) TypeID() TypeID { return GzipPackedID }

func (g *GzipPacked) SerializeBody(w *protocol.Writer) error {
	return w.WriteBytes(g.PackedData)
}

func (g *GzipPacked) DeserializeBody(r *protocol.Reader, _ Decoder) error {
	data, err := r.ReadBytes()
	if err != nil {
		return err
	}
	g.PackedData = data
	return nil
}

func (*GzipPacked) String() string { return "gzip_packed#3072cfa1" }
