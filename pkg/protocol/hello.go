package protocol

import (
	"errors"
	"fmt"

	"github.com/vango-dev/vtree/pkg/host"
)

// Version is the protocol version sent in Hello.
const Version = 1

// ErrVersionMismatch is returned by DecodeHello for another version.
var ErrVersionMismatch = errors.New("protocol: version mismatch")

// Hello is the first frame of a session. It names the element the ops
// stream mutates into.
type Hello struct {
	Version uint8
	Session string
	Root    host.Handle
}

// EncodeHello encodes h. A zero Version is sent as Version.
func EncodeHello(h *Hello) []byte {
	v := h.Version
	if v == 0 {
		v = Version
	}
	e := NewEncoder()
	e.WriteUint8(v)
	e.WriteString(h.Session)
	e.WriteUvarint(uint64(h.Root))
	return e.Bytes()
}

// DecodeHello decodes a FrameHello payload.
func DecodeHello(data []byte) (*Hello, error) {
	d := NewDecoder(data)
	v, err := d.ReadUint8()
	if err != nil {
		return nil, err
	}
	if v != Version {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrVersionMismatch, v, Version)
	}
	session, err := d.ReadString()
	if err != nil {
		return nil, err
	}
	root, err := d.ReadUvarint()
	if err != nil {
		return nil, err
	}
	if err := d.Done(); err != nil {
		return nil, err
	}
	return &Hello{Version: v, Session: session, Root: host.Handle(root)}, nil
}
