package protocol

import (
	"errors"
	"fmt"

	"github.com/vango-dev/vtree/pkg/host"
)

// OpCode is a host primitive.
type OpCode uint8

const (
	OpCreate          OpCode = 0x01 // Handle, Name=tag
	OpSetAttribute    OpCode = 0x02 // Handle, Name, Value
	OpRemoveAttribute OpCode = 0x03 // Handle, Name
	OpSetStyle        OpCode = 0x04 // Handle, Value=css
	OpSetText         OpCode = 0x05 // Handle, Value=text, At
	OpSetChildren     OpCode = 0x06 // Handle, Children
	OpReplace         OpCode = 0x07 // Handle=old, Other=next
	OpRemove          OpCode = 0x08 // Handle
	OpListen          OpCode = 0x09 // Handle=root, Name=event type
)

func (op OpCode) String() string {
	switch op {
	case OpCreate:
		return "Create"
	case OpSetAttribute:
		return "SetAttribute"
	case OpRemoveAttribute:
		return "RemoveAttribute"
	case OpSetStyle:
		return "SetStyle"
	case OpSetText:
		return "SetText"
	case OpSetChildren:
		return "SetChildren"
	case OpReplace:
		return "Replace"
	case OpRemove:
		return "Remove"
	case OpListen:
		return "Listen"
	default:
		return fmt.Sprintf("OpCode(%#02x)", uint8(op))
	}
}

// ErrUnknownOp is returned for an op code this package does not define.
var ErrUnknownOp = errors.New("protocol: unknown op")

// Op is one host mutation. Which fields are used depends on Code.
type Op struct {
	Code     OpCode
	Handle   host.Handle
	Other    host.Handle
	Name     string
	Value    string
	At       int
	Children []host.Handle
}

// Ops is the payload of one or more FrameOps frames: a batch of mutations
// produced by one flush.
type Ops struct {
	Seq uint64
	Ops []Op
}

func encodeOp(e *Encoder, op *Op) error {
	e.WriteUint8(byte(op.Code))
	e.WriteUvarint(uint64(op.Handle))
	switch op.Code {
	case OpCreate, OpRemoveAttribute, OpListen:
		e.WriteString(op.Name)
	case OpSetAttribute:
		e.WriteString(op.Name)
		e.WriteString(op.Value)
	case OpSetStyle:
		e.WriteString(op.Value)
	case OpSetText:
		e.WriteString(op.Value)
		at := op.At
		if at < 0 {
			at = 0
		}
		e.WriteUvarint(uint64(at))
	case OpSetChildren:
		e.WriteUvarint(uint64(len(op.Children)))
		for _, c := range op.Children {
			e.WriteUvarint(uint64(c))
		}
	case OpReplace:
		e.WriteUvarint(uint64(op.Other))
	case OpRemove:
	default:
		return fmt.Errorf("%w: %s", ErrUnknownOp, op.Code)
	}
	return nil
}

func decodeOp(d *Decoder) (Op, error) {
	var op Op
	code, err := d.ReadUint8()
	if err != nil {
		return op, err
	}
	op.Code = OpCode(code)
	h, err := d.ReadUvarint()
	if err != nil {
		return op, err
	}
	op.Handle = host.Handle(h)

	switch op.Code {
	case OpCreate, OpRemoveAttribute, OpListen:
		op.Name, err = d.ReadString()
	case OpSetAttribute:
		if op.Name, err = d.ReadString(); err == nil {
			op.Value, err = d.ReadString()
		}
	case OpSetStyle:
		op.Value, err = d.ReadString()
	case OpSetText:
		if op.Value, err = d.ReadString(); err == nil {
			var at uint64
			at, err = d.ReadUvarint()
			op.At = int(at)
		}
	case OpSetChildren:
		var n int
		if n, err = d.ReadCount(); err != nil {
			return op, err
		}
		op.Children = make([]host.Handle, n)
		for i := range op.Children {
			var c uint64
			if c, err = d.ReadUvarint(); err != nil {
				return op, err
			}
			op.Children[i] = host.Handle(c)
		}
	case OpReplace:
		var other uint64
		other, err = d.ReadUvarint()
		op.Other = host.Handle(other)
	case OpRemove:
	default:
		return op, fmt.Errorf("%w: %s", ErrUnknownOp, op.Code)
	}
	return op, err
}

// EncodeOps encodes a batch into one payload.
func EncodeOps(batch *Ops) ([]byte, error) {
	e := NewEncoder()
	e.WriteUvarint(batch.Seq)
	e.WriteUvarint(uint64(len(batch.Ops)))
	for i := range batch.Ops {
		if err := encodeOp(e, &batch.Ops[i]); err != nil {
			return nil, err
		}
	}
	return e.Bytes(), nil
}

// DecodeOps decodes one FrameOps payload.
func DecodeOps(data []byte) (*Ops, error) {
	d := NewDecoder(data)
	seq, err := d.ReadUvarint()
	if err != nil {
		return nil, err
	}
	n, err := d.ReadCount()
	if err != nil {
		return nil, err
	}
	batch := &Ops{Seq: seq, Ops: make([]Op, 0, n)}
	for i := 0; i < n; i++ {
		op, err := decodeOp(d)
		if err != nil {
			return nil, fmt.Errorf("op %d: %w", i, err)
		}
		batch.Ops = append(batch.Ops, op)
	}
	if err := d.Done(); err != nil {
		return nil, err
	}
	return batch, nil
}

// OpsFrames encodes batch into FrameOps frames that each fit
// MaxPayloadSize. Every frame but the last carries FlagMore and all of
// them carry batch.Seq. A single op too large for a frame is an error.
func OpsFrames(batch *Ops) ([]*Frame, error) {
	// Room for the seq and count varints in front of the ops.
	budget := MaxPayloadSize - UvarintLen(batch.Seq) - UvarintLen(MaxCount)

	var frames []*Frame
	body := NewEncoder()
	scratch := NewEncoder()
	count := 0
	emit := func(more bool) {
		e := NewEncoder()
		e.WriteUvarint(batch.Seq)
		e.WriteUvarint(uint64(count))
		e.WriteBytes(body.Bytes())
		f := &Frame{Type: FrameOps, Payload: e.Bytes()}
		if more {
			f.Flags |= FlagMore
		}
		frames = append(frames, f)
		body.Reset()
		count = 0
	}
	for i := range batch.Ops {
		scratch.Reset()
		if err := encodeOp(scratch, &batch.Ops[i]); err != nil {
			return nil, err
		}
		if scratch.Len() > budget {
			return nil, fmt.Errorf("%w: %s op of %d bytes", ErrFrameTooLarge, batch.Ops[i].Code, scratch.Len())
		}
		if body.Len()+scratch.Len() > budget {
			emit(true)
		}
		body.WriteBytes(scratch.Bytes())
		count++
	}
	emit(false)
	return frames, nil
}
