package protocol

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/vango-dev/vtree/pkg/host"
)

func TestOps_RoundTrip(t *testing.T) {
	batch := &Ops{Seq: 300, Ops: []Op{
		{Code: OpCreate, Handle: 7, Name: "li"},
		{Code: OpSetAttribute, Handle: 7, Name: "data-key", Value: "a0"},
		{Code: OpRemoveAttribute, Handle: 7, Name: "title"},
		{Code: OpSetStyle, Handle: 7, Value: "color: red"},
		{Code: OpSetText, Handle: 7, Value: "héllo", At: 2},
		{Code: OpSetChildren, Handle: 1, Children: []host.Handle{7, 200, 70000}},
		{Code: OpSetChildren, Handle: 2, Children: []host.Handle{}},
		{Code: OpReplace, Handle: 7, Other: 8},
		{Code: OpRemove, Handle: 8},
		{Code: OpListen, Handle: 1, Name: "click"},
	}}
	data, err := EncodeOps(batch)
	if err != nil {
		t.Fatalf("EncodeOps: %v", err)
	}
	got, err := DecodeOps(data)
	if err != nil {
		t.Fatalf("DecodeOps: %v", err)
	}
	if diff := cmp.Diff(batch, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestOps_UnknownCode(t *testing.T) {
	if _, err := EncodeOps(&Ops{Ops: []Op{{Code: 0x7f}}}); !errors.Is(err, ErrUnknownOp) {
		t.Errorf("EncodeOps error = %v, want ErrUnknownOp", err)
	}
	if _, err := DecodeOps([]byte{0x00, 0x01, 0x7f, 0x01}); !errors.Is(err, ErrUnknownOp) {
		t.Errorf("DecodeOps error = %v, want ErrUnknownOp", err)
	}
}

func TestDecode_Limits(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"truncated", []byte{0x01}, io.ErrUnexpectedEOF},
		{"count beyond input", []byte{0x00, 0x05, 0x08, 0x01}, io.ErrUnexpectedEOF},
		{"count beyond limit", []byte{0x00, 0xa1, 0x8d, 0x06}, ErrCountTooLarge},
		{"varint overflow", bytes.Repeat([]byte{0xff}, 11), ErrVarintOverflow},
		{"trailing bytes", []byte{0x00, 0x01, 0x08, 0x01, 0x00}, ErrTrailingBytes},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeOps(tt.data); !errors.Is(err, tt.want) {
				t.Errorf("DecodeOps error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestOpsFrames_Splits(t *testing.T) {
	text := strings.Repeat("x", 20000)
	batch := &Ops{Seq: 9}
	for i := 0; i < 7; i++ {
		batch.Ops = append(batch.Ops, Op{Code: OpSetText, Handle: host.Handle(i + 1), Value: text})
	}
	frames, err := OpsFrames(batch)
	if err != nil {
		t.Fatalf("OpsFrames: %v", err)
	}
	if len(frames) != 3 {
		t.Fatalf("got %d frames, want 3", len(frames))
	}

	var joined []Op
	for i, f := range frames {
		if more := f.Flags.Has(FlagMore); more != (i < len(frames)-1) {
			t.Errorf("frame %d FlagMore = %v", i, more)
		}
		if len(f.Payload) > MaxPayloadSize {
			t.Errorf("frame %d payload %d bytes", i, len(f.Payload))
		}
		part, err := DecodeOps(f.Payload)
		if err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
		if part.Seq != 9 {
			t.Errorf("frame %d seq = %d", i, part.Seq)
		}
		joined = append(joined, part.Ops...)
	}
	if diff := cmp.Diff(batch.Ops, joined); diff != "" {
		t.Errorf("ops mismatch (-want +got):\n%s", diff)
	}

	huge := &Ops{Ops: []Op{{Code: OpSetText, Handle: 1, Value: strings.Repeat("y", MaxPayloadSize)}}}
	if _, err := OpsFrames(huge); !errors.Is(err, ErrFrameTooLarge) {
		t.Errorf("oversized op error = %v, want ErrFrameTooLarge", err)
	}
}

func TestOpsFrames_Empty(t *testing.T) {
	frames, err := OpsFrames(&Ops{Seq: 1})
	if err != nil {
		t.Fatalf("OpsFrames: %v", err)
	}
	if len(frames) != 1 || frames[0].Flags != 0 {
		t.Fatalf("frames = %+v, want one final frame", frames)
	}
	got, err := DecodeOps(frames[0].Payload)
	if err != nil || len(got.Ops) != 0 {
		t.Errorf("DecodeOps = %+v, %v", got, err)
	}
}

func TestFrame_ReadWrite(t *testing.T) {
	var buf bytes.Buffer
	in := []*Frame{
		NewFrame(FrameHello, EncodeHello(&Hello{Session: "s-1", Root: 3})),
		NewFrame(FrameEvent, EncodeEvent(&Event{Type: "input", Target: 12, Detail: map[string]string{"value": "hi", "a": "b"}})),
		{Type: FrameOps, Flags: FlagMore, Payload: []byte{0x01, 0x00}},
		NewFrame(FrameError, EncodeErrorMessage(&ErrorMessage{Code: ErrUnknownKey, Message: "no key"})),
	}
	for _, f := range in {
		if err := WriteFrame(&buf, f); err != nil {
			t.Fatalf("WriteFrame: %v", err)
		}
	}
	var out []*Frame
	for {
		f, err := ReadFrame(&buf)
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("ReadFrame: %v", err)
		}
		out = append(out, f)
	}
	if diff := cmp.Diff(in, out); diff != "" {
		t.Fatalf("frames mismatch (-want +got):\n%s", diff)
	}

	hello, err := DecodeHello(out[0].Payload)
	if err != nil {
		t.Fatalf("DecodeHello: %v", err)
	}
	if diff := cmp.Diff(&Hello{Version: Version, Session: "s-1", Root: 3}, hello); diff != "" {
		t.Errorf("hello mismatch (-want +got):\n%s", diff)
	}
	ev, err := DecodeEvent(out[1].Payload)
	if err != nil {
		t.Fatalf("DecodeEvent: %v", err)
	}
	if ev.Type != "input" || ev.Target != 12 || ev.DetailMap()["value"] != "hi" {
		t.Errorf("event = %+v", ev)
	}
	em, err := DecodeErrorMessage(out[3].Payload)
	if err != nil {
		t.Fatalf("DecodeErrorMessage: %v", err)
	}
	if em.Error() != "UnknownKey: no key" {
		t.Errorf("error message = %q", em.Error())
	}
}

func TestDecodeFrame(t *testing.T) {
	good, err := NewFrame(FrameOps, []byte{1, 2, 3}).Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"ok", good, nil},
		{"short header", good[:2], io.ErrUnexpectedEOF},
		{"short payload", good[:5], io.ErrUnexpectedEOF},
		{"trailing", append(append([]byte{}, good...), 0), ErrTrailingBytes},
		{"bad type", []byte{0x09, 0, 0, 0}, ErrInvalidFrameType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeFrame(tt.data)
			if !errors.Is(err, tt.want) {
				t.Errorf("DecodeFrame error = %v, want %v", err, tt.want)
			}
		})
	}
	if _, err := (&Frame{Payload: make([]byte, MaxPayloadSize+1)}).Encode(); !errors.Is(err, ErrFrameTooLarge) {
		t.Errorf("oversized Encode error = %v", err)
	}
}

func TestDecodeHello_Version(t *testing.T) {
	data := EncodeHello(&Hello{Version: 2, Session: "x", Root: 1})
	if _, err := DecodeHello(data); !errors.Is(err, ErrVersionMismatch) {
		t.Errorf("error = %v, want ErrVersionMismatch", err)
	}
}

func FuzzDecodeOps(f *testing.F) {
	seed, _ := EncodeOps(&Ops{Seq: 1, Ops: []Op{
		{Code: OpCreate, Handle: 2, Name: "p"},
		{Code: OpSetChildren, Handle: 1, Children: []host.Handle{2}},
	}})
	f.Add(seed)
	f.Add([]byte{0x00, 0x01, 0x06, 0x01, 0xff, 0xff, 0xff, 0x0f})

	f.Fuzz(func(t *testing.T, data []byte) {
		_, _ = DecodeOps(data)
	})
}

func FuzzDecodeEvent(f *testing.F) {
	f.Add(EncodeEvent(&Event{Type: "click", Target: 4}))
	f.Add(EncodeEvent(&Event{Type: "input", Target: 9, Detail: map[string]string{"value": "v"}}))

	f.Fuzz(func(t *testing.T, data []byte) {
		_, _ = DecodeEvent(data)
	})
}
