package protocol

import (
	"sort"

	"github.com/vango-dev/vtree/pkg/host"
)

// Event is the payload of a FrameEvent: an event the client observed on
// one of the mirrored elements.
type Event struct {
	Type   string
	Target host.Handle
	Detail map[string]string
}

// EncodeEvent encodes ev. Detail entries are written in key order.
func EncodeEvent(ev *Event) []byte {
	e := NewEncoder()
	e.WriteString(ev.Type)
	e.WriteUvarint(uint64(ev.Target))
	keys := make([]string, 0, len(ev.Detail))
	for k := range ev.Detail {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	e.WriteUvarint(uint64(len(keys)))
	for _, k := range keys {
		e.WriteString(k)
		e.WriteString(ev.Detail[k])
	}
	return e.Bytes()
}

// DecodeEvent decodes a FrameEvent payload.
func DecodeEvent(data []byte) (*Event, error) {
	d := NewDecoder(data)
	typ, err := d.ReadString()
	if err != nil {
		return nil, err
	}
	target, err := d.ReadUvarint()
	if err != nil {
		return nil, err
	}
	n, err := d.ReadCount()
	if err != nil {
		return nil, err
	}
	ev := &Event{Type: typ, Target: host.Handle(target)}
	if n > 0 {
		ev.Detail = make(map[string]string, n)
	}
	for i := 0; i < n; i++ {
		k, err := d.ReadString()
		if err != nil {
			return nil, err
		}
		v, err := d.ReadString()
		if err != nil {
			return nil, err
		}
		ev.Detail[k] = v
	}
	if err := d.Done(); err != nil {
		return nil, err
	}
	return ev, nil
}

// DetailMap converts Detail for host.Event.
func (ev *Event) DetailMap() map[string]any {
	if len(ev.Detail) == 0 {
		return nil
	}
	out := make(map[string]any, len(ev.Detail))
	for k, v := range ev.Detail {
		out[k] = v
	}
	return out
}
