// Package wirehost mirrors a host tree to a remote peer.
//
// Host is a host.Adapter backed by an in-memory memhost.Document. Every
// primitive is applied to the document, which answers queries, and also
// recorded as a protocol.Op. Flush, called by vdom after each commit,
// sends the recorded batch as FrameOps frames. A Replica on the other side
// applies the frames to its own document and sends events back.
package wirehost

import (
	"log/slog"
	"sort"

	"github.com/vango-dev/vtree/internal/errors"
	"github.com/vango-dev/vtree/pkg/host"
	"github.com/vango-dev/vtree/pkg/host/memhost"
	"github.com/vango-dev/vtree/pkg/metrics"
	"github.com/vango-dev/vtree/pkg/protocol"
)

// Sender delivers one encoded frame to the peer.
type Sender interface {
	Send(frame []byte) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(frame []byte) error

// Send implements Sender.
func (f SenderFunc) Send(frame []byte) error { return f(frame) }

// Option configures a Host.
type Option func(*Host)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(h *Host) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithMetrics records frames and host primitives.
func WithMetrics(c *metrics.Collector) Option {
	return func(h *Host) { h.metrics = c }
}

// Host is a host.Adapter streaming its mutations.
type Host struct {
	doc       *memhost.Document
	pending   []protocol.Op
	seq       uint64
	sender    Sender
	session   string
	root      host.Handle
	listening []string

	logger  *slog.Logger
	metrics *metrics.Collector
}

var (
	_ host.Adapter = (*Host)(nil)
	_ host.Flusher = (*Host)(nil)
)

// New creates a host with an empty mirror document.
func New(opts ...Option) *Host {
	h := &Host{logger: slog.Default().With("component", "wirehost")}
	for _, opt := range opts {
		opt(h)
	}
	h.doc = memhost.New(
		memhost.WithLogger(h.logger),
		memhost.WithOpObserver(h.metrics.HostOp),
	)
	return h
}

// Document returns the mirror.
func (h *Host) Document() *memhost.Document { return h.doc }

// NewContainer creates the element a root is bound to. Peers learn its
// handle from the Hello frame.
func (h *Host) NewContainer(id string) host.Handle {
	h.root = h.doc.NewContainer(id)
	return h.root
}

// Seq returns the sequence number the next batch will carry.
func (h *Host) Seq() uint64 { return h.seq }

// Pending returns the number of recorded, unsent ops.
func (h *Host) Pending() int { return len(h.pending) }

func (h *Host) known(handle host.Handle) bool {
	return h.doc.Element(handle) != nil
}

func (h *Host) record(op protocol.Op) {
	h.pending = append(h.pending, op)
}

// Create implements host.Adapter.
func (h *Host) Create(tag string) host.Handle {
	handle := h.doc.Create(tag)
	h.record(protocol.Op{Code: protocol.OpCreate, Handle: handle, Name: tag})
	return handle
}

// SetAttribute implements host.Adapter.
func (h *Host) SetAttribute(handle host.Handle, name, value string) {
	if !h.known(handle) {
		return
	}
	h.doc.SetAttribute(handle, name, value)
	h.record(protocol.Op{Code: protocol.OpSetAttribute, Handle: handle, Name: name, Value: value})
}

// RemoveAttribute implements host.Adapter.
func (h *Host) RemoveAttribute(handle host.Handle, name string) {
	if !h.known(handle) {
		return
	}
	h.doc.RemoveAttribute(handle, name)
	h.record(protocol.Op{Code: protocol.OpRemoveAttribute, Handle: handle, Name: name})
}

// SetStyle implements host.Adapter.
func (h *Host) SetStyle(handle host.Handle, css string) {
	if !h.known(handle) {
		return
	}
	h.doc.SetStyle(handle, css)
	h.record(protocol.Op{Code: protocol.OpSetStyle, Handle: handle, Value: css})
}

// SetText implements host.Adapter.
func (h *Host) SetText(handle host.Handle, text string, at int) {
	if !h.known(handle) {
		return
	}
	h.doc.SetText(handle, text, at)
	h.record(protocol.Op{Code: protocol.OpSetText, Handle: handle, Value: text, At: at})
}

// SetChildren implements host.Adapter.
func (h *Host) SetChildren(handle host.Handle, children []host.Handle) {
	if !h.known(handle) {
		return
	}
	h.doc.SetChildren(handle, children)
	h.record(protocol.Op{Code: protocol.OpSetChildren, Handle: handle, Children: h.doc.Children(handle)})
}

// Children implements host.Adapter.
func (h *Host) Children(handle host.Handle) []host.Handle { return h.doc.Children(handle) }

// Key implements host.Adapter.
func (h *Host) Key(handle host.Handle) string { return h.doc.Key(handle) }

// Query implements host.Adapter.
func (h *Host) Query(root host.Handle, sel string) []host.Handle { return h.doc.Query(root, sel) }

// Replace implements host.Adapter.
func (h *Host) Replace(old, next host.Handle) {
	if !h.known(old) || !h.known(next) {
		return
	}
	h.doc.Replace(old, next)
	h.record(protocol.Op{Code: protocol.OpReplace, Handle: old, Other: next})
}

// Remove implements host.Adapter.
func (h *Host) Remove(handle host.Handle) {
	if !h.known(handle) {
		return
	}
	h.doc.Remove(handle)
	h.record(protocol.Op{Code: protocol.OpRemove, Handle: handle})
}

// AddEventListener implements host.Adapter. The peer is told to forward
// events of eventType raised under root.
func (h *Host) AddEventListener(root host.Handle, eventType string, dispatch host.DispatchFunc) {
	if !h.known(root) {
		return
	}
	h.doc.AddEventListener(root, eventType, dispatch)
	h.listening = append(h.listening, eventType)
	h.record(protocol.Op{Code: protocol.OpListen, Handle: root, Name: eventType})
}

// Flush implements host.Flusher. Recorded ops are sent as one batch; with
// no peer attached they are dropped, since Attach sends a snapshot.
func (h *Host) Flush() error {
	if len(h.pending) == 0 {
		return nil
	}
	batch := &protocol.Ops{Seq: h.seq, Ops: h.pending}
	h.seq++
	h.pending = nil
	if h.sender == nil {
		h.logger.Debug("no peer attached, dropping ops", "seq", batch.Seq, "ops", len(batch.Ops))
		return nil
	}
	return h.sendOps(batch)
}

func (h *Host) sendOps(batch *protocol.Ops) error {
	frames, err := protocol.OpsFrames(batch)
	if err != nil {
		return errors.FromError(err, "E141").WithDetailf("batch %d", batch.Seq)
	}
	for _, f := range frames {
		if err := h.send(f); err != nil {
			return err
		}
	}
	return nil
}

func (h *Host) send(f *protocol.Frame) error {
	data, err := f.Encode()
	if err == nil {
		err = h.sender.Send(data)
	}
	if err != nil {
		return errors.New("E141").Wrap(err).WithDetailf("%s frame", f.Type)
	}
	h.metrics.WireFrame("out", len(data))
	return nil
}

// Attach connects a peer. It sends a Hello naming the container and a
// snapshot batch rebuilding the container's current subtree, and drops
// ops recorded before.
func (h *Host) Attach(s Sender, session string) error {
	h.sender = s
	h.session = session
	h.pending = nil
	hello := protocol.EncodeHello(&protocol.Hello{Session: session, Root: h.root})
	if err := h.send(protocol.NewFrame(protocol.FrameHello, hello)); err != nil {
		return err
	}
	batch := &protocol.Ops{Seq: h.seq, Ops: h.snapshot()}
	h.seq++
	h.logger.Info("peer attached", "session", session, "ops", len(batch.Ops))
	return h.sendOps(batch)
}

// Detach forgets the peer.
func (h *Host) Detach() {
	if h.sender != nil {
		h.logger.Info("peer detached", "session", h.session)
	}
	h.sender = nil
	h.session = ""
}

// snapshot describes the container's subtree as ops: creation and state
// of every descendant in pre-order, then every child list, then the
// listened event types.
func (h *Host) snapshot() []protocol.Op {
	root := h.doc.Element(h.root)
	if root == nil {
		return nil
	}
	var ops, lists []protocol.Op
	var walk func(el *memhost.Element, create bool)
	walk = func(el *memhost.Element, create bool) {
		if create {
			ops = append(ops, protocol.Op{Code: protocol.OpCreate, Handle: el.Handle, Name: el.Tag})
			names := make([]string, 0, len(el.Attrs))
			for name := range el.Attrs {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				ops = append(ops, protocol.Op{Code: protocol.OpSetAttribute, Handle: el.Handle, Name: name, Value: el.Attrs[name]})
			}
			if el.Style != "" {
				ops = append(ops, protocol.Op{Code: protocol.OpSetStyle, Handle: el.Handle, Value: el.Style})
			}
			if el.Text != "" {
				ops = append(ops, protocol.Op{Code: protocol.OpSetText, Handle: el.Handle, Value: el.Text, At: el.TextAt})
			}
		}
		kids := el.Children()
		if len(kids) == 0 {
			return
		}
		list := protocol.Op{Code: protocol.OpSetChildren, Handle: el.Handle}
		for _, c := range kids {
			list.Children = append(list.Children, c.Handle)
			walk(c, true)
		}
		lists = append(lists, list)
	}
	walk(root, false)
	ops = append(ops, lists...)

	seen := map[string]bool{}
	for _, t := range h.listening {
		if !seen[t] {
			seen[t] = true
			ops = append(ops, protocol.Op{Code: protocol.OpListen, Handle: h.root, Name: t})
		}
	}
	return ops
}

// HandleFrame processes one frame from the peer. Events are dispatched
// into the mirror, reaching the listeners vdom registered. It must run on
// the goroutine driving the tree.
func (h *Host) HandleFrame(data []byte) error {
	h.metrics.WireFrame("in", len(data))
	f, err := protocol.DecodeFrame(data)
	if err != nil {
		return errors.FromError(err, "E140")
	}
	switch f.Type {
	case protocol.FrameEvent:
		ev, err := protocol.DecodeEvent(f.Payload)
		if err != nil {
			return errors.FromError(err, "E140").WithDetail("event")
		}
		if !h.known(ev.Target) {
			h.logger.Debug("event for unknown element", "target", ev.Target, "type", ev.Type)
			return nil
		}
		h.doc.Dispatch(ev.Target, ev.Type, ev.DetailMap())
		return nil
	case protocol.FrameError:
		em, err := protocol.DecodeErrorMessage(f.Payload)
		if err != nil {
			return errors.FromError(err, "E140").WithDetail("error frame")
		}
		h.logger.Warn("peer reported an error", "code", em.Code, "message", em.Message)
		return nil
	default:
		return errors.New("E142").WithDetailf("unexpected %s frame", f.Type)
	}
}
