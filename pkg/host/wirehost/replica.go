package wirehost

import (
	"fmt"
	"log/slog"

	"github.com/vango-dev/vtree/internal/errors"
	"github.com/vango-dev/vtree/pkg/host"
	"github.com/vango-dev/vtree/pkg/host/memhost"
	"github.com/vango-dev/vtree/pkg/protocol"
)

// Replica is the receiving side of a Host. It applies op batches to its
// own document under a mount element and forwards events raised there
// back to the Host.
type Replica struct {
	doc     *memhost.Document
	mount   host.Handle
	sender  Sender
	session string

	local  map[host.Handle]host.Handle // remote → local
	remote map[host.Handle]host.Handle // local → remote

	partial   []protocol.Op
	listening map[string]bool
	lastSeq   uint64
	batches   int

	logger *slog.Logger
}

// ReplicaOption configures a Replica.
type ReplicaOption func(*Replica)

// WithReplicaLogger sets the replica's logger.
func WithReplicaLogger(l *slog.Logger) ReplicaOption {
	return func(r *Replica) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithReplicaDocument applies ops to doc, mounting under its element
// mount, instead of a fresh document.
func WithReplicaDocument(doc *memhost.Document, mount host.Handle) ReplicaOption {
	return func(r *Replica) {
		r.doc = doc
		r.mount = mount
	}
}

// NewReplica creates a replica sending events through s.
func NewReplica(s Sender, opts ...ReplicaOption) *Replica {
	r := &Replica{
		sender:    s,
		listening: make(map[string]bool),
		logger:    slog.Default().With("component", "wirehost.replica"),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.doc == nil {
		r.doc = memhost.New(memhost.WithLogger(r.logger))
		r.mount = r.doc.NewContainer("mount")
	}
	r.reset()
	return r
}

func (r *Replica) reset() {
	r.local = make(map[host.Handle]host.Handle)
	r.remote = make(map[host.Handle]host.Handle)
	r.partial = nil
}

// Document returns the replica's document.
func (r *Replica) Document() *memhost.Document { return r.doc }

// Mount returns the element the remote root is mirrored into.
func (r *Replica) Mount() host.Handle { return r.mount }

// Session returns the session id from the last Hello.
func (r *Replica) Session() string { return r.session }

// Batches returns the number of op batches applied.
func (r *Replica) Batches() int { return r.batches }

// HTML renders the mirrored subtree's content.
func (r *Replica) HTML() string { return r.doc.InnerHTML(r.mount) }

// HandleFrame applies one frame from the Host.
func (r *Replica) HandleFrame(data []byte) error {
	f, err := protocol.DecodeFrame(data)
	if err != nil {
		return errors.FromError(err, "E140")
	}
	switch f.Type {
	case protocol.FrameHello:
		hello, err := protocol.DecodeHello(f.Payload)
		if err != nil {
			return errors.FromError(err, "E140").WithDetail("hello")
		}
		r.session = hello.Session
		for _, c := range r.doc.Children(r.mount) {
			r.doc.Remove(c)
		}
		r.reset()
		r.bind(hello.Root, r.mount)
		r.logger.Debug("hello", "session", hello.Session, "root", hello.Root)
		return nil
	case protocol.FrameOps:
		batch, err := protocol.DecodeOps(f.Payload)
		if err != nil {
			r.partial = nil
			return errors.FromError(err, "E140").WithDetail("ops")
		}
		r.partial = append(r.partial, batch.Ops...)
		if f.Flags.Has(protocol.FlagMore) {
			return nil
		}
		ops := r.partial
		r.partial = nil
		r.lastSeq = batch.Seq
		r.batches++
		return r.apply(ops)
	case protocol.FrameError:
		em, err := protocol.DecodeErrorMessage(f.Payload)
		if err != nil {
			return errors.FromError(err, "E140").WithDetail("error frame")
		}
		r.logger.Warn("host reported an error", "code", em.Code, "message", em.Message)
		return nil
	default:
		return errors.New("E142").WithDetailf("unexpected %s frame", f.Type)
	}
}

func (r *Replica) bind(remote, local host.Handle) {
	r.local[remote] = local
	r.remote[local] = remote
}

func (r *Replica) resolve(remote host.Handle) (host.Handle, bool) {
	h, ok := r.local[remote]
	return h, ok
}

// forget drops the mappings of local's subtree before it is destroyed.
func (r *Replica) forget(local host.Handle) {
	for _, c := range r.doc.Children(local) {
		r.forget(c)
	}
	if remote, ok := r.remote[local]; ok {
		delete(r.local, remote)
		delete(r.remote, local)
	}
}

func (r *Replica) apply(ops []protocol.Op) error {
	for i, op := range ops {
		if err := r.applyOp(op); err != nil {
			return errors.FromError(err, "E142").WithDetailf("op %d of batch %d", i, r.lastSeq)
		}
	}
	return nil
}

func (r *Replica) applyOp(op protocol.Op) error {
	if op.Code == protocol.OpCreate {
		r.bind(op.Handle, r.doc.Create(op.Name))
		return nil
	}
	h, ok := r.resolve(op.Handle)
	if !ok {
		return fmt.Errorf("unknown handle %d", op.Handle)
	}
	switch op.Code {
	case protocol.OpSetAttribute:
		r.doc.SetAttribute(h, op.Name, op.Value)
	case protocol.OpRemoveAttribute:
		r.doc.RemoveAttribute(h, op.Name)
	case protocol.OpSetStyle:
		r.doc.SetStyle(h, op.Value)
	case protocol.OpSetText:
		r.doc.SetText(h, op.Value, op.At)
	case protocol.OpSetChildren:
		kids := make([]host.Handle, 0, len(op.Children))
		for _, c := range op.Children {
			lc, ok := r.resolve(c)
			if !ok {
				return fmt.Errorf("unknown child handle %d", c)
			}
			kids = append(kids, lc)
		}
		r.doc.SetChildren(h, kids)
	case protocol.OpReplace:
		next, ok := r.resolve(op.Other)
		if !ok {
			return fmt.Errorf("unknown handle %d", op.Other)
		}
		r.forget(h)
		r.doc.Replace(h, next)
	case protocol.OpRemove:
		r.forget(h)
		r.doc.Remove(h)
	case protocol.OpListen:
		if !r.listening[op.Name] {
			r.listening[op.Name] = true
			r.doc.AddEventListener(r.mount, op.Name, r.forward)
		}
	default:
		return fmt.Errorf("%w: 0x%02x", protocol.ErrUnknownOp, uint8(op.Code))
	}
	return nil
}

// forward sends an event raised in the replica back to the Host.
func (r *Replica) forward(ev *host.Event) {
	target, ok := r.remote[ev.Target]
	if !ok {
		return
	}
	out := &protocol.Event{Type: ev.Type, Target: target}
	if len(ev.Detail) > 0 {
		out.Detail = make(map[string]string, len(ev.Detail))
		for k, v := range ev.Detail {
			out.Detail[k] = fmt.Sprint(v)
		}
	}
	data, err := protocol.NewFrame(protocol.FrameEvent, protocol.EncodeEvent(out)).Encode()
	if err == nil {
		err = r.sender.Send(data)
	}
	if err != nil {
		r.logger.Warn("event not forwarded", "type", ev.Type, "error", err)
	}
}
