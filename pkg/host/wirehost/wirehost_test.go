package wirehost

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/gorilla/websocket"
	"go.uber.org/goleak"

	"github.com/vango-dev/vtree/internal/errors"
	"github.com/vango-dev/vtree/pkg/host"
	"github.com/vango-dev/vtree/pkg/protocol"
	"github.com/vango-dev/vtree/pkg/vdom"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type pipe struct {
	host    *Host
	replica *Replica
	rt      *vdom.Runtime
	root    *vdom.Root
	frames  []protocol.Frame
}

// newPipe wires a Host to a Replica in process. Frames the host sends are
// recorded before the replica applies them.
func newPipe(t *testing.T) *pipe {
	t.Helper()
	p := &pipe{host: New(WithLogger(quietLogger()))}
	p.rt = vdom.NewRuntime(vdom.WithLogger(quietLogger()))
	p.root = p.rt.Bind(p.host, p.host.NewContainer("app"))
	p.replica = NewReplica(SenderFunc(p.host.HandleFrame), WithReplicaLogger(quietLogger()))
	return p
}

func (p *pipe) attach(t *testing.T) {
	t.Helper()
	toReplica := SenderFunc(func(data []byte) error {
		f, err := protocol.DecodeFrame(data)
		if err != nil {
			return err
		}
		p.frames = append(p.frames, *f)
		return p.replica.HandleFrame(data)
	})
	if err := p.host.Attach(toReplica, "s-1"); err != nil {
		t.Fatalf("Attach: %v", err)
	}
}

func (p *pipe) assertMirrored(t *testing.T) {
	t.Helper()
	want := p.host.Document().InnerHTML(p.root.Element())
	if diff := cmp.Diff(want, p.replica.HTML()); diff != "" {
		t.Errorf("replica mismatch (-host +replica):\n%s", diff)
	}
}

func item(rt *vdom.Runtime, key string) *vdom.Node {
	return rt.El("li", vdom.Props{Key: key, Content: key})
}

func TestHost_StreamsRenders(t *testing.T) {
	p := newPipe(t)
	p.attach(t)
	if p.replica.Session() != "s-1" {
		t.Errorf("Session = %q, want s-1", p.replica.Session())
	}

	var clicks []string
	list := p.rt.El("ul", vdom.Props{Key: "list", Class: "items"},
		item(p.rt, "a"), item(p.rt, "b"), item(p.rt, "c"))
	button := p.rt.El("button", vdom.Props{
		Key:     "go",
		Content: "Go",
		Style:   vdom.Style{"color": "red"},
		On: map[string]vdom.Handler{
			"click": vdom.Func(func(ev *host.Event) { clicks = append(clicks, ev.Key) }),
		},
	})
	p.root.Append(list, button)
	p.root.Render()
	p.assertMirrored(t)

	list.SetChildren(item(p.rt, "c"), item(p.rt, "a"), item(p.rt, "d"))
	button.Attr("disabled", true).Text("Wait").Update()
	p.assertMirrored(t)

	button.Attr("disabled", nil).Update()
	list.Destroy()
	p.root.Render()
	p.assertMirrored(t)
	if p.host.Pending() != 0 {
		t.Errorf("Pending = %d after render, want 0", p.host.Pending())
	}

	btn := p.replica.Document().ByKey("go")
	if btn == nil {
		t.Fatal("button missing from replica")
	}
	p.replica.Document().Dispatch(btn.Handle, "click", nil)
	if diff := cmp.Diff([]string{"go"}, clicks); diff != "" {
		t.Errorf("clicks mismatch (-want +got):\n%s", diff)
	}
}

func TestHost_RenderIsOneBatch(t *testing.T) {
	p := newPipe(t)
	p.attach(t)
	a, b, c := item(p.rt, "a"), item(p.rt, "b"), item(p.rt, "c")
	p.root.Append(a, b, c)
	p.root.Render()
	seq, frames := p.host.Seq(), len(p.frames)

	a.Text("A")
	c.Text("C")
	p.root.Append(a)
	stats := p.root.Render()

	if stats.Patched != 3 || stats.Created != 0 {
		t.Errorf("stats = %+v, want 3 patched and nothing created", stats)
	}
	if got := p.host.Seq(); got != seq+1 {
		t.Errorf("Seq = %d, want %d (one batch per render)", got, seq+1)
	}
	if got := len(p.frames) - frames; got != 1 {
		t.Errorf("render sent %d frames, want 1", got)
	}
	p.assertMirrored(t)
}

func TestHost_EventDetail(t *testing.T) {
	p := newPipe(t)
	p.attach(t)

	var got map[string]any
	field := p.rt.El("input", vdom.Props{Key: "name", On: map[string]vdom.Handler{
		"input": vdom.Func(func(ev *host.Event) { got = ev.Detail }),
	}})
	p.root.Append(field)
	p.root.Render()

	el := p.replica.Document().ByKey("name")
	p.replica.Document().Dispatch(el.Handle, "input", map[string]any{"value": "Ada", "length": 3})
	if diff := cmp.Diff(map[string]any{"value": "Ada", "length": "3"}, got); diff != "" {
		t.Errorf("detail mismatch (-want +got):\n%s", diff)
	}
}

func TestHost_AttachSendsSnapshot(t *testing.T) {
	p := newPipe(t)

	clicked := 0
	p.root.Append(
		p.rt.El("section", vdom.Props{ID: "main", Attrs: map[string]any{"title": "t", "hidden": true}},
			item(p.rt, "x"),
			p.rt.El("p", vdom.Props{Key: "y", Content: "before", On: map[string]vdom.Handler{
				"click": vdom.Func(func(*host.Event) { clicked++ }),
			}}, item(p.rt, "z")),
		),
	)
	p.root.Render()
	if p.host.Pending() != 0 || p.host.Seq() != 1 {
		t.Fatalf("detached flush kept %d ops at seq %d", p.host.Pending(), p.host.Seq())
	}

	p.attach(t)
	p.assertMirrored(t)
	if len(p.frames) != 2 || p.frames[0].Type != protocol.FrameHello || p.frames[1].Type != protocol.FrameOps {
		t.Fatalf("attach frames = %+v, want hello then ops", p.frames)
	}

	p.replica.Document().DispatchKey("y", "click")
	if clicked != 1 {
		t.Errorf("clicked = %d, want 1", clicked)
	}
}

func TestHost_LargeBatchSplitsFrames(t *testing.T) {
	p := newPipe(t)
	p.attach(t)
	p.frames = nil

	text := strings.Repeat("w", 300)
	var items []*vdom.Node
	for i := 0; i < 400; i++ {
		items = append(items, p.rt.El("li", vdom.Props{Key: fmt.Sprintf("i%d", i), Content: text}))
	}
	p.root.Append(p.rt.El("ol", vdom.Props{}, items...))
	p.root.Render()

	if len(p.frames) < 2 {
		t.Fatalf("got %d frames, want the batch split", len(p.frames))
	}
	for i, f := range p.frames {
		if more := f.Flags.Has(protocol.FlagMore); more != (i < len(p.frames)-1) {
			t.Errorf("frame %d FlagMore = %v", i, more)
		}
	}
	if p.replica.Batches() != 2 {
		t.Errorf("Batches = %d, want snapshot plus one", p.replica.Batches())
	}
	p.assertMirrored(t)
}

func TestHandleFrame_Errors(t *testing.T) {
	h := New(WithLogger(quietLogger()))
	r := NewReplica(SenderFunc(func([]byte) error { return nil }), WithReplicaLogger(quietLogger()))

	hello, _ := protocol.NewFrame(protocol.FrameHello, protocol.EncodeHello(&protocol.Hello{Root: 1})).Encode()
	badOps, _ := protocol.NewFrame(protocol.FrameOps, []byte{0x00, 0x01}).Encode()
	unknown, _ := protocol.NewFrame(protocol.FrameOps, mustOps(t, &protocol.Ops{Ops: []protocol.Op{
		{Code: protocol.OpSetText, Handle: 99, Value: "x"},
	}})).Encode()
	event, _ := protocol.NewFrame(protocol.FrameEvent, protocol.EncodeEvent(&protocol.Event{Type: "click", Target: 1})).Encode()

	tests := []struct {
		name   string
		handle func([]byte) error
		data   []byte
		want   string
	}{
		{"host garbage", h.HandleFrame, []byte{0x01}, "E140"},
		{"host hello", h.HandleFrame, hello, "E142"},
		{"host event for unknown element", h.HandleFrame, event, ""},
		{"replica truncated ops", r.HandleFrame, badOps, "E140"},
		{"replica unknown handle", r.HandleFrame, unknown, "E142"},
		{"replica event", r.HandleFrame, event, "E142"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.handle(tt.data)
			if got := errors.Code(err); got != tt.want {
				t.Errorf("code = %q (%v), want %q", got, err, tt.want)
			}
		})
	}
}

func mustOps(t *testing.T, batch *protocol.Ops) []byte {
	t.Helper()
	data, err := protocol.EncodeOps(batch)
	if err != nil {
		t.Fatalf("EncodeOps: %v", err)
	}
	return data
}

func TestConn_EchoOverWebsocket(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	upgrader := websocket.Upgrader{}
	served := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer close(served)
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		c := NewConn(ws, WithConnLogger(quietLogger()))
		defer c.Close()
		c.ReadLoop(context.Background(), c.Send)
	}))
	defer srv.Close()

	ws, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	client := NewConn(ws, WithConnLogger(quietLogger()), WithTimeouts(5*time.Second, time.Second))

	received := make(chan []byte, 1)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- client.ReadLoop(ctx, func(frame []byte) error {
			received <- frame
			return nil
		})
	}()

	want, _ := protocol.NewFrame(protocol.FrameEvent, protocol.EncodeEvent(&protocol.Event{Type: "click", Target: 4})).Encode()
	if err := client.Send(want); err != nil {
		t.Fatalf("Send: %v", err)
	}
	select {
	case got := <-received:
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("echo mismatch (-want +got):\n%s", diff)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no echo")
	}

	cancel()
	if err := <-done; err != context.Canceled {
		t.Errorf("ReadLoop = %v, want context.Canceled", err)
	}
	if err := client.Send(want); err == nil {
		t.Error("Send after close succeeded")
	}
	<-served
}

// idleServer serves one websocket with opts and reports the frames it reads
// and the end of its ReadLoop.
func idleServer(t *testing.T, opts ...ConnOption) (srv *httptest.Server, frames <-chan []byte, ended <-chan struct{}) {
	t.Helper()
	upgrader := websocket.Upgrader{}
	got := make(chan []byte, 1)
	done := make(chan struct{})
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer close(done)
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		c := NewConn(ws, append([]ConnOption{WithConnLogger(quietLogger())}, opts...)...)
		defer c.Close()
		c.ReadLoop(context.Background(), func(frame []byte) error {
			got <- frame
			return nil
		})
	}))
	return srv, got, done
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

// dialReader dials url and keeps reading so control frames are answered.
// It counts the pings it receives.
func dialReader(t *testing.T, url string, pings *atomic.Int32) (*websocket.Conn, <-chan struct{}) {
	t.Helper()
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	ws.SetPingHandler(func(data string) error {
		pings.Add(1)
		return ws.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(time.Second))
	})
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()
	return ws, stopped
}

func TestConn_HeartbeatKeepsIdlePeer(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	srv, frames, ended := idleServer(t, WithTimeouts(200*time.Millisecond, time.Second), WithHeartbeat(40*time.Millisecond))
	defer srv.Close()
	var pings atomic.Int32
	ws, stopped := dialReader(t, wsURL(srv), &pings)

	time.Sleep(600 * time.Millisecond)
	select {
	case <-ended:
		t.Fatal("idle connection was dropped despite answered pings")
	default:
	}
	if err := ws.WriteMessage(websocket.BinaryMessage, []byte{1, 2, 3}); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}
	select {
	case got := <-frames:
		if diff := cmp.Diff([]byte{1, 2, 3}, got); diff != "" {
			t.Errorf("frame mismatch (-want +got):\n%s", diff)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("frame not delivered after idling")
	}
	if n := pings.Load(); n < 3 {
		t.Errorf("pings = %d, want at least 3", n)
	}

	ws.Close()
	<-stopped
	<-ended
}

func TestConn_IdlePeerTimesOutWithoutHeartbeat(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	srv, _, ended := idleServer(t, WithTimeouts(100*time.Millisecond, time.Second), WithHeartbeat(0))
	defer srv.Close()
	var pings atomic.Int32
	ws, stopped := dialReader(t, wsURL(srv), &pings)

	select {
	case <-ended:
	case <-time.After(5 * time.Second):
		t.Fatal("idle connection outlived its read deadline")
	}
	if n := pings.Load(); n != 0 {
		t.Errorf("pings = %d, want none", n)
	}
	ws.Close()
	<-stopped
}
