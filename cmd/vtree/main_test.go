package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/vango-dev/vtree/internal/config"
	"github.com/vango-dev/vtree/internal/errors"
	"github.com/vango-dev/vtree/internal/treedoc"
	"github.com/vango-dev/vtree/pkg/host/wirehost"
	"github.com/vango-dev/vtree/pkg/metrics"
	"github.com/vango-dev/vtree/pkg/selector"
)

const testDoc = `
components:
  badge:
    tag: span
    template: '<b key="label">{{text}}</b>'
    props: {text: ""}
nodes:
  - tag: ul
    key: list
    children:
      - {tag: li, key: a, class: done, content: Alpha}
      - {tag: li, key: b, content: Beta}
  - component: badge
    props: {text: New}
`

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--config", t.TempDir()}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func writeDoc(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tree.yaml")
	if err := os.WriteFile(path, []byte(testDoc), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestParseCmd(t *testing.T) {
	out, err := run(t, "parse", `li.done[data-key^="a"], #main`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	var got []selector.Compound
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	want := []selector.Compound{
		{Tag: "li", Classes: []string{"done"}, Attributes: []selector.Attribute{{Name: "data-key", Operator: "^=", Value: "a"}}},
		{ID: "main"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("compounds mismatch (-want +got):\n%s", diff)
	}

	if _, err := run(t, "parse", "--strict", "div["); errors.Code(err) != "E001" {
		t.Errorf("strict parse error = %v, want E001", err)
	}
}

func TestRenderCmd(t *testing.T) {
	path := writeDoc(t)

	out, err := run(t, "render", path)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	for _, want := range []string{`data-key="a"`, ">Alpha<", ">New</b>"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	out, err = run(t, "render", path, "--query", "li")
	if err != nil {
		t.Fatalf("render --query: %v", err)
	}
	if out != "a\nb\n" {
		t.Errorf("query output = %q, want a and b", out)
	}

	if _, err := run(t, "render", filepath.Join(t.TempDir(), "none.yaml")); errors.Code(err) != "E120" {
		t.Errorf("missing document error = %v, want E120", err)
	}
}

func TestVersionCmd(t *testing.T) {
	out, err := run(t, "version", "--short")
	if err != nil || out != "dev\n" {
		t.Errorf("version = %q, %v", out, err)
	}
}

func testEnv(t *testing.T) *env {
	t.Helper()
	registry := prometheus.NewRegistry()
	return &env{
		cfg:      config.New(),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		registry: registry,
		metrics:  metrics.New(metrics.WithNamespace("vtree"), metrics.WithRegistry(registry)),
	}
}

func TestServer_Session(t *testing.T) {
	doc, err := treedoc.Parse([]byte(testDoc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	srv := httptest.NewServer(newServer(testEnv(t), doc).routes())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("healthz status = %d", resp.StatusCode)
	}

	ws, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+config.DefaultPath, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	client := wirehost.NewConn(ws)
	replica := wirehost.NewReplica(client)

	frames := make(chan []byte, 16)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- client.ReadLoop(ctx, func(frame []byte) error {
			frames <- frame
			return nil
		})
	}()

	for i := 0; i < 2; i++ {
		select {
		case f := <-frames:
			if err := replica.HandleFrame(f); err != nil {
				t.Fatalf("HandleFrame: %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for frame %d", i)
		}
	}
	if replica.Session() == "" {
		t.Error("no session id in hello")
	}
	html := replica.HTML()
	for _, want := range []string{">Alpha<", ">Beta<", ">New</b>"} {
		if !strings.Contains(html, want) {
			t.Errorf("replica missing %q:\n%s", want, html)
		}
	}

	cancel()
	<-done

	resp, err = http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), `vtree_wire_frames_total{direction="out"} 2`) {
		t.Errorf("metrics missing outbound frames:\n%s", body)
	}
}
