package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/vango-dev/vtree/internal/treedoc"
	"github.com/vango-dev/vtree/pkg/component"
	"github.com/vango-dev/vtree/pkg/host/wirehost"
	"github.com/vango-dev/vtree/pkg/sched"
	"github.com/vango-dev/vtree/pkg/vdom"
)

func serveCmd(configDir *string) *cobra.Command {
	var address string

	cmd := &cobra.Command{
		Use:   "serve <document>",
		Short: "Stream a tree document to websocket replicas",
		Long: `Serve a tree document. Every websocket connection gets its own copy
of the tree, rendered on its own loop and mirrored to the peer as binary
frames. Events the peer sends back are dispatched into the tree.

Endpoints:
  <serve.path>  websocket (default /ws)
  /healthz      liveness
  /metrics      Prometheus metrics, when metrics.enabled is set

Examples:
  vtree serve tree.yaml
  vtree serve tree.yaml --address 127.0.0.1:9000`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(*configDir, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			doc, err := treedoc.Load(args[0])
			if err != nil {
				return err
			}
			if address != "" {
				e.cfg.Serve.Address = address
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			info(cmd, "serving %s on %s%s", doc.Path(), e.cfg.Serve.Address, e.cfg.Serve.Path)
			return newServer(e, doc).run(ctx)
		},
	}

	cmd.Flags().StringVarP(&address, "address", "a", "", "Listen address (default from vtree.json)")
	return cmd
}

// server hands every websocket connection its own tree.
type server struct {
	env      *env
	doc      *treedoc.Document
	upgrader websocket.Upgrader
	active   atomic.Int64
}

func newServer(e *env, doc *treedoc.Document) *server {
	return &server{
		env: e,
		doc: doc,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
	}
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	r.Get(s.env.cfg.Serve.Path, s.serveWS)
	if s.env.registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.env.registry, promhttp.HandlerOpts{}))
	}
	return r
}

func (s *server) run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	srv := &http.Server{
		Addr:              s.env.cfg.Serve.Address,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	g.Go(func() error {
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (s *server) serveWS(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.env.logger.Error("websocket upgrade failed", "error", err)
		s.env.metrics.WebsocketError("upgrade")
		return
	}
	session := uuid.NewString()
	logger := s.env.logger.With("session", session)
	conn := wirehost.NewConn(ws,
		wirehost.WithConnLogger(logger),
		wirehost.WithHeartbeat(s.env.cfg.HeartbeatInterval()),
	)
	defer conn.Close()

	n := s.active.Add(1)
	defer s.active.Add(-1)
	s.env.metrics.SessionStarted()
	defer s.env.metrics.SessionEnded()
	logger.Info("session started", "remote", r.RemoteAddr, "active", n)

	if err := s.runSession(r.Context(), conn, session, logger); err != nil {
		logger.Error("session failed", "error", err)
		s.env.metrics.WebsocketError("session")
		return
	}
	logger.Info("session ended")
}

// runSession builds the tree on a fresh loop, attaches conn and feeds it
// the peer's frames until either side stops.
func (s *server) runSession(ctx context.Context, conn *wirehost.Conn, session string, logger *slog.Logger) error {
	loop := sched.NewLoop(sched.WithLogger(logger))
	wh := wirehost.New(wirehost.WithLogger(logger), wirehost.WithMetrics(s.env.metrics))
	rt := vdom.NewRuntime(append(s.env.runtimeOptions(loop), vdom.WithLogger(logger))...)
	reg := component.NewRegistry(rt)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return loop.Run(ctx) })

	var setupErr error
	err := loop.Do(ctx, func() {
		tree, err := s.doc.Build(reg)
		if err != nil {
			setupErr = err
			return
		}
		tree.Mount(rt.Bind(wh, wh.NewContainer(s.doc.Root)))
		setupErr = wh.Attach(conn, session)
	})
	if err == nil {
		err = setupErr
	}
	if err != nil {
		loop.Close()
		g.Wait()
		return err
	}

	g.Go(func() error {
		defer loop.Close()
		return conn.ReadLoop(ctx, func(frame []byte) error {
			var handleErr error
			if err := loop.Do(ctx, func() { handleErr = wh.HandleFrame(frame) }); err != nil {
				return err
			}
			return handleErr
		})
	})

	err = g.Wait()
	wh.Detach()
	reg.Close()
	rt.Free()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
