//nolint:revive // exported
package api

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/cors"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

type Service struct {
	Handler http.Handler
	Path    string
}

type ServerStreamAdHoc[Res any] interface {
	Send(*Res) error
}

const (
	ServerModeUDS = "uds"
	ServerModeTCP = "tcp"
)

type ListenConfig struct {
	Mode       string
	Port       string
	SocketPath string
}

func DefaultSocketPath() string {
	return filepath.Join(os.TempDir(), "zen", "server.socket")
}

func newCORS() *cors.Cors {
	return cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
		},
		AllowOriginFunc: func(origin string) bool {
			return true
		},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{
			"Accept",
			"Accept-Encoding",
			"Accept-Post",
			"Connect-Accept-Encoding",
			"Connect-Content-Encoding",
			"Content-Encoding",
			"Grpc-Accept-Encoding",
			"Grpc-Encoding",
			"Grpc-Message",
			"Grpc-Status",
			"Grpc-Status-Details-Bin",
			"X-Request-Id",
		},
		MaxAge: int(time.Hour / time.Second),
	})
}

// NewMux registers every service plus any extra plain HTTP handlers, such as
// the metrics endpoint.
func NewMux(services []Service, extra map[string]http.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	for _, service := range services {
		slog.Info("Registering service", "path", service.Path)
		mux.Handle(service.Path, service.Handler)
	}
	for path, h := range extra {
		slog.Info("Registering handler", "path", path)
		mux.Handle(path, h)
	}
	return mux
}

func NewServer(mux *http.ServeMux) *http.Server {
	return &http.Server{
		// Connect needs an address even when serving a Unix socket.
		Addr:              "zen:0",
		ReadHeaderTimeout: 10 * time.Second,
		Handler: h2c.NewHandler(newCORS().Handler(mux), &http2.Server{
			MaxConcurrentStreams: 1000,
		}),
	}
}

// Listen opens the listener described by cfg. Unknown modes fall back to TCP.
func Listen(ctx context.Context, cfg ListenConfig) (net.Listener, error) {
	lc := net.ListenConfig{}
	switch cfg.Mode {
	case ServerModeUDS:
		path := cfg.SocketPath
		if path == "" {
			path = DefaultSocketPath()
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, err
		}
		// Stale socket from a previous crash.
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			slog.Warn("Failed to remove stale socket", "path", path, "error", err)
		}
		slog.Info("Server listening on Unix socket", "path", path)
		return lc.Listen(ctx, "unix", path)
	case ServerModeTCP:
	default:
		slog.Warn("Unknown server mode, falling back to tcp", "mode", cfg.Mode)
	}
	slog.Info("Server listening on TCP", "port", cfg.Port)
	return lc.Listen(ctx, "tcp", ":"+cfg.Port)
}

// ListenServices serves until ctx is cancelled, then shuts down gracefully
// within shutdownTimeout.
func ListenServices(ctx context.Context, cfg ListenConfig, services []Service, extra map[string]http.Handler, shutdownTimeout time.Duration) error {
	ln, err := Listen(ctx, cfg)
	if err != nil {
		return err
	}
	srv := NewServer(NewMux(services, extra))
	if cfg.Mode == ServerModeUDS {
		path := ln.Addr().String()
		srv.RegisterOnShutdown(func() {
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				slog.Warn("Failed to remove socket on shutdown", "path", path, "error", err)
			}
		})
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	slog.Info("Shutting down server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
