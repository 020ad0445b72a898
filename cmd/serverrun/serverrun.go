// Package serverrun wires configuration, storage and the RPC services into a
// running server.
package serverrun

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"connectrpc.com/connect"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/israelwong/zen-sub001/db/pkg/sqlitelocal"
	"github.com/israelwong/zen-sub001/db/pkg/sqlitemem"
	"github.com/israelwong/zen-sub001/internal/api"
	"github.com/israelwong/zen-sub001/internal/api/middleware/mwauth"
	"github.com/israelwong/zen-sub001/internal/api/middleware/mwcodec"
	"github.com/israelwong/zen-sub001/internal/api/middleware/mwcompress"
	"github.com/israelwong/zen-sub001/internal/api/middleware/mwrequestid"
	"github.com/israelwong/zen-sub001/internal/api/rhealth"
	"github.com/israelwong/zen-sub001/internal/api/rorder"
	"github.com/israelwong/zen-sub001/pkg/config"
	"github.com/israelwong/zen-sub001/pkg/eventstream/memory"
	"github.com/israelwong/zen-sub001/pkg/ordermetrics"
	"github.com/israelwong/zen-sub001/pkg/serialdispatch"
	"github.com/israelwong/zen-sub001/pkg/service/sorder"
)

const EnvConfigPath = "ZEN_CONFIG"

func Run() error {
	// A missing .env is normal outside development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	cfg, err := config.Load(os.Getenv(EnvConfigPath))
	if err != nil {
		return err
	}
	logger := cfg.NewLogger()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return Serve(ctx, cfg, logger)
}

// Serve runs the server until ctx is cancelled.
func Serve(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	db, closeDB, err := openDB(ctx, cfg.DB)
	if err != nil {
		return err
	}
	defer closeDB()

	dispatcher := serialdispatch.New(cfg.Order.QueueSize)
	defer dispatcher.Close()

	stream := memory.New[sorder.Topic, sorder.ChangeEvent](cfg.Order.StreamBuffer)
	defer stream.Shutdown()

	var metrics *ordermetrics.Recorder
	extra := map[string]http.Handler{}
	if cfg.Server.Metrics {
		metrics = ordermetrics.New()
		extra["/metrics"] = metrics.Handler()
	}

	svc := sorder.New(db,
		sorder.WithDispatcher(dispatcher),
		sorder.WithStreamer(stream),
		sorder.WithMetrics(metrics),
		sorder.WithLogger(logger),
		sorder.WithConflictRetries(cfg.Order.ConflictRetries),
	)

	authInterceptor := mwauth.NewAuthInterceptorLocal()
	if !cfg.Auth.Local {
		authInterceptor = mwauth.NewAuthInterceptor([]byte(cfg.Auth.Secret))
	}
	options := []connect.HandlerOption{
		mwcodec.WithJSONCodec(),
		mwcompress.WithCompression(),
		connect.WithInterceptors(
			mwauth.CrashInterceptor(),
			mwrequestid.NewInterceptor(logger),
			authInterceptor,
		),
	}

	orderSrv, err := rorder.CreateService(rorder.New(svc, stream, logger), options)
	if err != nil {
		return err
	}
	// Health stays reachable without a token.
	healthSrv, err := rhealth.CreateService(rhealth.New(db), []connect.HandlerOption{mwcodec.WithJSONCodec()})
	if err != nil {
		return err
	}
	services := []api.Service{*orderSrv, *healthSrv}

	listen := api.ListenConfig{
		Mode:       cfg.Server.Mode,
		Port:       cfg.Server.Port,
		SocketPath: cfg.Server.SocketPath,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return api.ListenServices(gctx, listen, services, extra, cfg.Server.ShutdownTimeout)
	})
	g.Go(func() error {
		<-gctx.Done()
		// Ends open Sync streams so the HTTP server can drain.
		stream.Shutdown()
		return nil
	})
	return g.Wait()
}

func openDB(ctx context.Context, cfg config.DBConfig) (*sql.DB, func(), error) {
	switch cfg.Mode {
	case config.DBModeMemory:
		return sqlitemem.NewSQLiteMem(ctx)
	default:
		return sqlitelocal.NewSQLiteLocal(ctx, sqlitelocal.Options{
			Name:        cfg.Name,
			Dir:         cfg.Path,
			BusyTimeout: cfg.BusyTimeout,
		})
	}
}
