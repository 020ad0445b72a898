// Package mwrequestid tags every call with a request id that shows up in
// logs and in the X-Request-Id response header.
package mwrequestid

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"connectrpc.com/connect"
	"github.com/google/uuid"
)

const HeaderKey = "X-Request-Id"

type ctxKey struct{}

func FromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// incoming keeps a caller supplied id when it parses as a UUID.
func incoming(v string) string {
	if id, err := uuid.Parse(v); err == nil {
		return id.String()
	}
	return uuid.NewString()
}

type interceptor struct {
	logger *slog.Logger
}

func NewInterceptor(logger *slog.Logger) connect.Interceptor {
	if logger == nil {
		logger = slog.Default()
	}
	return &interceptor{logger: logger}
}

func (i *interceptor) WrapUnary(next connect.UnaryFunc) connect.UnaryFunc {
	return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		if req.Spec().IsClient {
			return next(ctx, req)
		}
		id := incoming(req.Header().Get(HeaderKey))
		start := time.Now()
		resp, err := next(WithRequestID(ctx, id), req)

		attrs := []any{"procedure", req.Spec().Procedure, "request_id", id, "elapsed", time.Since(start)}
		if err != nil {
			i.logger.InfoContext(ctx, "rpc failed", append(attrs, "code", connect.CodeOf(err).String())...)
			var cerr *connect.Error
			if errors.As(err, &cerr) {
				cerr.Meta().Set(HeaderKey, id)
			}
			return resp, err
		}
		i.logger.DebugContext(ctx, "rpc", attrs...)
		if resp != nil {
			resp.Header().Set(HeaderKey, id)
		}
		return resp, nil
	}
}

func (*interceptor) WrapStreamingClient(next connect.StreamingClientFunc) connect.StreamingClientFunc {
	return next
}

func (i *interceptor) WrapStreamingHandler(next connect.StreamingHandlerFunc) connect.StreamingHandlerFunc {
	return func(ctx context.Context, conn connect.StreamingHandlerConn) error {
		id := incoming(conn.RequestHeader().Get(HeaderKey))
		conn.ResponseHeader().Set(HeaderKey, id)
		i.logger.DebugContext(ctx, "stream opened", "procedure", conn.Spec().Procedure, "request_id", id)
		err := next(WithRequestID(ctx, id), conn)
		i.logger.DebugContext(ctx, "stream closed", "procedure", conn.Spec().Procedure, "request_id", id, "error", err)
		return err
	}
}
