//nolint:revive // exported
package mwauth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"connectrpc.com/connect"

	"github.com/israelwong/zen-sub001/pkg/idwrap"
	"github.com/israelwong/zen-sub001/pkg/stoken"
)

type ContextKey int

const (
	StudioIDKeyCtx ContextKey = iota
)

// LocalStudioIDStr is the single studio served when auth runs in local mode.
const LocalStudioIDStr = "00000000000000000000000001"

var LocalStudioID = idwrap.NewTextMust(LocalStudioIDStr)

var (
	ErrNoToken          = errors.New("no token provided")
	ErrMalformedToken   = errors.New("invalid token")
	ErrStudioNotInToken = errors.New("studio id not found in context")
)

type authInterceptor struct {
	secret []byte
	local  bool
}

var _ connect.Interceptor = (*authInterceptor)(nil)

// NewAuthInterceptor checks bearer tokens signed with secret.
func NewAuthInterceptor(secret []byte) connect.Interceptor {
	return &authInterceptor{secret: secret}
}

// NewAuthInterceptorLocal authenticates every call as LocalStudioID.
func NewAuthInterceptorLocal() connect.Interceptor {
	return &authInterceptor{local: true}
}

func (i *authInterceptor) WrapUnary(next connect.UnaryFunc) connect.UnaryFunc {
	return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		if req.Spec().IsClient {
			return next(ctx, req)
		}
		authed, err := i.authenticate(ctx, req.Header())
		if err != nil {
			return nil, err
		}
		return next(authed, req)
	}
}

func (*authInterceptor) WrapStreamingClient(next connect.StreamingClientFunc) connect.StreamingClientFunc {
	return next
}

func (i *authInterceptor) WrapStreamingHandler(next connect.StreamingHandlerFunc) connect.StreamingHandlerFunc {
	return func(ctx context.Context, conn connect.StreamingHandlerConn) error {
		authed, err := i.authenticate(ctx, conn.RequestHeader())
		if err != nil {
			return err
		}
		return next(authed, conn)
	}
}

func (i *authInterceptor) authenticate(ctx context.Context, header http.Header) (context.Context, error) {
	if i.local {
		return CreateAuthedContext(ctx, LocalStudioID), nil
	}

	headerValue := header.Get(stoken.TokenHeaderKey)
	if headerValue == "" {
		return nil, connect.NewError(connect.CodeUnauthenticated, ErrNoToken)
	}
	raw, ok := strings.CutPrefix(headerValue, "Bearer ")
	if !ok || raw == "" {
		return nil, connect.NewError(connect.CodeUnauthenticated, ErrMalformedToken)
	}

	claims, err := stoken.ValidateJWT(raw, stoken.AccessToken, i.secret)
	if err != nil {
		slog.ErrorContext(ctx, "Error validating JWT token", "error", err)
		return nil, connect.NewError(connect.CodeUnauthenticated, ErrMalformedToken)
	}

	studioID, err := idwrap.NewText(claims.Subject)
	if err != nil {
		slog.ErrorContext(ctx, "Error creating ID from claims.Subject", "error", err)
		return nil, connect.NewError(connect.CodeUnauthenticated, ErrMalformedToken)
	}
	return CreateAuthedContext(ctx, studioID), nil
}

func CreateAuthedContext(ctx context.Context, studioID idwrap.IDWrap) context.Context {
	return context.WithValue(ctx, StudioIDKeyCtx, studioID)
}

func GetContextStudioID(ctx context.Context) (idwrap.IDWrap, error) {
	id, ok := ctx.Value(StudioIDKeyCtx).(idwrap.IDWrap)
	if !ok {
		return id, ErrStudioNotInToken
	}
	return id, nil
}

// CrashInterceptor turns a handler panic into an internal error.
func CrashInterceptor() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (resp connect.AnyResponse, err error) {
			if req.Spec().IsClient {
				return next(ctx, req)
			}
			defer func() {
				if r := recover(); r != nil {
					slog.ErrorContext(ctx, "Handler panic", "procedure", req.Spec().Procedure, "panic", r)
					err = connect.NewError(connect.CodeInternal, fmt.Errorf("panic: %v", r))
					resp = nil
				}
			}()
			return next(ctx, req)
		}
	}
}
