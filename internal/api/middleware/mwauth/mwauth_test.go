package mwauth

import (
	"context"
	"net/http"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/israelwong/zen-sub001/pkg/idwrap"
	"github.com/israelwong/zen-sub001/pkg/stoken"
)

type mockRequest struct {
	connect.AnyRequest
	isClient bool
}

func (m mockRequest) Spec() connect.Spec {
	return connect.Spec{IsClient: m.isClient, Procedure: "/zen.order.v1.OrderService/Move"}
}

func expectStudio(t *testing.T, want idwrap.IDWrap) connect.UnaryFunc {
	return func(ctx context.Context, _ connect.AnyRequest) (connect.AnyResponse, error) {
		got, err := GetContextStudioID(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, got)
		return connect.NewResponse(&struct{}{}), nil
	}
}

func TestLocal(t *testing.T) {
	interceptor := NewAuthInterceptorLocal()
	_, err := interceptor.WrapUnary(expectStudio(t, LocalStudioID))(context.Background(), connect.NewRequest(&struct{}{}))
	require.NoError(t, err)
}

func TestToken(t *testing.T) {
	secret := []byte("secret")
	studio := idwrap.NewNow()
	token, err := stoken.NewJWT(studio.String(), stoken.AccessToken, time.Hour, secret)
	require.NoError(t, err)

	interceptor := NewAuthInterceptor(secret)

	req := connect.NewRequest(&struct{}{})
	req.Header().Set(stoken.TokenHeaderKey, "Bearer "+token)
	_, err = interceptor.WrapUnary(expectStudio(t, studio))(context.Background(), req)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
	}{
		{name: "missing", header: ""},
		{name: "no bearer prefix", header: token},
		{name: "wrong secret", header: "Bearer " + mustToken(t, studio.String(), []byte("other"))},
		{name: "subject not an id", header: "Bearer " + mustToken(t, "studio-1", secret)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := connect.NewRequest(&struct{}{})
			if tt.header != "" {
				req.Header().Set(stoken.TokenHeaderKey, tt.header)
			}
			_, err := interceptor.WrapUnary(func(context.Context, connect.AnyRequest) (connect.AnyResponse, error) {
				t.Fatal("next must not run")
				return nil, nil
			})(context.Background(), req)
			require.Error(t, err)
			assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))
		})
	}
}

func mustToken(t *testing.T, subject string, secret []byte) string {
	t.Helper()
	token, err := stoken.NewJWT(subject, stoken.AccessToken, time.Hour, secret)
	require.NoError(t, err)
	return token
}

func TestAuthenticate_Header(t *testing.T) {
	i := &authInterceptor{secret: []byte("secret")}
	_, err := i.authenticate(context.Background(), http.Header{})
	require.ErrorIs(t, err, ErrNoToken)
}

func TestGetContextStudioID_Missing(t *testing.T) {
	_, err := GetContextStudioID(context.Background())
	require.ErrorIs(t, err, ErrStudioNotInToken)
}

func TestCrashInterceptor(t *testing.T) {
	panicking := func(context.Context, connect.AnyRequest) (connect.AnyResponse, error) {
		panic("test panic")
	}

	t.Run("Panic", func(t *testing.T) {
		req := mockRequest{AnyRequest: connect.NewRequest(&struct{}{})}
		resp, err := CrashInterceptor()(panicking)(context.Background(), req)
		require.Error(t, err)
		assert.Nil(t, resp)
		assert.Contains(t, err.Error(), "panic: test panic")
		assert.Equal(t, connect.CodeInternal, connect.CodeOf(err))
	})

	t.Run("ClientSkip", func(t *testing.T) {
		req := mockRequest{AnyRequest: connect.NewRequest(&struct{}{}), isClient: true}
		assert.Panics(t, func() {
			_, _ = CrashInterceptor()(panicking)(context.Background(), req)
		})
	})
}
