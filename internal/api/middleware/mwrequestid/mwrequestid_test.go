package mwrequestid_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/israelwong/zen-sub001/internal/api/middleware/mwrequestid"
)

func TestUnary_GeneratesID(t *testing.T) {
	var seen string
	i := mwrequestid.NewInterceptor(slog.New(slog.DiscardHandler))
	resp, err := i.WrapUnary(func(ctx context.Context, _ connect.AnyRequest) (connect.AnyResponse, error) {
		seen = mwrequestid.FromContext(ctx)
		return connect.NewResponse(&struct{}{}), nil
	})(context.Background(), connect.NewRequest(&struct{}{}))
	require.NoError(t, err)

	_, err = uuid.Parse(seen)
	require.NoError(t, err)
	assert.Equal(t, seen, resp.Header().Get(mwrequestid.HeaderKey))
}

func TestUnary_KeepsCallerID(t *testing.T) {
	want := uuid.NewString()
	req := connect.NewRequest(&struct{}{})
	req.Header().Set(mwrequestid.HeaderKey, want)

	i := mwrequestid.NewInterceptor(nil)
	_, err := i.WrapUnary(func(ctx context.Context, _ connect.AnyRequest) (connect.AnyResponse, error) {
		assert.Equal(t, want, mwrequestid.FromContext(ctx))
		return nil, connect.NewError(connect.CodeAborted, errors.New("conflict"))
	})(context.Background(), req)

	var cerr *connect.Error
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, want, cerr.Meta().Get(mwrequestid.HeaderKey))
}

func TestUnary_ReplacesGarbage(t *testing.T) {
	req := connect.NewRequest(&struct{}{})
	req.Header().Set(mwrequestid.HeaderKey, "<script>")

	i := mwrequestid.NewInterceptor(slog.New(slog.DiscardHandler))
	_, err := i.WrapUnary(func(ctx context.Context, _ connect.AnyRequest) (connect.AnyResponse, error) {
		assert.NotEqual(t, "<script>", mwrequestid.FromContext(ctx))
		return connect.NewResponse(&struct{}{}), nil
	})(context.Background(), req)
	require.NoError(t, err)
}
