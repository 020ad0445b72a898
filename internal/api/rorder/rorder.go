//nolint:revive // exported
package rorder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"connectrpc.com/connect"

	"github.com/israelwong/zen-sub001/internal/api"
	"github.com/israelwong/zen-sub001/internal/api/middleware/mwauth"
	"github.com/israelwong/zen-sub001/internal/api/middleware/mwrequestid"
	"github.com/israelwong/zen-sub001/pkg/eventstream"
	"github.com/israelwong/zen-sub001/pkg/idwrap"
	"github.com/israelwong/zen-sub001/pkg/model/morder"
	"github.com/israelwong/zen-sub001/pkg/movable"
	"github.com/israelwong/zen-sub001/pkg/orderv1"
	"github.com/israelwong/zen-sub001/pkg/service/sorder"
	"github.com/israelwong/zen-sub001/pkg/translate/torder"
)

type OrderServiceRPC struct {
	os     *sorder.Service
	stream sorder.Streamer
	logger *slog.Logger
}

func New(os *sorder.Service, stream sorder.Streamer, logger *slog.Logger) *OrderServiceRPC {
	if logger == nil {
		logger = slog.Default()
	}
	return &OrderServiceRPC{os: os, stream: stream, logger: logger}
}

func CreateService(srv *OrderServiceRPC, options []connect.HandlerOption) (*api.Service, error) {
	mux := http.NewServeMux()
	mux.Handle(orderv1.NormalizeProcedure, connect.NewUnaryHandler(orderv1.NormalizeProcedure, srv.Normalize, options...))
	mux.Handle(orderv1.MoveProcedure, connect.NewUnaryHandler(orderv1.MoveProcedure, srv.Move, options...))
	mux.Handle(orderv1.AppendProcedure, connect.NewUnaryHandler(orderv1.AppendProcedure, srv.Append, options...))
	mux.Handle(orderv1.DeactivateProc, connect.NewUnaryHandler(orderv1.DeactivateProc, srv.Deactivate, options...))
	mux.Handle(orderv1.ListProcedure, connect.NewUnaryHandler(orderv1.ListProcedure, srv.List, options...))
	mux.Handle(orderv1.SyncProcedure, connect.NewServerStreamHandler(orderv1.SyncProcedure, srv.Sync, options...))
	return &api.Service{Path: orderv1.OrderServicePath, Handler: mux}, nil
}

func (c *OrderServiceRPC) Normalize(ctx context.Context, req *connect.Request[orderv1.NormalizeRequest]) (*connect.Response[orderv1.NormalizeResponse], error) {
	studioID, err := mwauth.GetContextStudioID(ctx)
	if err != nil {
		return nil, connect.NewError(connect.CodeUnauthenticated, err)
	}
	scope, err := torder.DeserializeScope(req.Msg.Collection, studioID, req.Msg.ParentID)
	if err != nil {
		return nil, c.toConnect(ctx, err)
	}

	res, err := c.os.Normalize(ctx, scope)
	if err != nil {
		return nil, c.toConnect(ctx, err)
	}
	return connect.NewResponse(&orderv1.NormalizeResponse{
		Success:         res.Success,
		Message:         fmt.Sprintf("%d items normalized", res.NormalizedCount),
		NormalizedCount: res.NormalizedCount,
	}), nil
}

func (c *OrderServiceRPC) Move(ctx context.Context, req *connect.Request[orderv1.MoveRequest]) (*connect.Response[orderv1.MoveResponse], error) {
	studioID, err := mwauth.GetContextStudioID(ctx)
	if err != nil {
		return nil, connect.NewError(connect.CodeUnauthenticated, err)
	}
	collection, err := morder.ParseCollection(req.Msg.Collection)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	itemID, err := torder.DeserializeID(req.Msg.ItemID)
	if err != nil {
		return nil, c.toConnect(ctx, err)
	}

	if err := c.os.MoveItem(ctx, collection, studioID, itemID, req.Msg.NewRank); err != nil {
		return nil, c.toConnect(ctx, err)
	}
	return connect.NewResponse(&orderv1.MoveResponse{}), nil
}

func (c *OrderServiceRPC) Append(ctx context.Context, req *connect.Request[orderv1.AppendRequest]) (*connect.Response[orderv1.AppendResponse], error) {
	studioID, err := mwauth.GetContextStudioID(ctx)
	if err != nil {
		return nil, connect.NewError(connect.CodeUnauthenticated, err)
	}
	scope, err := torder.DeserializeScope(req.Msg.Collection, studioID, req.Msg.ParentID)
	if err != nil {
		return nil, c.toConnect(ctx, err)
	}

	item, err := c.os.Append(ctx, scope, req.Msg.Name)
	if err != nil {
		return nil, c.toConnect(ctx, err)
	}
	return connect.NewResponse(&orderv1.AppendResponse{Item: torder.SerializeModelToRPC(item)}), nil
}

func (c *OrderServiceRPC) Deactivate(ctx context.Context, req *connect.Request[orderv1.DeactivateRequest]) (*connect.Response[orderv1.DeactivateResponse], error) {
	studioID, err := mwauth.GetContextStudioID(ctx)
	if err != nil {
		return nil, connect.NewError(connect.CodeUnauthenticated, err)
	}
	collection, err := morder.ParseCollection(req.Msg.Collection)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	itemID, err := torder.DeserializeID(req.Msg.ItemID)
	if err != nil {
		return nil, c.toConnect(ctx, err)
	}

	res, err := c.os.Deactivate(ctx, collection, studioID, itemID)
	if err != nil {
		return nil, c.toConnect(ctx, err)
	}
	return connect.NewResponse(&orderv1.DeactivateResponse{
		Success:         res.Success,
		Message:         fmt.Sprintf("item deactivated, %d items normalized", res.NormalizedCount),
		NormalizedCount: res.NormalizedCount,
	}), nil
}

func (c *OrderServiceRPC) List(ctx context.Context, req *connect.Request[orderv1.ListRequest]) (*connect.Response[orderv1.ListResponse], error) {
	studioID, err := mwauth.GetContextStudioID(ctx)
	if err != nil {
		return nil, connect.NewError(connect.CodeUnauthenticated, err)
	}
	scope, err := torder.DeserializeScope(req.Msg.Collection, studioID, req.Msg.ParentID)
	if err != nil {
		return nil, c.toConnect(ctx, err)
	}

	items, err := c.os.List(ctx, scope, req.Msg.Query)
	if err != nil {
		return nil, c.toConnect(ctx, err)
	}
	return connect.NewResponse(&orderv1.ListResponse{Items: torder.SerializeModelsToRPC(items)}), nil
}

func (c *OrderServiceRPC) Sync(ctx context.Context, req *connect.Request[orderv1.SyncRequest], stream *connect.ServerStream[orderv1.SyncResponse]) error {
	studioID, err := mwauth.GetContextStudioID(ctx)
	if err != nil {
		return connect.NewError(connect.CodeUnauthenticated, err)
	}
	var only morder.Collection
	if req.Msg.Collection != "" {
		if only, err = morder.ParseCollection(req.Msg.Collection); err != nil {
			return connect.NewError(connect.CodeInvalidArgument, err)
		}
	}
	return c.streamSync(ctx, studioID, only, stream)
}

func (c *OrderServiceRPC) streamSync(ctx context.Context, studioID idwrap.IDWrap, only morder.Collection, stream api.ServerStreamAdHoc[orderv1.SyncResponse]) error {
	if c.stream == nil {
		return connect.NewError(connect.CodeUnimplemented, errors.New("sync is disabled"))
	}
	filter := func(topic sorder.Topic) bool {
		if topic.StudioID != studioID {
			return false
		}
		return only == "" || topic.Collection == only
	}
	convert := func(evt eventstream.Event[sorder.Topic, sorder.ChangeEvent]) *orderv1.SyncResponse {
		return torder.SerializeEvent(evt.Payload)
	}
	err := eventstream.Forward(ctx, c.stream, filter, convert, stream.Send)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

// toConnect maps service failures to Connect codes. Persistence failures are
// logged and reported without their cause.
func (c *OrderServiceRPC) toConnect(ctx context.Context, err error) error {
	switch movable.KindOf(err) {
	case movable.KindValidation:
		return connect.NewError(connect.CodeInvalidArgument, err)
	case movable.KindNotFound:
		return connect.NewError(connect.CodeNotFound, err)
	case movable.KindConflict:
		c.logger.WarnContext(ctx, "ordering conflict", "request_id", mwrequestid.FromContext(ctx), "error", err)
		return connect.NewError(connect.CodeAborted, errors.New("the list was modified concurrently, reload and try again"))
	default:
		c.logger.ErrorContext(ctx, "ordering failed", "request_id", mwrequestid.FromContext(ctx), "error", err)
		return connect.NewError(connect.CodeInternal, errors.New("internal error"))
	}
}
