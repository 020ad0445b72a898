//nolint:revive // exported
package rhealth

import (
	"context"

	"connectrpc.com/connect"

	"github.com/israelwong/zen-sub001/internal/api"
	"github.com/israelwong/zen-sub001/pkg/orderv1"
)

type Pinger interface {
	PingContext(ctx context.Context) error
}

type HealthServiceRPC struct {
	db Pinger
}

func New(db Pinger) *HealthServiceRPC {
	return &HealthServiceRPC{db: db}
}

func CreateService(srv *HealthServiceRPC, options []connect.HandlerOption) (*api.Service, error) {
	handler := connect.NewUnaryHandler(orderv1.HealthCheckProcedure, srv.HealthCheck, options...)
	return &api.Service{Path: orderv1.HealthCheckProcedure, Handler: handler}, nil
}

func (c *HealthServiceRPC) HealthCheck(ctx context.Context, _ *connect.Request[orderv1.HealthCheckRequest]) (*connect.Response[orderv1.HealthCheckResponse], error) {
	if c.db != nil {
		if err := c.db.PingContext(ctx); err != nil {
			return nil, connect.NewError(connect.CodeUnavailable, err)
		}
	}
	return connect.NewResponse(&orderv1.HealthCheckResponse{Status: "ok"}), nil
}
