package sorder

import (
	"context"

	"github.com/israelwong/zen-sub001/pkg/model/morder"
)

func (s *Service) SetAfterRead(fn func(ctx context.Context, scope morder.Scope)) {
	s.afterRead = fn
}
