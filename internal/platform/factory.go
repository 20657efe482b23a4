package platform

import (
	"context"
)

// New opens a session and starts its background workers.
//
//	s, err := platform.New(ctx, platform.WithCacheDir(dir), platform.WithProtectInUse(true))
//	defer s.Close(ctx)
func New(ctx context.Context, opts ...Option) (*Session, error) {
	s, err := Open(opts...)
	if err != nil {
		return nil, err
	}
	if err := s.Start(ctx); err != nil {
		_ = s.Close(context.WithoutCancel(ctx))
		return nil, err
	}
	return s, nil
}
