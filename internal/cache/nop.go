package cache

import (
	"context"

	"github.com/emrgen/revision/internal/model"
)

var _ VersionCache = (*Nop)(nil)

// Nop is a cache that caches nothing. Every read is a miss.
type Nop struct{}

func NewNop() *Nop {
	return &Nop{}
}

func (n *Nop) GetLatest(ctx context.Context, scope model.Scope) (*model.ContentVersion, error) {
	return nil, nil
}

func (n *Nop) SetLatest(ctx context.Context, scope model.Scope, version *model.ContentVersion) error {
	return nil
}

func (n *Nop) Invalidate(ctx context.Context, scope model.Scope) error {
	return nil
}
