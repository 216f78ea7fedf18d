package storage

import (
	"context"

	"github.com/ipfs/go-cid"
)

// Fallback reads from several stores in a fixed order.
//
// Lookup order is the slice order; callers MUST supply a fixed order.
// Put writes only to the first store.
type Fallback struct {
	Stores []Store
}

var _ Store = Fallback{}

func (m Fallback) Put(ctx context.Context, data []byte) (cid.Cid, error) {
	if len(m.Stores) == 0 {
		return cid.Undef, ErrNoBackends
	}
	return m.Stores[0].Put(ctx, data)
}

// Get returns the first copy found. Errors other than ErrNotFound stop the
// lookup.
func (m Fallback) Get(ctx context.Context, id cid.Cid) ([]byte, error) {
	for _, s := range m.Stores {
		b, err := s.Get(ctx, id)
		if err == nil {
			return b, nil
		}
		if IsNotFound(err) {
			continue
		}
		return nil, err
	}
	return nil, ErrNotFound
}

func (m Fallback) Has(ctx context.Context, id cid.Cid) (bool, error) {
	for _, s := range m.Stores {
		ok, err := s.Has(ctx, id)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}
