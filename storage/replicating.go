package storage

import (
	"context"
	"fmt"

	"github.com/ipfs/go-cid"

	"xdao.co/ledgertx/cidutil"
)

// NamedStore associates a Store with a stable backend name for reporting.
type NamedStore struct {
	Name  string
	Store Store
}

// Replicating writes to every backend and reads them in order.
//
// Writes require every backend to return the CID computed from the bytes;
// otherwise ErrCIDMismatch is returned. Use PutAll for the per-backend
// results.
type Replicating struct {
	Backends []NamedStore
}

var _ Store = Replicating{}

// PutAll writes data to all backends and returns the canonical CID together
// with the CID each backend reported.
func (r Replicating) PutAll(ctx context.Context, data []byte) (cid.Cid, map[string]cid.Cid, error) {
	want, err := cidutil.CIDv1RawSHA256CID(data)
	if err != nil {
		return cid.Undef, nil, err
	}
	if len(r.Backends) == 0 {
		return cid.Undef, nil, ErrNoBackends
	}

	out := make(map[string]cid.Cid, len(r.Backends))
	for _, b := range r.Backends {
		if b.Store == nil {
			return cid.Undef, nil, fmt.Errorf("storage: nil store for backend %q", b.Name)
		}
		got, err := b.Store.Put(ctx, data)
		if err != nil {
			return cid.Undef, out, fmt.Errorf("storage: backend %q: %w", b.Name, err)
		}
		out[b.Name] = got
		if got != want {
			return cid.Undef, out, ErrCIDMismatch
		}
	}
	return want, out, nil
}

func (r Replicating) Put(ctx context.Context, data []byte) (cid.Cid, error) {
	id, _, err := r.PutAll(ctx, data)
	return id, err
}

func (r Replicating) Get(ctx context.Context, id cid.Cid) ([]byte, error) {
	stores := make([]Store, 0, len(r.Backends))
	for _, b := range r.Backends {
		if b.Store != nil {
			stores = append(stores, b.Store)
		}
	}
	return Fallback{Stores: stores}.Get(ctx, id)
}

func (r Replicating) Has(ctx context.Context, id cid.Cid) (bool, error) {
	for _, b := range r.Backends {
		if b.Store == nil {
			continue
		}
		ok, err := b.Store.Has(ctx, id)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}
