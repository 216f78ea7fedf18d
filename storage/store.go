// Package storage keeps serialized transaction lists under their content
// address so that co-signers on other machines can fetch, sign and store
// them back.
package storage

import (
	"context"

	"github.com/ipfs/go-cid"
)

// Store is a content-addressable blob store.
//
// Contract:
// - Put MUST be idempotent.
// - Stored objects MUST be immutable.
// - CIDs MUST be derived from the bytes written (cidutil.CIDv1RawSHA256CID).
// - Get MUST return ErrNotFound when the CID is absent.
type Store interface {
	Put(ctx context.Context, data []byte) (cid.Cid, error)
	Get(ctx context.Context, id cid.Cid) ([]byte, error)
	Has(ctx context.Context, id cid.Cid) (bool, error)
}
