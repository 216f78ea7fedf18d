package storage

import (
	"context"
	"fmt"

	"github.com/ipfs/go-cid"

	"xdao.co/ledgertx/transaction"
)

// PutTransaction serializes tx, with every signature collected so far, and
// stores it.
func PutTransaction(ctx context.Context, s Store, tx *transaction.Transaction) (cid.Cid, error) {
	b, err := tx.ToBytes()
	if err != nil {
		return cid.Undef, err
	}
	return s.Put(ctx, b)
}

// PutTransactionBytes stores b after checking that it decodes as a
// transaction.
func PutTransactionBytes(ctx context.Context, s Store, b []byte) (cid.Cid, error) {
	if _, err := transaction.FromBytes(b); err != nil {
		return cid.Undef, fmt.Errorf("%w: %w", ErrNotTransaction, err)
	}
	return s.Put(ctx, b)
}

// GetTransaction fetches and decodes the transaction stored under id.
func GetTransaction(ctx context.Context, s Store, id cid.Cid) (*transaction.Transaction, error) {
	b, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	tx, err := transaction.FromBytes(b)
	if err != nil {
		return nil, fmt.Errorf("%w: object %s: %w", ErrNotTransaction, id, err)
	}
	return tx, nil
}
