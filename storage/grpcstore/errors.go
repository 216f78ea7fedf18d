package grpcstore

import (
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"xdao.co/ledgertx/storage"
)

// mapRPC turns a TransactionStore status back into the storage sentinel the
// server mapped it from.
func mapRPC(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}

	switch st.Code() {
	case codes.NotFound:
		return storage.ErrNotFound
	case codes.DataLoss:
		return storage.ErrCIDMismatch
	case codes.AlreadyExists:
		return storage.ErrImmutable
	case codes.InvalidArgument:
		// Malformed CIDs and payloads that are not transactions share the code.
		if st.Message() == storage.ErrInvalidCID.Error() {
			return storage.ErrInvalidCID
		}
		return fmt.Errorf("%w: %s", storage.ErrNotTransaction, st.Message())
	default:
		return err
	}
}
