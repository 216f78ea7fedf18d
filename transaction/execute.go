package transaction

import (
	"context"
	"fmt"
	"slices"

	"google.golang.org/grpc"

	"xdao.co/ledgertx/execute"
	"xdao.co/ledgertx/model"
	"xdao.co/ledgertx/nodegrpc"
	"xdao.co/ledgertx/wire"
)

// Response identifies a transaction a node accepted. Acceptance is not
// consensus: use GetReceipt for the outcome.
type Response struct {
	NodeID        model.AccountID
	TransactionID model.TransactionID
	Hash          model.TransactionHash
	// Attempts is how many requests it took, including the accepted one.
	Attempts int
	// ValidateStatus makes GetReceipt fail on any status but Success.
	ValidateStatus bool
}

// ReceiptQuery asks the node that accepted the transaction for its receipt.
func (r *Response) ReceiptQuery() *ReceiptQuery {
	q := NewReceiptQuery(r.TransactionID)
	q.NodeAccountIDs = []model.AccountID{r.NodeID}
	q.ValidateStatus = r.ValidateStatus
	return q
}

// GetReceipt polls for the receipt until it is final.
func (r *Response) GetReceipt(ctx context.Context, network Network) (*Receipt, error) {
	return r.ReceiptQuery().Execute(ctx, network)
}

// Execute freezes the transaction with network, signs it and submits it,
// returning the response for the first chunk. Chunked kinds submit every
// chunk; see ExecuteAll.
func (tx *Transaction) Execute(ctx context.Context, network Network) (*Response, error) {
	responses, err := tx.ExecuteAll(ctx, network)
	if err != nil {
		return nil, err
	}
	return responses[0], nil
}

// ExecuteAll submits every chunk in order and returns one response per
// chunk. Chunks after the first reuse the first chunk's transaction id as
// their initial id and never regenerate their own. When a chunk fails
// after earlier chunks were accepted the error is a
// *model.PartialChunkError and the accepted responses are returned too.
func (tx *Transaction) ExecuteAll(ctx context.Context, network Network) ([]*Response, error) {
	if err := tx.FreezeWith(network); err != nil {
		return nil, err
	}
	opts := network.ExecuteOptions()
	snap := tx.snapshot()
	wait := false
	if cd := chunkDataOf(snap.payload); cd != nil {
		wait = cd.WaitForReceipt
	}

	if src := tx.signedSources(); src != nil {
		return executeSources(ctx, network, opts, snap.payload.rpcMethod(), src, wait)
	}

	total := snap.chunkTotal()
	responses := make([]*Response, 0, total)
	var initial *model.TransactionID
	for k := 0; k < total; k++ {
		sub := &submission{snap: snap, chunk: k, total: total}
		if k == 0 {
			sub.transactionID = snap.transactionID
			sub.regenerate = snap.regenerate
		} else {
			id := initial.ChunkTransactionID(k)
			sub.transactionID = &id
			sub.initial = initial
			sub.regenerate = new(bool)
		}

		resp, err := execute.Execute[*wire.Transaction, *wire.TransactionResponse, *Response](ctx, network, sub, opts)
		if err != nil {
			return responses, chunkFailure(responses, total, err)
		}
		if k == 0 {
			id := resp.TransactionID
			initial = &id
		}
		if wait {
			if _, err := resp.GetReceipt(ctx, network); err != nil {
				return responses, chunkFailure(responses, total, err)
			}
		}
		responses = append(responses, resp)
	}
	return responses, nil
}

func executeSources(ctx context.Context, network Network, opts execute.Options, method string, src *Sources, wait bool) ([]*Response, error) {
	chunks := src.Chunks()
	responses := make([]*Response, 0, len(chunks))
	for _, chunk := range chunks {
		sub := &sourceSubmission{method: method, chunk: chunk}
		resp, err := execute.Execute[*wire.Transaction, *wire.TransactionResponse, *Response](ctx, network, sub, opts)
		if err != nil {
			return responses, chunkFailure(responses, len(chunks), err)
		}
		if wait {
			if _, err := resp.GetReceipt(ctx, network); err != nil {
				return responses, chunkFailure(responses, len(chunks), err)
			}
		}
		responses = append(responses, resp)
	}
	return responses, nil
}

func chunkFailure(accepted []*Response, total int, err error) error {
	if len(accepted) == 0 {
		return err
	}
	done := make([]any, len(accepted))
	for i, r := range accepted {
		done[i] = r
	}
	return &model.PartialChunkError{Completed: len(accepted), Total: total, Responses: done, Cause: err}
}

func precheckError(status model.Status, txID *model.TransactionID, cost uint64) error {
	e := &model.PrecheckError{Status: status}
	if txID != nil {
		id := *txID
		e.TransactionID = &id
	}
	if cost != 0 {
		c := model.HbarFromTinybars(int64(cost))
		e.Cost = &c
	}
	return e
}

// submission executes one chunk of a frozen body, encoding and signing it
// afresh for each node and transaction id.
type submission struct {
	snap          *snapshot
	chunk, total  int
	transactionID *model.TransactionID
	// initial is nil for the first chunk, whose own id is the initial id.
	initial    *model.TransactionID
	regenerate *bool
}

func (s *submission) Method() string                      { return s.snap.payload.rpcMethod() }
func (s *submission) NodeAccountIDs() []model.AccountID   { return s.snap.nodes }
func (s *submission) TransactionID() *model.TransactionID { return s.transactionID }
func (s *submission) RegenerateTransactionID() *bool      { return s.regenerate }
func (s *submission) Status(r *wire.TransactionResponse) model.Status {
	return model.Status(r.NodeTransactionPrecheckCode)
}

func (s *submission) OperatorAccountID() *model.AccountID {
	if s.snap.operator == nil {
		return nil
	}
	id := s.snap.operator.AccountID
	return &id
}

func (s *submission) MakeRequest(txID *model.TransactionID, node model.AccountID) (*wire.Transaction, *model.TransactionHash, error) {
	if txID == nil {
		return nil, nil, model.ErrNoPayerAccountOrTransactionID
	}
	initial := *txID
	if s.initial != nil {
		initial = *s.initial
	}
	chunk := ChunkInfo{
		Current:              s.chunk,
		Total:                s.total,
		InitialTransactionID: initial,
		CurrentTransactionID: *txID,
		NodeAccountID:        &node,
	}
	env, hash, err := s.snap.envelope(chunk, true)
	if err != nil {
		return nil, nil, err
	}
	return &env, &hash, nil
}

func (s *submission) Send(ctx context.Context, ch grpc.ClientConnInterface, req *wire.Transaction) (*wire.TransactionResponse, error) {
	return nodegrpc.SubmitTransaction(ctx, ch, s.Method(), req)
}

func (s *submission) MakeResponse(_ *wire.TransactionResponse, out execute.Outcome) (*Response, error) {
	return newResponse(out), nil
}

func (s *submission) MakeError(status model.Status, txID *model.TransactionID, resp *wire.TransactionResponse) error {
	return precheckError(status, txID, resp.Cost)
}

func newResponse(out execute.Outcome) *Response {
	r := &Response{NodeID: out.NodeID, Attempts: out.Attempts, ValidateStatus: true}
	if out.TransactionID != nil {
		r.TransactionID = *out.TransactionID
	}
	if out.Hash != nil {
		r.Hash = *out.Hash
	}
	return r
}

// sourceSubmission sends one chunk's cached envelopes as they are.
type sourceSubmission struct {
	method string
	chunk  SourceChunk
}

func (s *sourceSubmission) Method() string                      { return s.method }
func (s *sourceSubmission) NodeAccountIDs() []model.AccountID   { return s.chunk.NodeAccountIDs }
func (s *sourceSubmission) TransactionID() *model.TransactionID { return s.chunk.TransactionID }
func (s *sourceSubmission) OperatorAccountID() *model.AccountID { return nil }

// RegenerateTransactionID is always false: the signed bytes are fixed.
func (s *sourceSubmission) RegenerateTransactionID() *bool { return new(bool) }

func (s *sourceSubmission) Status(r *wire.TransactionResponse) model.Status {
	return model.Status(r.NodeTransactionPrecheckCode)
}

func (s *sourceSubmission) MakeRequest(_ *model.TransactionID, node model.AccountID) (*wire.Transaction, *model.TransactionHash, error) {
	i := slices.IndexFunc(s.chunk.NodeAccountIDs, node.Equal)
	if i < 0 {
		return nil, nil, model.NewError(model.KindConfig, fmt.Sprintf("no signed envelope for node %s", node))
	}
	return &s.chunk.Transactions[i], &s.chunk.Hashes[i], nil
}

func (s *sourceSubmission) Send(ctx context.Context, ch grpc.ClientConnInterface, req *wire.Transaction) (*wire.TransactionResponse, error) {
	return nodegrpc.SubmitTransaction(ctx, ch, s.method, req)
}

func (s *sourceSubmission) MakeResponse(_ *wire.TransactionResponse, out execute.Outcome) (*Response, error) {
	return newResponse(out), nil
}

func (s *sourceSubmission) MakeError(status model.Status, txID *model.TransactionID, resp *wire.TransactionResponse) error {
	return precheckError(status, txID, resp.Cost)
}
