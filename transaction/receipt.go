package transaction

import (
	"context"

	"google.golang.org/grpc"

	"xdao.co/ledgertx/execute"
	"xdao.co/ledgertx/model"
	"xdao.co/ledgertx/nodegrpc"
	"xdao.co/ledgertx/wire"
)

// Receipt is the consensus outcome of a transaction.
type Receipt struct {
	Status              model.Status
	TransactionID       model.TransactionID
	FileID              *model.EntityID
	TopicID             *model.EntityID
	TopicSequenceNumber uint64
	TopicRunningHash    []byte
	ScheduleID          *model.EntityID
}

// ReceiptQuery fetches a receipt, retrying while consensus has not been
// reached yet.
type ReceiptQuery struct {
	TransactionID model.TransactionID
	// NodeAccountIDs are the nodes to ask. Empty means the network's nodes.
	NodeAccountIDs []model.AccountID
	// ValidateStatus turns a final status other than Success into a
	// *model.ReceiptStatusError.
	ValidateStatus bool
}

func NewReceiptQuery(id model.TransactionID) *ReceiptQuery {
	return &ReceiptQuery{TransactionID: id}
}

// Execute polls until the receipt is final.
func (q *ReceiptQuery) Execute(ctx context.Context, network Network) (*Receipt, error) {
	return execute.Execute[*wire.Query, *wire.Response, *Receipt](ctx, network, receiptRequest{q}, network.ExecuteOptions())
}

// receiptRequest adapts a ReceiptQuery to execute.Executable. Receipt
// queries are free, so no transaction id is bound and none is regenerated.
type receiptRequest struct{ q *ReceiptQuery }

func (r receiptRequest) Method() string                      { return nodegrpc.MethodGetTransactionReceipts }
func (r receiptRequest) NodeAccountIDs() []model.AccountID   { return r.q.NodeAccountIDs }
func (r receiptRequest) TransactionID() *model.TransactionID { return nil }
func (r receiptRequest) OperatorAccountID() *model.AccountID { return nil }
func (r receiptRequest) RegenerateTransactionID() *bool      { return new(bool) }
func (r receiptRequest) Status(resp *wire.Response) model.Status {
	return model.Status(resp.PrecheckCode)
}

func (r receiptRequest) MakeRequest(*model.TransactionID, model.AccountID) (*wire.Query, *model.TransactionHash, error) {
	return &wire.Query{TransactionID: wire.FromTransactionID(r.q.TransactionID)}, nil, nil
}

func (r receiptRequest) Send(ctx context.Context, ch grpc.ClientConnInterface, req *wire.Query) (*wire.Response, error) {
	return nodegrpc.GetTransactionReceipt(ctx, ch, req)
}

// ShouldRetry keeps polling while the node does not know the transaction
// yet or consensus has not produced a final status.
func (r receiptRequest) ShouldRetry(resp *wire.Response) bool {
	switch model.Status(resp.PrecheckCode) {
	case model.StatusBusy, model.StatusUnknown, model.StatusReceiptNotFound, model.StatusPlatformNotActive:
		return true
	case model.StatusOK:
	default:
		return false
	}
	if resp.Receipt == nil {
		return true
	}
	switch model.Status(resp.Receipt.Status) {
	case model.StatusUnknown, model.StatusBusy, model.StatusOK, model.StatusReceiptNotFound:
		return true
	}
	return false
}

func (r receiptRequest) MakeResponse(resp *wire.Response, _ execute.Outcome) (*Receipt, error) {
	w := resp.Receipt
	receipt := &Receipt{
		Status:              model.Status(w.Status),
		TransactionID:       r.q.TransactionID,
		TopicSequenceNumber: w.TopicSequenceNumber,
		TopicRunningHash:    w.TopicRunningHash,
	}
	if w.FileID != nil {
		id := w.FileID.Model()
		receipt.FileID = &id
	}
	if w.TopicID != nil {
		id := w.TopicID.Model()
		receipt.TopicID = &id
	}
	if w.ScheduleID != nil {
		id := w.ScheduleID.Model()
		receipt.ScheduleID = &id
	}
	if r.q.ValidateStatus && receipt.Status != model.StatusSuccess {
		id := r.q.TransactionID
		return receipt, &model.ReceiptStatusError{Status: receipt.Status, TransactionID: &id}
	}
	return receipt, nil
}

func (r receiptRequest) MakeError(status model.Status, _ *model.TransactionID, resp *wire.Response) error {
	return precheckError(status, &r.q.TransactionID, resp.Cost)
}
