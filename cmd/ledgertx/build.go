package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"xdao.co/ledgertx/client"
	"xdao.co/ledgertx/keys"
	"xdao.co/ledgertx/model"
	"xdao.co/ledgertx/transaction"
)

// txFlags are shared by every command that builds a new transaction.
type txFlags struct {
	memo          string
	maxFee        string
	validDuration time.Duration
	nodes         []string
	txID          string
	signWith      []string
	out           string
	save          bool
	schedule      bool
	noReceipt     bool
}

func (f *txFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.memo, "memo", "", "transaction memo")
	fs.StringVar(&f.maxFee, "max-fee", "", `fee ceiling, e.g. "2" or "500t"`)
	fs.DurationVar(&f.validDuration, "valid-duration", 0, "validity window (default from config)")
	fs.StringSliceVar(&f.nodes, "node", nil, "node account ids to target (default: sampled)")
	fs.StringVar(&f.txID, "tx-id", "", "explicit transaction id payer@seconds.nanos")
	fs.StringSliceVar(&f.signWith, "sign-with", nil, "additional key store keys to sign with")
	fs.StringVar(&f.out, "out", "", `write the signed bytes to a file ("-" for stdout) instead of submitting`)
	fs.BoolVar(&f.save, "save", false, "put the signed bytes in the transaction store instead of submitting")
	fs.BoolVar(&f.schedule, "schedule", false, "wrap the transaction in a ScheduleCreate")
	fs.BoolVar(&f.noReceipt, "no-receipt", false, "do not wait for the receipt")
}

func (f *txFlags) offline() bool { return f.out != "" || f.save }

func (f *txFlags) apply(tx *transaction.Transaction) (*transaction.Transaction, error) {
	if f.memo != "" {
		tx.SetMemo(f.memo)
	}
	if f.maxFee != "" {
		fee, err := model.ParseHbar(f.maxFee)
		if err != nil {
			return nil, usagef("--max-fee: %v", err)
		}
		tx.SetMaxTransactionFee(fee)
	}
	if f.validDuration > 0 {
		tx.SetValidDuration(f.validDuration)
	}
	if len(f.nodes) > 0 {
		nodes, err := parseAccounts(f.nodes)
		if err != nil {
			return nil, usagef("--node: %v", err)
		}
		tx.SetNodeAccountIDs(nodes)
	}
	if f.txID != "" {
		id, err := model.ParseTransactionID(f.txID)
		if err != nil {
			return nil, usagef("--tx-id: %v", err)
		}
		tx.SetTransactionID(id)
	}
	if f.schedule {
		return tx.Schedule()
	}
	return tx, nil
}

func parseAccounts(in []string) ([]model.AccountID, error) {
	out := make([]model.AccountID, 0, len(in))
	for _, s := range in {
		id, err := model.ParseAccountID(s)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}

// finish signs tx and either submits it or hands it off offline.
func (a *app) finish(cmd *cobra.Command, tx *transaction.Transaction, f *txFlags) error {
	tx, err := f.apply(tx)
	if err != nil {
		return err
	}
	signers, err := a.loadKeys(f.signWith)
	if err != nil {
		return err
	}
	cl, err := a.openClient()
	if err != nil {
		return err
	}
	defer cl.Close()

	ctx, cancel := a.deadline(cmd)
	defer cancel()

	if f.offline() {
		if err := tx.SignWithOperator(cl); err != nil {
			return err
		}
		signAll(tx, signers)
		return a.emit(ctx, tx, f.out, f.save)
	}
	if len(signers) > 0 {
		if err := tx.FreezeWith(cl); err != nil {
			return err
		}
		signAll(tx, signers)
	}
	return a.submit(ctx, cl, tx, !f.noReceipt)
}

func signAll(tx *transaction.Transaction, signers []keys.PrivateKey) {
	for _, k := range signers {
		tx.Sign(k)
	}
}

type responseView struct {
	Node          string `json:"node"`
	TransactionID string `json:"transaction_id"`
	Hash          string `json:"hash"`
	Attempts      int    `json:"attempts"`
}

type receiptView struct {
	Status              string `json:"status"`
	TransactionID       string `json:"transaction_id"`
	FileID              string `json:"file_id,omitempty"`
	TopicID             string `json:"topic_id,omitempty"`
	TopicSequenceNumber uint64 `json:"topic_sequence_number,omitempty"`
	ScheduleID          string `json:"schedule_id,omitempty"`
}

type submitView struct {
	Responses []responseView `json:"responses"`
	Receipt   *receiptView   `json:"receipt,omitempty"`
}

func viewResponse(r *transaction.Response) responseView {
	return responseView{
		Node:          r.NodeID.String(),
		TransactionID: r.TransactionID.String(),
		Hash:          r.Hash.String(),
		Attempts:      r.Attempts,
	}
}

func viewReceipt(r *transaction.Receipt) *receiptView {
	v := &receiptView{
		Status:              r.Status.String(),
		TransactionID:       r.TransactionID.String(),
		TopicSequenceNumber: r.TopicSequenceNumber,
	}
	if r.FileID != nil {
		v.FileID = r.FileID.String()
	}
	if r.TopicID != nil {
		v.TopicID = r.TopicID.String()
	}
	if r.ScheduleID != nil {
		v.ScheduleID = r.ScheduleID.String()
	}
	return v
}

// submit executes every chunk and, unless told otherwise, waits for the
// last chunk's receipt.
func (a *app) submit(ctx context.Context, cl *client.Client, tx *transaction.Transaction, wait bool) error {
	responses, err := tx.ExecuteAll(ctx, cl)
	view := submitView{}
	for _, r := range responses {
		view.Responses = append(view.Responses, viewResponse(r))
	}
	if err != nil {
		var partial *model.PartialChunkError
		if errors.As(err, &partial) {
			a.log.Warn("chunked submission stopped early",
				zap.Int("completed", partial.Completed), zap.Int("total", partial.Total))
			_ = a.printJSON(view)
		}
		return err
	}
	if wait && len(responses) > 0 {
		last := responses[len(responses)-1]
		last.ValidateStatus = true
		receipt, err := last.GetReceipt(ctx, cl)
		if err != nil {
			return err
		}
		view.Receipt = viewReceipt(receipt)
	}
	return a.printJSON(view)
}

func (a *app) transferCmd() *cobra.Command {
	var f txFlags
	cmd := &cobra.Command{
		Use:   "transfer <account>=<amount>...",
		Short: "Move hbar between accounts; amounts must sum to zero",
		Example: "  ledgertx transfer 0.0.1001=-10 0.0.1002=10\n" +
			"  ledgertx transfer 0.0.1001=-500t 0.0.1002=500t --save",
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			transfers := make([]transaction.HbarTransfer, 0, len(args))
			var sum model.Hbar
			for _, arg := range args {
				acct, amount, ok := strings.Cut(arg, "=")
				if !ok {
					return usagef("transfer %q: want <account>=<amount>", arg)
				}
				id, err := model.ParseAccountID(acct)
				if err != nil {
					return usagef("transfer %q: %v", arg, err)
				}
				h, err := model.ParseHbar(amount)
				if err != nil {
					return usagef("transfer %q: %v", arg, err)
				}
				sum += h
				transfers = append(transfers, transaction.HbarTransfer{AccountID: id, Amount: h})
			}
			if sum != 0 {
				return usagef("transfers sum to %s, want 0", sum)
			}
			return a.finish(cmd, transaction.NewTransfer(transfers...), &f)
		},
	}
	f.register(cmd)
	return cmd
}

// readPayload returns --message text, or the contents of --file ("-" for stdin).
func (a *app) readPayload(message, path string) ([]byte, error) {
	switch {
	case message != "" && path != "":
		return nil, usagef("pass either --message or --file, not both")
	case message != "":
		return []byte(message), nil
	case path == "-":
		return io.ReadAll(a.in)
	case path != "":
		return os.ReadFile(path)
	default:
		return nil, usagef("missing --message or --file")
	}
}

func (a *app) topicCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "topic", Short: "Consensus topic transactions"}

	var (
		f         txFlags
		message   string
		file      string
		chunkSize int
		maxChunks int
	)
	submit := &cobra.Command{
		Use:   "submit <topic-id>",
		Short: "Submit a message, split into chunks when large",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			topic, err := model.ParseEntityID(args[0])
			if err != nil {
				return usagef("topic id: %v", err)
			}
			data, err := a.readPayload(message, file)
			if err != nil {
				return err
			}
			tx := transaction.NewTopicMessageSubmit(topic, data)
			if chunkSize > 0 {
				tx.SetChunkSize(chunkSize)
			}
			if maxChunks > 0 {
				tx.SetMaxChunks(maxChunks)
			}
			return a.finish(cmd, tx, &f)
		},
	}
	submit.Flags().StringVar(&message, "message", "", "message text")
	submit.Flags().StringVar(&file, "file", "", `read the message from a file ("-" for stdin)`)
	submit.Flags().IntVar(&chunkSize, "chunk-size", 0, fmt.Sprintf("bytes per chunk (default %d)", transaction.DefaultTopicChunkSize))
	submit.Flags().IntVar(&maxChunks, "max-chunks", 0, fmt.Sprintf("chunk limit (default %d)", transaction.DefaultTopicMaxChunks))
	f.register(submit)

	cmd.AddCommand(submit)
	return cmd
}

func (a *app) fileCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "file", Short: "File service transactions"}

	var (
		f       txFlags
		message string
		path    string
	)
	appendCmd := &cobra.Command{
		Use:   "append <file-id>",
		Short: "Append contents to a file, one receipt-confirmed chunk at a time",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := model.ParseEntityID(args[0])
			if err != nil {
				return usagef("file id: %v", err)
			}
			data, err := a.readPayload(message, path)
			if err != nil {
				return err
			}
			return a.finish(cmd, transaction.NewFileAppend(id, data), &f)
		},
	}
	appendCmd.Flags().StringVar(&message, "message", "", "contents as text")
	appendCmd.Flags().StringVar(&path, "file", "", `read contents from a file ("-" for stdin)`)
	f.register(appendCmd)

	cmd.AddCommand(appendCmd)
	return cmd
}

func (a *app) prngCmd() *cobra.Command {
	var (
		f      txFlags
		rangeN int32
	)
	cmd := &cobra.Command{
		Use:   "prng",
		Short: "Ask the network for a pseudorandom number",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if rangeN < 0 {
				return usagef("--range must not be negative")
			}
			return a.finish(cmd, transaction.NewPrng(rangeN), &f)
		},
	}
	cmd.Flags().Int32Var(&rangeN, "range", 0, "upper bound (exclusive); 0 returns 384 random bits")
	f.register(cmd)
	return cmd
}
