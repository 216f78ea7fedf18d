package main

import (
	"context"
	"encoding/hex"
	"errors"
	"io"
	"os"

	"github.com/ipfs/go-cid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"xdao.co/ledgertx/cidutil"
	"xdao.co/ledgertx/model"
	"xdao.co/ledgertx/storage"
	"xdao.co/ledgertx/transaction"
)

// loadTx reads a serialized transaction list from a file, from stdin ("-"),
// or from the transaction store when ref is a CID.
func (a *app) loadTx(ctx context.Context, ref string) (*transaction.Transaction, error) {
	var b []byte
	var err error
	switch {
	case ref == "-":
		b, err = io.ReadAll(a.in)
	case fileExists(ref):
		b, err = os.ReadFile(ref)
	default:
		id, cerr := cid.Decode(ref)
		if cerr != nil {
			return nil, usagef("%q is neither a file nor a CID", ref)
		}
		s, closeFn, serr := a.openStore()
		if serr != nil {
			return nil, serr
		}
		defer closeFn()
		return storage.GetTransaction(ctx, s, id)
	}
	if err != nil {
		return nil, err
	}
	return transaction.FromBytes(b)
}

func fileExists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && !st.IsDir()
}

// emit writes the serialized transaction to out and/or the store.
func (a *app) emit(ctx context.Context, tx *transaction.Transaction, out string, save bool) error {
	b, err := tx.ToBytes()
	if err != nil {
		return err
	}
	switch out {
	case "":
	case "-":
		if _, err := a.out.Write(b); err != nil {
			return err
		}
	default:
		if err := os.WriteFile(out, b, 0o644); err != nil {
			return err
		}
	}
	if !save {
		return nil
	}
	s, closeFn, err := a.openStore()
	if err != nil {
		return err
	}
	defer closeFn()
	id, err := storage.PutTransactionBytes(ctx, s, b)
	if err != nil {
		return err
	}
	a.log.Info("stored transaction", zap.Stringer("cid", id))
	return a.printJSON(map[string]string{"cid": id.String()})
}

func (a *app) signCmd() *cobra.Command {
	var (
		keyNames []string
		out      string
		save     bool
	)
	cmd := &cobra.Command{
		Use:   "sign <file|cid|->",
		Short: "Add signatures to a frozen transaction",
		Long: "Add signatures to a frozen transaction.\n\n" +
			"Every signer signs every node's and chunk's body. Signing twice with the same\n" +
			"key is a no-op. The result is written with --out and/or stored with --save.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(keyNames) == 0 {
				return usagef("missing --key")
			}
			if out == "" && !save {
				return usagef("nothing to do: pass --out or --save")
			}
			ctx, cancel := a.deadline(cmd)
			defer cancel()

			tx, err := a.loadTx(ctx, args[0])
			if err != nil {
				return err
			}
			if !tx.IsFrozen() {
				return model.NewError(model.KindConfig, "transaction is not frozen; rebuild it with --node and --tx-id")
			}
			signers, err := a.loadKeys(keyNames)
			if err != nil {
				return err
			}
			signAll(tx, signers)
			return a.emit(ctx, tx, out, save)
		},
	}
	cmd.Flags().StringSliceVar(&keyNames, "key", nil, "key store keys to sign with")
	cmd.Flags().StringVar(&out, "out", "", `write the signed bytes to a file ("-" for stdout)`)
	cmd.Flags().BoolVar(&save, "save", false, "put the signed bytes in the transaction store")
	return cmd
}

type chunkView struct {
	TransactionID string            `json:"transaction_id"`
	Hashes        map[string]string `json:"hashes"`
}

type inspectView struct {
	CID           string      `json:"cid"`
	Kind          string      `json:"kind"`
	Frozen        bool        `json:"frozen"`
	TransactionID string      `json:"transaction_id,omitempty"`
	Nodes         []string    `json:"nodes,omitempty"`
	Memo          string      `json:"memo,omitempty"`
	MaxFee        string      `json:"max_fee,omitempty"`
	Signers       []string    `json:"signers"`
	Chunks        []chunkView `json:"chunks,omitempty"`
}

func inspect(tx *transaction.Transaction) (inspectView, error) {
	b, err := tx.ToBytes()
	if err != nil {
		return inspectView{}, err
	}
	v := inspectView{
		CID:     cidutil.CIDv1RawSHA256(b),
		Kind:    tx.Payload().Kind(),
		Frozen:  tx.IsFrozen(),
		Memo:    tx.Memo(),
		Signers: []string{},
	}
	if id := tx.TransactionID(); id != nil {
		v.TransactionID = id.String()
	}
	for _, n := range tx.NodeAccountIDs() {
		v.Nodes = append(v.Nodes, n.String())
	}
	if fee := tx.MaxTransactionFee(); fee != nil {
		v.MaxFee = fee.String()
	}
	src := tx.Sources()
	if src == nil {
		return v, nil
	}
	for _, p := range src.Signers() {
		v.Signers = append(v.Signers, hex.EncodeToString(p))
	}
	for _, chunk := range src.Chunks() {
		cv := chunkView{Hashes: make(map[string]string, len(chunk.Hashes))}
		if chunk.TransactionID != nil {
			cv.TransactionID = chunk.TransactionID.String()
		}
		for i, h := range chunk.Hashes {
			cv.Hashes[chunk.NodeAccountIDs[i].String()] = h.String()
		}
		v.Chunks = append(v.Chunks, cv)
	}
	return v, nil
}

func (a *app) inspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <file|cid|->",
		Short: "Describe a serialized transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.deadline(cmd)
			defer cancel()
			tx, err := a.loadTx(ctx, args[0])
			if err != nil {
				return err
			}
			v, err := inspect(tx)
			if err != nil {
				return err
			}
			return a.printJSON(v)
		},
	}
}

func (a *app) submitCmd() *cobra.Command {
	var (
		keyNames  []string
		noReceipt bool
	)
	cmd := &cobra.Command{
		Use:   "submit <file|cid|->",
		Short: "Submit a serialized transaction",
		Long: "Submit a serialized transaction.\n\n" +
			"A frozen transaction is sent exactly as signed; its transaction id is never\n" +
			"regenerated, so it fails with TransactionExpired once its window has passed.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.deadline(cmd)
			defer cancel()
			tx, err := a.loadTx(ctx, args[0])
			if err != nil {
				return err
			}
			signers, err := a.loadKeys(keyNames)
			if err != nil {
				return err
			}
			cl, err := a.openClient()
			if err != nil {
				return err
			}
			defer cl.Close()
			if len(signers) > 0 {
				if err := tx.FreezeWith(cl); err != nil {
					return err
				}
				signAll(tx, signers)
			}
			return a.submit(ctx, cl, tx, !noReceipt)
		},
	}
	cmd.Flags().StringSliceVar(&keyNames, "sign-with", nil, "key store keys to sign with before submitting")
	cmd.Flags().BoolVar(&noReceipt, "no-receipt", false, "do not wait for the receipt")
	return cmd
}

func (a *app) costCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cost <file|cid|->",
		Short: "Ask a node what a serialized transaction would cost",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.deadline(cmd)
			defer cancel()
			tx, err := a.loadTx(ctx, args[0])
			if err != nil {
				return err
			}
			cl, err := a.openClient()
			if err != nil {
				return err
			}
			defer cl.Close()
			cost, err := tx.GetCost(ctx, cl)
			if err != nil {
				return err
			}
			return a.printJSON(map[string]any{"tinybars": cost.Tinybars(), "cost": cost.String()})
		},
	}
}

func (a *app) receiptCmd() *cobra.Command {
	var (
		nodes    []string
		validate bool
	)
	cmd := &cobra.Command{
		Use:   "receipt <transaction-id>",
		Short: "Wait for a transaction's receipt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := model.ParseTransactionID(args[0])
			if err != nil {
				return usagef("transaction id: %v", err)
			}
			q := transaction.NewReceiptQuery(id)
			q.ValidateStatus = validate
			if len(nodes) > 0 {
				if q.NodeAccountIDs, err = parseAccounts(nodes); err != nil {
					return usagef("--node: %v", err)
				}
			}
			cl, err := a.openClient()
			if err != nil {
				return err
			}
			defer cl.Close()
			ctx, cancel := a.deadline(cmd)
			defer cancel()

			receipt, err := q.Execute(ctx, cl)
			var rse *model.ReceiptStatusError
			if errors.As(err, &rse) {
				_ = a.printJSON(receiptView{Status: rse.Status.String(), TransactionID: id.String()})
			}
			if err != nil {
				return err
			}
			return a.printJSON(viewReceipt(receipt))
		},
	}
	cmd.Flags().StringSliceVar(&nodes, "node", nil, "nodes to ask (default: all)")
	cmd.Flags().BoolVar(&validate, "validate", true, "fail unless the status is Success")
	return cmd
}
