// Command ledgertx-node serves an in-memory ledger node over gRPC for local
// development and integration tests. It can also serve a transaction store
// for offline signing hand-offs and exposes Prometheus metrics.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"xdao.co/ledgertx/internal/logging"
	"xdao.co/ledgertx/keys"
	"xdao.co/ledgertx/model"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, out, errOut io.Writer) int {
	var (
		cfg      config
		logLevel string
		logFile  string
		keyDir   string
		payerKey []string
	)
	cmd := &cobra.Command{
		Use:           "ledgertx-node",
		Short:         "Serve a simulated ledger node",
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			log, err := logging.New(logLevel, logFile, errOut)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			if err := cfg.addKeyStorePayers(keyDir, payerKey); err != nil {
				return err
			}
			d, err := start(cfg, log)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "ledgertx-node %s listening on %s\n", d.account, d.NodeAddr())
			if addr := d.StoreAddr(); addr != "" {
				fmt.Fprintf(out, "transaction store listening on %s\n", addr)
			}
			if addr := d.MetricsAddr(); addr != "" {
				fmt.Fprintf(out, "metrics on http://%s/metrics\n", addr)
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return d.Wait(ctx)
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&cfg.Listen, "listen", "127.0.0.1:50211", "node gRPC listen address")
	fs.StringVar(&cfg.Account, "account", "0.0.3", "node account id")
	fs.StringVar(&cfg.Fee, "fee", "", `minimum transaction fee, e.g. "1" or "100000t"`)
	fs.IntVar(&cfg.ReceiptDelay, "receipt-delay", 0, "receipt queries answered Unknown before the final receipt")
	fs.StringSliceVar(&cfg.Payers, "payer", nil, "account=public-key pairs whose signatures are required")
	fs.StringSliceVar(&payerKey, "payer-key", nil, "key store keys (with recorded accounts) to register as payers")
	fs.StringVar(&keyDir, "key-dir", "", "key store directory (default ~/.ledgertx/keys)")
	fs.StringVar(&cfg.StoreListen, "store-listen", "", "serve the transaction store on this address")
	fs.StringVar(&cfg.StoreDir, "store-dir", "", "local directory backing the transaction store")
	fs.StringVar(&cfg.StoreConfig, "store-config", "", "store config JSON backing the transaction store")
	fs.StringVar(&cfg.MetricsListen, "metrics-listen", "", "serve /metrics on this address")
	fs.StringVar(&logLevel, "log-level", "info", "debug|info|warn|error")
	fs.StringVar(&logFile, "log-file", "", "write logs to a rotated file instead of stderr")

	cmd.SetArgs(args)
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(errOut, "ledgertx-node: %v\n", err)
		return 1
	}
	return 0
}

// addKeyStorePayers adds payer entries for keys saved with an account id.
func (c *config) addKeyStorePayers(dir string, names []string) error {
	if len(names) == 0 {
		return nil
	}
	ks, err := keys.OpenKeyStore(dir)
	if err != nil {
		return err
	}
	for _, name := range names {
		key, acct, err := ks.Load(name)
		if err != nil {
			return fmt.Errorf("payer key %q: %w", name, err)
		}
		if acct == nil {
			return fmt.Errorf("payer key %q has no account id", name)
		}
		c.Payers = append(c.Payers, acct.String()+"="+key.PublicKey().String())
	}
	return nil
}

func parsePayers(in []string) (map[model.AccountID]keys.PublicKey, error) {
	out := make(map[model.AccountID]keys.PublicKey, len(in))
	for _, p := range in {
		acct, pub, ok := strings.Cut(p, "=")
		if !ok {
			return nil, fmt.Errorf("payer %q: want account=public-key", p)
		}
		id, err := model.ParseAccountID(acct)
		if err != nil {
			return nil, fmt.Errorf("payer %q: %w", p, err)
		}
		key, err := keys.ParsePublicKey(pub)
		if err != nil {
			return nil, fmt.Errorf("payer %q: %w", p, err)
		}
		if _, dup := out[id]; dup {
			return nil, errors.New("duplicate payer " + id.String())
		}
		out[id] = key
	}
	return out, nil
}
