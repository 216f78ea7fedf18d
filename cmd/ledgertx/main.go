// Command ledgertx builds, signs, stores and submits ledger transactions.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"xdao.co/ledgertx/client"
	"xdao.co/ledgertx/execute"
	"xdao.co/ledgertx/internal/logging"
	"xdao.co/ledgertx/keys"
	"xdao.co/ledgertx/storage"
	"xdao.co/ledgertx/storage/localfs"
	"xdao.co/ledgertx/storage/storeconfig"
	"xdao.co/ledgertx/transaction"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// usageError marks bad invocations; they exit with status 2.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func usagef(format string, args ...any) error {
	return usageError{fmt.Errorf(format, args...)}
}

type app struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer

	configPath  string
	keyDir      string
	storeConfig string
	storeDir    string
	logFile     string
	logLevel    string
	timeout     time.Duration
	metricsFile string

	log     *zap.Logger
	reg     *prometheus.Registry
	metrics *execute.Metrics
}

func run(args []string, in io.Reader, out, errOut io.Writer) int {
	a := &app{in: in, out: out, errOut: errOut, log: zap.NewNop(), reg: prometheus.NewRegistry()}
	a.metrics = execute.NewMetrics(a.reg)
	root := a.rootCmd()
	root.SetArgs(args)
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)

	err := root.Execute()
	if a.metricsFile != "" {
		// Written even for failed runs; the retry counters matter most then.
		if werr := prometheus.WriteToTextfile(a.metricsFile, a.reg); werr != nil {
			a.log.Warn("write metrics", zap.String("path", a.metricsFile), zap.Error(werr))
		}
	}
	_ = a.log.Sync()
	if err == nil {
		return 0
	}
	fmt.Fprintf(errOut, "ledgertx: %v\n", err)
	var ue usageError
	if errors.As(err, &ue) {
		return 2
	}
	return 1
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "ledgertx",
		Short:         "Build, sign, store and submit ledger transactions",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			l, err := logging.New(a.logLevel, a.logFile, a.errOut)
			if err != nil {
				return usageError{err}
			}
			a.log = l
			transaction.SetLogger(l.Named("transaction"))
			return nil
		},
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error { return usageError{err} })

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", os.Getenv("LEDGERTX_CONFIG"), "client config JSON (default $LEDGERTX_CONFIG)")
	pf.StringVar(&a.keyDir, "key-dir", "", "key store directory (default ~/.ledgertx/keys)")
	pf.StringVar(&a.storeConfig, "store-config", "", "transaction store config JSON")
	pf.StringVar(&a.storeDir, "store-dir", "", "local transaction store directory")
	pf.StringVar(&a.logFile, "log-file", "", "write logs to a rotated file instead of stderr")
	pf.StringVar(&a.logLevel, "log-level", "warn", "debug|info|warn|error")
	pf.DurationVar(&a.timeout, "timeout", 2*time.Minute, "overall deadline for network commands")
	pf.StringVar(&a.metricsFile, "metrics-file", "", "write engine metrics in Prometheus text format on exit")

	root.AddCommand(
		a.keyCmd(),
		a.transferCmd(),
		a.topicCmd(),
		a.fileCmd(),
		a.prngCmd(),
		a.signCmd(),
		a.inspectCmd(),
		a.submitCmd(),
		a.costCmd(),
		a.receiptCmd(),
		a.storeCmd(),
	)
	return root
}

func (a *app) deadline(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if a.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, a.timeout)
}

func (a *app) openClient() (*client.Client, error) {
	if a.configPath == "" {
		return nil, usagef("no client config: pass --config or set LEDGERTX_CONFIG")
	}
	cfg, err := client.LoadConfigFile(a.configPath)
	if err != nil {
		return nil, err
	}
	return cfg.Open(client.WithLogger(a.log.Named("client")), client.WithMetrics(a.metrics))
}

func (a *app) keyStore() (*keys.KeyStore, error) {
	return keys.OpenKeyStore(a.keyDir)
}

func (a *app) loadKeys(names []string) ([]keys.PrivateKey, error) {
	if len(names) == 0 {
		return nil, nil
	}
	ks, err := a.keyStore()
	if err != nil {
		return nil, err
	}
	out := make([]keys.PrivateKey, 0, len(names))
	for _, name := range names {
		key, _, err := ks.Load(name)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", name, err)
		}
		out = append(out, key)
	}
	return out, nil
}

func (a *app) openStore() (storage.Store, func() error, error) {
	switch {
	case a.storeConfig != "":
		cfg, err := storeconfig.LoadFile(a.storeConfig)
		if err != nil {
			return nil, nil, err
		}
		return cfg.Open("")
	case a.storeDir != "":
		s, err := localfs.New(a.storeDir)
		return s, func() error { return nil }, err
	default:
		return nil, nil, usagef("no transaction store: pass --store-config or --store-dir")
	}
}

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
