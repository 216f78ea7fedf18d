package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"xdao.co/ledgertx/model"
	"xdao.co/ledgertx/nodegrpc"
	"xdao.co/ledgertx/storage"
	"xdao.co/ledgertx/storage/grpcstore"
	"xdao.co/ledgertx/storage/localfs"
	"xdao.co/ledgertx/storage/storeconfig"
)

type config struct {
	Listen       string
	Account      string
	Fee          string
	ReceiptDelay int
	Payers       []string

	StoreListen string
	StoreDir    string
	StoreConfig string

	MetricsListen string
}

// daemon owns the node server and the optional store and metrics servers.
// The store runs on its own gRPC server because node services force the
// wire codec on every method they serve.
type daemon struct {
	log     *zap.Logger
	account model.AccountID

	node    *grpc.Server
	nodeLis net.Listener

	store      *grpc.Server
	storeLis   net.Listener
	storeClose func() error

	metrics    *http.Server
	metricsLis net.Listener

	errc chan error
}

func start(cfg config, log *zap.Logger) (d *daemon, err error) {
	account, err := model.ParseAccountID(cfg.Account)
	if err != nil {
		return nil, fmt.Errorf("--account: %w", err)
	}
	var fee model.Hbar
	if cfg.Fee != "" {
		if fee, err = model.ParseHbar(cfg.Fee); err != nil {
			return nil, fmt.Errorf("--fee: %w", err)
		}
	}
	payers, err := parsePayers(cfg.Payers)
	if err != nil {
		return nil, err
	}
	if cfg.StoreListen != "" && cfg.StoreDir == "" && cfg.StoreConfig == "" {
		return nil, errors.New("--store-listen needs --store-dir or --store-config")
	}

	d = &daemon{log: log, account: account, errc: make(chan error, 3)}
	defer func() {
		if err != nil {
			d.stop()
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	sim := nodegrpc.NewSimulator(nodegrpc.SimulatorOptions{
		AccountID:    account,
		Fee:          fee,
		Accounts:     payers,
		ReceiptDelay: cfg.ReceiptDelay,
		Logger:       log.Named("simulator"),
		Registerer:   reg,
	})
	if d.nodeLis, err = net.Listen("tcp", cfg.Listen); err != nil {
		return nil, err
	}
	d.node = nodegrpc.NewServer()
	nodegrpc.RegisterNodeServer(d.node, sim)
	go d.serveGRPC("node", d.node, d.nodeLis)

	if cfg.StoreListen != "" {
		s, closeFn, err := openStore(cfg)
		if err != nil {
			return nil, err
		}
		d.storeClose = closeFn
		if d.storeLis, err = net.Listen("tcp", cfg.StoreListen); err != nil {
			return nil, err
		}
		d.store = grpc.NewServer()
		grpcstore.RegisterStoreServer(d.store, &grpcstore.Server{Store: s, Logger: log.Named("store")})
		go d.serveGRPC("store", d.store, d.storeLis)
	}

	if cfg.MetricsListen != "" {
		if d.metricsLis, err = net.Listen("tcp", cfg.MetricsListen); err != nil {
			return nil, err
		}
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		d.metrics = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := d.metrics.Serve(d.metricsLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
				d.errc <- fmt.Errorf("metrics: %w", err)
			}
		}()
	}

	log.Info("node started",
		zap.Stringer("account", account),
		zap.String("listen", d.NodeAddr()),
		zap.Int("payers", len(payers)))
	return d, nil
}

func openStore(cfg config) (storage.Store, func() error, error) {
	if cfg.StoreConfig != "" {
		sc, err := storeconfig.LoadFile(cfg.StoreConfig)
		if err != nil {
			return nil, nil, err
		}
		return sc.Open("")
	}
	s, err := localfs.New(cfg.StoreDir)
	return s, nil, err
}

func (d *daemon) serveGRPC(name string, s *grpc.Server, lis net.Listener) {
	if err := s.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		d.errc <- fmt.Errorf("%s: %w", name, err)
	}
}

func addr(l net.Listener) string {
	if l == nil {
		return ""
	}
	return l.Addr().String()
}

func (d *daemon) NodeAddr() string    { return addr(d.nodeLis) }
func (d *daemon) StoreAddr() string   { return addr(d.storeLis) }
func (d *daemon) MetricsAddr() string { return addr(d.metricsLis) }

// Wait blocks until ctx is done or a server fails, then stops everything.
func (d *daemon) Wait(ctx context.Context) error {
	var err error
	select {
	case <-ctx.Done():
	case err = <-d.errc:
	}
	d.stop()
	d.log.Info("node stopped")
	return err
}

func (d *daemon) stop() {
	if d.metrics != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = d.metrics.Shutdown(ctx)
		cancel()
	} else if d.metricsLis != nil {
		_ = d.metricsLis.Close()
	}
	if d.store != nil {
		d.store.GracefulStop()
	} else if d.storeLis != nil {
		_ = d.storeLis.Close()
	}
	if d.storeClose != nil {
		_ = d.storeClose()
	}
	if d.node != nil {
		d.node.GracefulStop()
	} else if d.nodeLis != nil {
		_ = d.nodeLis.Close()
	}
}
