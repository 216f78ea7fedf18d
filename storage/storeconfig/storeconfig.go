// Package storeconfig opens a storage.Store from a JSON description of one
// or more backends.
//
// WritePolicy values:
//   - "first" (default): write only to the first backend; reads fall back in order
//   - "all": write to every backend and require CID equality (see storage.Replicating)
//
// Example:
//
//	{
//	  "write_policy": "all",
//	  "backends": [
//	    {"name":"localfs", "config":{"dir":"/var/lib/ledgertx/tx"}},
//	    {"name":"grpc", "id":"signer", "config":{"target":"signer:7300", "timeout":"5s"}}
//	  ]
//	}
package storeconfig

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"

	"xdao.co/ledgertx/storage"
	"xdao.co/ledgertx/storage/grpcstore"
	"xdao.co/ledgertx/storage/ipfs"
	"xdao.co/ledgertx/storage/localfs"
)

type Config struct {
	WritePolicy string          `json:"write_policy,omitempty"`
	Backends    []BackendConfig `json:"backends"`
}

type BackendConfig struct {
	// Name selects the backend kind; see Backends.
	Name string `json:"name"`
	// ID is an optional alias used in per-backend results. Defaults to Name.
	ID     string            `json:"id,omitempty"`
	Config map[string]string `json:"config,omitempty"`
}

func (b BackendConfig) id() string {
	if b.ID != "" {
		return b.ID
	}
	return b.Name
}

// Backend describes one store kind that Config can open.
type Backend struct {
	Name        string
	Description string
	// Keys lists the accepted config keys.
	Keys []string

	open func(cfg map[string]string) (storage.Store, func() error, error)
}

var backends = map[string]Backend{
	"memory": {
		Name:        "memory",
		Description: "process-local map, lost on exit",
		open: func(map[string]string) (storage.Store, func() error, error) {
			return storage.NewMemory(), nil, nil
		},
	},
	"localfs": {
		Name:        "localfs",
		Description: "immutable files under a directory",
		Keys:        []string{"dir"},
		open: func(cfg map[string]string) (storage.Store, func() error, error) {
			s, err := localfs.New(cfg["dir"])
			return s, nil, err
		},
	},
	"grpc": {
		Name:        "grpc",
		Description: "remote transaction store over gRPC",
		Keys:        []string{"target", "timeout", "max-msg-bytes"},
		open:        openGRPC,
	},
	"ipfs": {
		Name:        "ipfs",
		Description: "raw blocks in a local Kubo repository",
		Keys:        []string{"bin", "ipfs-path"},
		open: func(cfg map[string]string) (storage.Store, func() error, error) {
			opts := ipfs.Options{Bin: cfg["bin"]}
			if p := cfg["ipfs-path"]; p != "" {
				opts.Env = append(os.Environ(), "IPFS_PATH="+p)
			}
			return ipfs.New(opts), nil, nil
		},
	},
}

func openGRPC(cfg map[string]string) (storage.Store, func() error, error) {
	target := cfg["target"]
	if target == "" {
		return nil, nil, errors.New("storeconfig: grpc backend requires target")
	}
	var opts grpcstore.DialOptions
	if v := cfg["timeout"]; v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, nil, fmt.Errorf("storeconfig: grpc timeout: %w", err)
		}
		opts.Timeout = d
	}
	if v := cfg["max-msg-bytes"]; v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, nil, fmt.Errorf("storeconfig: grpc max-msg-bytes: %w", err)
		}
		opts.MaxMsgBytes = n
	}
	c, err := grpcstore.Dial(target, opts)
	if err != nil {
		return nil, nil, err
	}
	return c, c.Close, nil
}

// Backends lists the known backends sorted by name.
func Backends() []Backend {
	out := make([]Backend, 0, len(backends))
	for _, b := range backends {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func LoadFile(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, errors.New("storeconfig: empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := json.Unmarshal(b, &cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if len(c.Backends) == 0 {
		return errors.New("storeconfig: at least one backend is required")
	}
	seen := make(map[string]struct{}, len(c.Backends))
	for _, b := range c.Backends {
		if b.Name == "" {
			return errors.New("storeconfig: backend name is required")
		}
		if _, ok := backends[b.Name]; !ok {
			return fmt.Errorf("storeconfig: unknown backend %q", b.Name)
		}
		if _, ok := seen[b.id()]; ok {
			return fmt.Errorf("storeconfig: duplicate backend id %q", b.id())
		}
		seen[b.id()] = struct{}{}
	}
	switch c.WritePolicy {
	case "", "first", "all":
		return nil
	default:
		return fmt.Errorf("storeconfig: invalid write_policy %q", c.WritePolicy)
	}
}

// Open opens every backend and combines them per WritePolicy. The returned
// close function releases all of them.
//
// If preferred is non-empty the matching backend (by Name or ID) moves to the
// front, and so receives writes under the "first" policy.
func (c Config) Open(preferred string) (storage.Store, func() error, error) {
	if err := c.Validate(); err != nil {
		return nil, nil, err
	}

	ordered := append([]BackendConfig(nil), c.Backends...)
	if preferred != "" {
		idx := -1
		for i := range ordered {
			if ordered[i].Name == preferred || ordered[i].ID == preferred {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, nil, fmt.Errorf("storeconfig: preferred backend %q not found in config", preferred)
		}
		if idx != 0 {
			b := ordered[idx]
			copy(ordered[1:idx+1], ordered[0:idx])
			ordered[0] = b
		}
	}

	named := make([]storage.NamedStore, 0, len(ordered))
	closers := make([]func() error, 0, len(ordered))
	closeAll := func() error {
		var firstErr error
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		return firstErr
	}
	for _, b := range ordered {
		s, closeFn, err := backends[b.Name].open(b.Config)
		if err != nil {
			_ = closeAll()
			return nil, nil, fmt.Errorf("storeconfig: backend %q: %w", b.id(), err)
		}
		named = append(named, storage.NamedStore{Name: b.id(), Store: s})
		if closeFn != nil {
			closers = append(closers, closeFn)
		}
	}

	if len(named) == 1 {
		return named[0].Store, closeAll, nil
	}
	if c.WritePolicy == "all" {
		return storage.Replicating{Backends: named}, closeAll, nil
	}
	stores := make([]storage.Store, 0, len(named))
	for _, n := range named {
		stores = append(stores, n.Store)
	}
	return storage.Fallback{Stores: stores}, closeAll, nil
}
