package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"xdao.co/ledgertx/keys"
	"xdao.co/ledgertx/model"
)

// Config describes a client in JSON.
//
// Example:
//
//	{
//	  "network": {"0.0.3": "127.0.0.1:50211", "0.0.4": "127.0.0.1:50212"},
//	  "ledger_id": "testnet",
//	  "operator": {"account_id": "0.0.1001", "key_file": "/home/me/.ledgertx/keys/op.key"},
//	  "default_max_transaction_fee": "2",
//	  "default_valid_duration": "120s",
//	  "max_attempts": 10,
//	  "min_backoff": "250ms",
//	  "max_backoff": "8s",
//	  "request_timeout": "2m"
//	}
//
// Durations use time.ParseDuration syntax and fees use model.ParseHbar.
type Config struct {
	Network                  map[string]string `json:"network"`
	LedgerID                 string            `json:"ledger_id,omitempty"`
	Operator                 *OperatorConfig   `json:"operator,omitempty"`
	DefaultMaxTransactionFee string            `json:"default_max_transaction_fee,omitempty"`
	DefaultValidDuration     string            `json:"default_valid_duration,omitempty"`
	MaxAttempts              int               `json:"max_attempts,omitempty"`
	MinBackoff               string            `json:"min_backoff,omitempty"`
	MaxBackoff               string            `json:"max_backoff,omitempty"`
	RequestTimeout           string            `json:"request_timeout,omitempty"`
	AutoValidateChecksums    bool              `json:"auto_validate_checksums,omitempty"`
	RegenerateTransactionID  *bool             `json:"regenerate_transaction_id,omitempty"`
}

// OperatorConfig names the paying account and its key. Exactly one of Key
// (the keys.PrivateKey string form) and KeyFile must be set.
type OperatorConfig struct {
	AccountID string `json:"account_id"`
	Key       string `json:"key,omitempty"`
	KeyFile   string `json:"key_file,omitempty"`
}

func LoadConfigFile(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, errors.New("client: empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := json.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("client: parse %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if len(c.Network) == 0 {
		return model.NewError(model.KindConfig, "client: at least one network node is required")
	}
	for id, address := range c.Network {
		if _, err := model.ParseAccountID(id); err != nil {
			return model.WrapError(model.KindConfig, fmt.Sprintf("client: network node %q", id), err)
		}
		if address == "" {
			return model.NewError(model.KindConfig, fmt.Sprintf("client: network node %s has no address", id))
		}
	}
	if c.LedgerID != "" {
		if _, err := model.LedgerIDFromString(c.LedgerID); err != nil {
			return model.WrapError(model.KindConfig, "client: ledger_id", err)
		}
	}
	if op := c.Operator; op != nil {
		if _, err := model.ParseAccountID(op.AccountID); err != nil {
			return model.WrapError(model.KindConfig, "client: operator.account_id", err)
		}
		if (op.Key == "") == (op.KeyFile == "") {
			return model.NewError(model.KindConfig, "client: operator needs exactly one of key and key_file")
		}
	}
	if c.DefaultMaxTransactionFee != "" {
		if _, err := model.ParseHbar(c.DefaultMaxTransactionFee); err != nil {
			return model.WrapError(model.KindConfig, "client: default_max_transaction_fee", err)
		}
	}
	for name, v := range map[string]string{
		"default_valid_duration": c.DefaultValidDuration,
		"min_backoff":            c.MinBackoff,
		"max_backoff":            c.MaxBackoff,
		"request_timeout":        c.RequestTimeout,
	} {
		if v == "" {
			continue
		}
		if d, err := time.ParseDuration(v); err != nil || d < 0 {
			return model.NewError(model.KindConfig, fmt.Sprintf("client: invalid %s %q", name, v))
		}
	}
	if c.MaxAttempts < 0 {
		return model.NewError(model.KindConfig, "client: max_attempts must not be negative")
	}
	return nil
}

// Open validates c and builds a Client from it.
func (c Config) Open(opts ...Option) (*Client, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	network := make(map[model.AccountID]string, len(c.Network))
	for id, address := range c.Network {
		acct, _ := model.ParseAccountID(id)
		network[acct] = address
	}
	cl, err := New(network, opts...)
	if err != nil {
		return nil, err
	}
	if err := c.apply(cl); err != nil {
		_ = cl.Close()
		return nil, err
	}
	return cl, nil
}

func (c Config) apply(cl *Client) error {
	if c.LedgerID != "" {
		id, _ := model.LedgerIDFromString(c.LedgerID)
		cl.SetLedgerID(id)
	}
	if op := c.Operator; op != nil {
		acct, _ := model.ParseAccountID(op.AccountID)
		var key keys.PrivateKey
		var err error
		if op.KeyFile != "" {
			key, _, err = keys.LoadKeyFile(op.KeyFile)
		} else {
			key, err = keys.ParsePrivateKey(op.Key)
		}
		if err != nil {
			return model.WrapError(model.KindConfig, "client: operator key", err)
		}
		cl.SetOperator(acct, key)
	}
	if c.DefaultMaxTransactionFee != "" {
		fee, _ := model.ParseHbar(c.DefaultMaxTransactionFee)
		cl.SetDefaultMaxTransactionFee(fee)
	}
	if c.DefaultValidDuration != "" {
		d, _ := time.ParseDuration(c.DefaultValidDuration)
		cl.SetDefaultValidDuration(d)
	}
	if c.MaxAttempts > 0 {
		cl.SetMaxAttempts(c.MaxAttempts)
	}
	if c.MinBackoff != "" || c.MaxBackoff != "" {
		min, _ := time.ParseDuration(c.MinBackoff)
		max, _ := time.ParseDuration(c.MaxBackoff)
		cl.SetBackoff(min, max)
	}
	if c.RequestTimeout != "" {
		d, _ := time.ParseDuration(c.RequestTimeout)
		cl.SetRequestTimeout(d)
	}
	cl.SetAutoValidateChecksums(c.AutoValidateChecksums)
	if c.RegenerateTransactionID != nil {
		cl.SetRegenerateTransactionID(*c.RegenerateTransactionID)
	}
	return nil
}
