package main

import (
	"crypto/rand"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"xdao.co/ledgertx/keys"
	"xdao.co/ledgertx/model"
)

type keyView struct {
	Name      string `json:"name"`
	PublicKey string `json:"public_key"`
	AccountID string `json:"account_id,omitempty"`
	Path      string `json:"path,omitempty"`
}

func (a *app) keyCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "key", Short: "Manage signing keys in the local key store"}

	var (
		ecdsa     bool
		account   string
		overwrite bool
	)
	generate := &cobra.Command{
		Use:   "generate <name>",
		Short: "Create a new private key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var acct *model.AccountID
			if account != "" {
				id, err := model.ParseAccountID(account)
				if err != nil {
					return usagef("--account: %v", err)
				}
				acct = &id
			}
			var key keys.PrivateKey
			var err error
			if ecdsa {
				key, err = keys.GenerateECDSA()
			} else {
				key, err = keys.GenerateEd25519(rand.Reader)
			}
			if err != nil {
				return err
			}
			ks, err := a.keyStore()
			if err != nil {
				return err
			}
			path, err := ks.Save(args[0], key, acct, overwrite)
			if err != nil {
				return err
			}
			a.log.Info("generated key", zap.String("name", args[0]), zap.String("path", path))
			return a.printJSON(viewKey(args[0], key.PublicKey(), acct, path))
		},
	}
	generate.Flags().BoolVar(&ecdsa, "ecdsa", false, "generate an ECDSA secp256k1 key instead of Ed25519")
	generate.Flags().StringVar(&account, "account", "", "account id the key signs for")
	generate.Flags().BoolVar(&overwrite, "force", false, "replace an existing key")

	show := &cobra.Command{
		Use:   "show <name>",
		Short: "Print a key's public half",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ks, err := a.keyStore()
			if err != nil {
				return err
			}
			key, acct, err := ks.Load(args[0])
			if err != nil {
				return err
			}
			return a.printJSON(viewKey(args[0], key.PublicKey(), acct, ""))
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List stored keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ks, err := a.keyStore()
			if err != nil {
				return err
			}
			entries, err := ks.List()
			if err != nil {
				return err
			}
			views := make([]keyView, 0, len(entries))
			for _, e := range entries {
				views = append(views, viewKey(e.Name, e.PublicKey, e.AccountID, ""))
			}
			return a.printJSON(views)
		},
	}

	cmd.AddCommand(generate, show, list)
	return cmd
}

func viewKey(name string, pub keys.PublicKey, acct *model.AccountID, path string) keyView {
	v := keyView{Name: name, PublicKey: pub.String(), Path: path}
	if acct != nil {
		v.AccountID = acct.String()
	}
	return v
}
