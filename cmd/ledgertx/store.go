package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ipfs/go-cid"
	"github.com/spf13/cobra"

	"xdao.co/ledgertx/storage"
	"xdao.co/ledgertx/storage/bundle"
	"xdao.co/ledgertx/storage/localfs"
	"xdao.co/ledgertx/storage/storeconfig"
)

func parseCIDs(args []string) ([]cid.Cid, error) {
	out := make([]cid.Cid, 0, len(args))
	for _, s := range args {
		id, err := cid.Decode(s)
		if err != nil {
			return nil, usagef("invalid CID %q: %v", s, err)
		}
		out = append(out, id)
	}
	return out, nil
}

func (a *app) storeCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "store", Short: "Hand transactions off through a content-addressed store"}

	put := &cobra.Command{
		Use:   "put <file|->",
		Short: "Store a serialized transaction and print its CID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var b []byte
			var err error
			if args[0] == "-" {
				b, err = io.ReadAll(a.in)
			} else {
				b, err = os.ReadFile(args[0])
			}
			if err != nil {
				return err
			}
			s, closeFn, err := a.openStore()
			if err != nil {
				return err
			}
			defer closeFn()
			ctx, cancel := a.deadline(cmd)
			defer cancel()
			id, err := storage.PutTransactionBytes(ctx, s, b)
			if err != nil {
				return err
			}
			return a.printJSON(map[string]string{"cid": id.String()})
		},
	}

	var getOut string
	get := &cobra.Command{
		Use:   "get <cid>",
		Short: "Fetch stored bytes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseCIDs(args)
			if err != nil {
				return err
			}
			s, closeFn, err := a.openStore()
			if err != nil {
				return err
			}
			defer closeFn()
			ctx, cancel := a.deadline(cmd)
			defer cancel()
			b, err := s.Get(ctx, ids[0])
			if err != nil {
				return err
			}
			if getOut == "" || getOut == "-" {
				_, err = a.out.Write(b)
				return err
			}
			return os.WriteFile(getOut, b, 0o644)
		},
	}
	get.Flags().StringVar(&getOut, "out", "", "write to a file instead of stdout")

	has := &cobra.Command{
		Use:   "has <cid>",
		Short: "Report whether the store holds an object",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseCIDs(args)
			if err != nil {
				return err
			}
			s, closeFn, err := a.openStore()
			if err != nil {
				return err
			}
			defer closeFn()
			ctx, cancel := a.deadline(cmd)
			defer cancel()
			ok, err := s.Has(ctx, ids[0])
			if err != nil {
				return err
			}
			return a.printJSON(map[string]bool{"present": ok})
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List CIDs in a --store-dir store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.storeDir == "" {
				return usagef("list needs --store-dir")
			}
			s, err := localfs.New(a.storeDir)
			if err != nil {
				return err
			}
			ctx, cancel := a.deadline(cmd)
			defer cancel()
			ids, err := s.List(ctx)
			if err != nil {
				return err
			}
			names := make([]string, 0, len(ids))
			for _, id := range ids {
				names = append(names, id.String())
			}
			return a.printJSON(names)
		},
	}

	var (
		exportOut    string
		exportLabels []string
		noIndex      bool
	)
	export := &cobra.Command{
		Use:   "export <cid>...",
		Short: "Write stored transactions to a TAR bundle",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseCIDs(args)
			if err != nil {
				return err
			}
			labels := map[string]cid.Cid{}
			for _, l := range exportLabels {
				name, value, ok := strings.Cut(l, "=")
				if !ok {
					return usagef("--label %q: want name=cid", l)
				}
				id, err := cid.Decode(value)
				if err != nil {
					return usagef("--label %q: %v", l, err)
				}
				labels[name] = id
			}
			s, closeFn, err := a.openStore()
			if err != nil {
				return err
			}
			defer closeFn()
			ctx, cancel := a.deadline(cmd)
			defer cancel()

			w := a.out
			if exportOut != "" && exportOut != "-" {
				f, err := os.Create(exportOut)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			return bundle.Export(ctx, w, s, ids, bundle.ExportOptions{Labels: labels, IncludeIndex: !noIndex})
		},
	}
	export.Flags().StringVar(&exportOut, "out", "", "bundle file (default stdout)")
	export.Flags().StringSliceVar(&exportLabels, "label", nil, "name=cid labels recorded in index.json")
	export.Flags().BoolVar(&noIndex, "no-index", false, "omit index.json")

	var ignoreUnknown bool
	importCmd := &cobra.Command{
		Use:   "import <bundle|->",
		Short: "Load a TAR bundle into the store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r := a.in
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				r = f
			}
			s, closeFn, err := a.openStore()
			if err != nil {
				return err
			}
			defer closeFn()
			ctx, cancel := a.deadline(cmd)
			defer cancel()
			ids, err := bundle.Import(ctx, r, s, bundle.ImportOptions{IgnoreUnknown: ignoreUnknown})
			names := make([]string, 0, len(ids))
			for _, id := range ids {
				names = append(names, id.String())
			}
			if err != nil {
				return fmt.Errorf("imported %d before failing: %w", len(ids), err)
			}
			return a.printJSON(names)
		},
	}
	importCmd.Flags().BoolVar(&ignoreUnknown, "ignore-unknown", false, "skip unrecognized entries")

	backends := &cobra.Command{
		Use:   "backends",
		Short: "List backends usable in --store-config",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, b := range storeconfig.Backends() {
				fmt.Fprintf(a.out, "%s\t%s\t%s\n", b.Name, strings.Join(b.Keys, ","), b.Description)
			}
			return nil
		},
	}

	cmd.AddCommand(put, get, has, list, export, importCmd, backends)
	return cmd
}
