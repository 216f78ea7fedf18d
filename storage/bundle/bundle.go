// Package bundle moves stored transactions between stores that cannot reach
// each other, such as an online submitter and an air-gapped signer, as a
// deterministic TAR archive.
package bundle

import (
	"archive/tar"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/ipfs/go-cid"

	"xdao.co/ledgertx/cidutil"
	"xdao.co/ledgertx/storage"
	"xdao.co/ledgertx/transaction"
)

// FormatVersion is the current bundle index schema version.
const FormatVersion = 1

var epoch0 = time.Unix(0, 0).UTC()

// ExportOptions controls bundle export behavior.
type ExportOptions struct {
	// Labels is optional, non-authoritative metadata mapping names to CIDs.
	Labels map[string]cid.Cid
	// IncludeIndex adds index.json describing each transaction.
	IncludeIndex bool
}

// Export writes the transactions stored under ids to w.
//
// The archive bytes are deterministic: entries are ordered by CID and TAR
// headers are normalized. Every object is checked against its CID and must
// decode as a transaction.
func Export(ctx context.Context, w io.Writer, s storage.Store, ids []cid.Cid, opts ExportOptions) error {
	if s == nil {
		return fmt.Errorf("bundle: nil store")
	}

	uniq := make(map[string]cid.Cid, len(ids))
	for _, id := range ids {
		if !id.Defined() {
			return storage.ErrInvalidCID
		}
		uniq[id.String()] = id
	}
	names := make([]string, 0, len(uniq))
	for name := range uniq {
		names = append(names, name)
	}
	sort.Strings(names)

	tw := tar.NewWriter(w)
	entries := make([]indexEntry, 0, len(names))
	for _, name := range names {
		id := uniq[name]
		b, err := s.Get(ctx, id)
		if err != nil {
			_ = tw.Close()
			return fmt.Errorf("bundle: %s: %w", id, err)
		}
		got, err := cidutil.CIDv1RawSHA256CID(b)
		if err != nil {
			_ = tw.Close()
			return err
		}
		if got != id {
			_ = tw.Close()
			return storage.ErrCIDMismatch
		}
		entry, err := describe(id, b)
		if err != nil {
			_ = tw.Close()
			return err
		}
		if err := writeFile(tw, "transactions/"+name, b); err != nil {
			_ = tw.Close()
			return err
		}
		entries = append(entries, entry)
	}

	if opts.IncludeIndex {
		idx := indexJSON{
			Version:      FormatVersion,
			CIDCodec:     "raw",
			Multihash:    "sha2-256",
			Transactions: entries,
		}
		labels, err := sortedLabels(opts.Labels)
		if err != nil {
			_ = tw.Close()
			return err
		}
		idx.Labels = labels

		b, err := json.Marshal(idx)
		if err != nil {
			_ = tw.Close()
			return err
		}
		if err := writeFile(tw, "index.json", append(b, '\n')); err != nil {
			_ = tw.Close()
			return err
		}
	}
	return tw.Close()
}

func describe(id cid.Cid, b []byte) (indexEntry, error) {
	tx, err := transaction.FromBytes(b)
	if err != nil {
		return indexEntry{}, fmt.Errorf("bundle: %s: %w: %w", id, storage.ErrNotTransaction, err)
	}
	e := indexEntry{CID: id.String(), Size: len(b), Kind: tx.Payload().Kind()}
	if txID := tx.TransactionID(); txID != nil {
		e.TransactionID = txID.String()
	}
	if src := tx.Sources(); src != nil {
		e.Signers = len(src.Signers())
		e.Chunks = src.ChunkCount()
	}
	return e, nil
}

func sortedLabels(in map[string]cid.Cid) ([]indexLabel, error) {
	if len(in) == 0 {
		return nil, nil
	}
	names := make([]string, 0, len(in))
	for name := range in {
		if name == "" {
			return nil, fmt.Errorf("bundle: empty label name")
		}
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]indexLabel, 0, len(names))
	for _, name := range names {
		v := in[name]
		if !v.Defined() {
			return nil, storage.ErrInvalidCID
		}
		out = append(out, indexLabel{Name: name, CID: v.String()})
	}
	return out, nil
}

// ImportOptions controls bundle import behavior.
type ImportOptions struct {
	// IgnoreUnknown skips unknown TAR entries instead of failing.
	IgnoreUnknown bool
}

// Import reads a bundle from r into s and returns the imported CIDs in
// archive order. Each entry must match its file name's CID and decode as a
// transaction.
func Import(ctx context.Context, r io.Reader, s storage.Store, opts ImportOptions) ([]cid.Cid, error) {
	if s == nil {
		return nil, fmt.Errorf("bundle: nil store")
	}

	tr := tar.NewReader(r)
	seen := map[cid.Cid]struct{}{}
	var out []cid.Cid
	for {
		h, err := tr.Next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		name := cleanTarPath(h.Name)
		if name == "" {
			return out, fmt.Errorf("bundle: invalid entry path: %q", h.Name)
		}

		if h.Typeflag != tar.TypeReg {
			if opts.IgnoreUnknown {
				continue
			}
			return out, fmt.Errorf("bundle: unexpected tar entry type: %v (%s)", h.Typeflag, name)
		}

		// Non-authoritative metadata.
		if name == "index.json" {
			_, _ = io.Copy(io.Discard, tr)
			continue
		}
		if !strings.HasPrefix(name, "transactions/") {
			if opts.IgnoreUnknown {
				_, _ = io.Copy(io.Discard, tr)
				continue
			}
			return out, fmt.Errorf("bundle: unknown entry: %s", name)
		}

		id, err := cid.Decode(strings.TrimPrefix(name, "transactions/"))
		if err != nil || !id.Defined() {
			return out, storage.ErrInvalidCID
		}
		payload, err := io.ReadAll(tr)
		if err != nil {
			return out, err
		}
		got, err := cidutil.CIDv1RawSHA256CID(payload)
		if err != nil {
			return out, err
		}
		if got != id {
			return out, storage.ErrCIDMismatch
		}
		if _, dup := seen[id]; dup {
			return out, fmt.Errorf("bundle: duplicate entry: %s", id)
		}
		seen[id] = struct{}{}

		putID, err := storage.PutTransactionBytes(ctx, s, payload)
		if err != nil {
			return out, fmt.Errorf("bundle: %s: %w", id, err)
		}
		if putID != id {
			return out, storage.ErrCIDMismatch
		}
		out = append(out, id)
	}
}

type indexJSON struct {
	Version      int          `json:"version"`
	CIDCodec     string       `json:"cidCodec"`
	Multihash    string       `json:"multihash"`
	Transactions []indexEntry `json:"transactions"`
	Labels       []indexLabel `json:"labels,omitempty"`
}

type indexEntry struct {
	CID           string `json:"cid"`
	Size          int    `json:"size"`
	Kind          string `json:"kind"`
	TransactionID string `json:"transactionId,omitempty"`
	Chunks        int    `json:"chunks"`
	Signers       int    `json:"signers"`
}

type indexLabel struct {
	Name string `json:"name"`
	CID  string `json:"cid"`
}

func writeFile(tw *tar.Writer, name string, content []byte) error {
	hdr := &tar.Header{
		Name:     name,
		Mode:     0o644,
		Size:     int64(len(content)),
		ModTime:  epoch0,
		Typeflag: tar.TypeReg,
		Format:   tar.FormatPAX,
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	_, err := io.Copy(tw, bytes.NewReader(content))
	return err
}

func cleanTarPath(name string) string {
	name = strings.TrimSpace(name)
	name = strings.ReplaceAll(name, "\\", "/")
	name = strings.TrimPrefix(name, "./")
	name = strings.TrimPrefix(name, "/")
	if name == "" {
		return ""
	}
	for _, part := range strings.Split(name, "/") {
		if part == "" || part == "." || part == ".." {
			return ""
		}
	}
	return name
}
