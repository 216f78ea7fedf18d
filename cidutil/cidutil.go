package cidutil

import (
	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
	mhcore "github.com/multiformats/go-multihash/core"

	"xdao.co/ledgertx/model"
)

// TransactionHash returns the SHA-384 digest of signed transaction bytes,
// the hash the network reports for a submitted transaction.
func TransactionHash(signedTransactionBytes []byte) model.TransactionHash {
	var h model.TransactionHash
	sum, err := multihash.Sum(signedTransactionBytes, mhcore.SHA2_384, -1)
	if err != nil {
		// multihash.Sum only errors for unknown codes or bad lengths.
		panic("cidutil: sha2-384 multihash: " + err.Error())
	}
	decoded, err := multihash.Decode(sum)
	if err != nil {
		panic("cidutil: decode sha2-384 multihash: " + err.Error())
	}
	copy(h[:], decoded.Digest)
	return h
}

// CIDv1RawSHA256 returns a CIDv1 string using the "raw" multicodec
// and a sha2-256 multihash.
func CIDv1RawSHA256(data []byte) string {
	id, err := CIDv1RawSHA256CID(data)
	if err != nil {
		return ""
	}
	return id.String()
}

// CIDv1RawSHA256CID returns a CIDv1 (raw + sha2-256) derived from data. It is
// the content address of a serialized transaction list in storage.
func CIDv1RawSHA256CID(data []byte) (cid.Cid, error) {
	sum, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.Raw, sum), nil
}
