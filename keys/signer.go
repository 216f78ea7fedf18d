package keys

import (
	"xdao.co/ledgertx/model"
	"xdao.co/ledgertx/wire"
)

// Signer is the signing capability the engine consumes.
type Signer interface {
	PublicKey() PublicKey
	Sign(message []byte) []byte
}

type funcSigner struct {
	pub  PublicKey
	sign func([]byte) []byte
}

func (s funcSigner) PublicKey() PublicKey       { return s.pub }
func (s funcSigner) Sign(message []byte) []byte { return s.sign(message) }

// SignerFunc adapts an external signing function (HSM, remote signer) to Signer.
func SignerFunc(pub PublicKey, sign func(message []byte) []byte) Signer {
	return funcSigner{pub: pub, sign: sign}
}

// Operator is the account that pays for, and signs, transactions by default.
type Operator struct {
	AccountID model.AccountID
	Signer    Signer
}

// SignaturePair is one public key and its signature over a body.
type SignaturePair struct {
	PublicKey PublicKey
	Signature []byte
}

// SignWith produces the pair for signer over message.
func SignWith(signer Signer, message []byte) SignaturePair {
	return SignaturePair{PublicKey: signer.PublicKey(), Signature: signer.Sign(message)}
}

// Wire tags the signature with the oneof arm for the key's algorithm. The
// whole raw public key is used as the prefix.
func (p SignaturePair) Wire() wire.SignaturePair {
	kind := wire.SignatureEd25519
	if p.PublicKey.Kind() == KindECDSASecp256k1 {
		kind = wire.SignatureECDSASecp256k1
	}
	return wire.SignaturePair{
		PubKeyPrefix: p.PublicKey.Bytes(),
		Kind:         kind,
		Signature:    append([]byte(nil), p.Signature...),
	}
}
