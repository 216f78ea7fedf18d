package keys

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	btcec_ecdsa "github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/cloudflare/circl/sign/ed25519"
	"golang.org/x/crypto/sha3"
)

// Kind is the key algorithm.
type Kind uint8

const (
	KindEd25519 Kind = iota + 1
	KindECDSASecp256k1
)

func (k Kind) String() string {
	switch k {
	case KindEd25519:
		return "ed25519"
	case KindECDSASecp256k1:
		return "ecdsa-secp256k1"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// PublicKey is a raw public key tagged with its algorithm. Ed25519 keys are 32
// bytes, secp256k1 keys are 33 byte compressed points.
type PublicKey struct {
	kind Kind
	raw  []byte
}

func NewPublicKey(kind Kind, raw []byte) (PublicKey, error) {
	switch kind {
	case KindEd25519:
		if len(raw) != ed25519.PublicKeySize {
			return PublicKey{}, fmt.Errorf("ed25519 public key must be %d bytes, got %d", ed25519.PublicKeySize, len(raw))
		}
	case KindECDSASecp256k1:
		if _, err := btcec.ParsePubKey(raw); err != nil {
			return PublicKey{}, fmt.Errorf("invalid secp256k1 public key: %w", err)
		}
		if len(raw) != btcec.PubKeyBytesLenCompressed {
			pk, _ := btcec.ParsePubKey(raw)
			raw = pk.SerializeCompressed()
		}
	default:
		return PublicKey{}, fmt.Errorf("unsupported key kind %d", kind)
	}
	return PublicKey{kind: kind, raw: append([]byte(nil), raw...)}, nil
}

// ParsePublicKey parses the String form "<kind>:<hex>".
func ParsePublicKey(s string) (PublicKey, error) {
	kind, raw, err := parseTagged(s)
	if err != nil {
		return PublicKey{}, err
	}
	return NewPublicKey(kind, raw)
}

func (k PublicKey) Kind() Kind { return k.kind }

// Bytes returns the raw key bytes; these are what signature maps prefix-match.
func (k PublicKey) Bytes() []byte { return append([]byte(nil), k.raw...) }

func (k PublicKey) Equal(o PublicKey) bool {
	return k.kind == o.kind && bytes.Equal(k.raw, o.raw)
}

func (k PublicKey) IsZero() bool { return k.kind == 0 }

func (k PublicKey) String() string {
	return k.kind.String() + ":" + hex.EncodeToString(k.raw)
}

// Verify checks sig over message using the algorithm's digest rules.
func (k PublicKey) Verify(message, sig []byte) bool {
	switch k.kind {
	case KindEd25519:
		return ed25519.Verify(ed25519.PublicKey(k.raw), message, sig)
	case KindECDSASecp256k1:
		if len(sig) != 64 {
			return false
		}
		pub, err := btcec.ParsePubKey(k.raw)
		if err != nil {
			return false
		}
		var r, s btcec.ModNScalar
		if r.SetByteSlice(sig[:32]) || s.SetByteSlice(sig[32:]) {
			return false
		}
		return btcec_ecdsa.NewSignature(&r, &s).Verify(keccak256(message), pub)
	default:
		return false
	}
}

// PrivateKey is an in-memory Ed25519 or secp256k1 key. It implements Signer.
type PrivateKey struct {
	kind Kind
	ed   ed25519.PrivateKey
	ec   *btcec.PrivateKey
}

func GenerateEd25519(rand io.Reader) (PrivateKey, error) {
	_, priv, err := ed25519.GenerateKey(rand)
	if err != nil {
		return PrivateKey{}, err
	}
	return PrivateKey{kind: KindEd25519, ed: priv}, nil
}

func Ed25519FromSeed(seed []byte) (PrivateKey, error) {
	if len(seed) != ed25519.SeedSize {
		return PrivateKey{}, fmt.Errorf("expected seed length of %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	return PrivateKey{kind: KindEd25519, ed: ed25519.NewKeyFromSeed(seed)}, nil
}

func GenerateECDSA() (PrivateKey, error) {
	priv, err := btcec.NewPrivateKey()
	if err != nil {
		return PrivateKey{}, err
	}
	return PrivateKey{kind: KindECDSASecp256k1, ec: priv}, nil
}

func ECDSAFromBytes(b []byte) (PrivateKey, error) {
	if len(b) != btcec.PrivKeyBytesLen {
		return PrivateKey{}, fmt.Errorf("expected secp256k1 key length of %d bytes, got %d", btcec.PrivKeyBytesLen, len(b))
	}
	var scalar btcec.ModNScalar
	if overflow := scalar.SetByteSlice(b); overflow || scalar.IsZero() {
		return PrivateKey{}, errors.New("secp256k1 key is zero or not below the curve order")
	}
	return PrivateKey{kind: KindECDSASecp256k1, ec: btcec.PrivKeyFromScalar(&scalar)}, nil
}

// ParsePrivateKey parses the String form "<kind>:<hex>". A bare hex string is
// read as an Ed25519 seed.
func ParsePrivateKey(s string) (PrivateKey, error) {
	s = strings.TrimSpace(s)
	if !strings.Contains(s, ":") {
		seed, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
		if err != nil {
			return PrivateKey{}, err
		}
		return Ed25519FromSeed(seed)
	}
	kind, raw, err := parseTagged(s)
	if err != nil {
		return PrivateKey{}, err
	}
	if kind == KindEd25519 {
		return Ed25519FromSeed(raw)
	}
	return ECDSAFromBytes(raw)
}

func (k PrivateKey) Kind() Kind { return k.kind }

func (k PrivateKey) PublicKey() PublicKey {
	switch k.kind {
	case KindEd25519:
		pub := k.ed.Public().(ed25519.PublicKey)
		return PublicKey{kind: KindEd25519, raw: append([]byte(nil), pub...)}
	case KindECDSASecp256k1:
		return PublicKey{kind: KindECDSASecp256k1, raw: k.ec.PubKey().SerializeCompressed()}
	default:
		return PublicKey{}
	}
}

// Sign signs message. Ed25519 signs the bytes directly; secp256k1 signs
// keccak256(message) and returns r||s.
func (k PrivateKey) Sign(message []byte) []byte {
	switch k.kind {
	case KindEd25519:
		return ed25519.Sign(k.ed, message)
	case KindECDSASecp256k1:
		compact := btcec_ecdsa.SignCompact(k.ec, keccak256(message), true)
		return compact[1:]
	default:
		panic("keys: sign with zero PrivateKey")
	}
}

// Bytes returns the Ed25519 seed or the 32 byte secp256k1 scalar.
func (k PrivateKey) Bytes() []byte {
	switch k.kind {
	case KindEd25519:
		return append([]byte(nil), k.ed.Seed()...)
	case KindECDSASecp256k1:
		return k.ec.Serialize()
	default:
		return nil
	}
}

func (k PrivateKey) String() string {
	return k.kind.String() + ":" + hex.EncodeToString(k.Bytes())
}

func keccak256(message []byte) []byte {
	h := sha3.NewLegacyKeccak256()
	_, _ = h.Write(message)
	return h.Sum(nil)
}

func parseTagged(s string) (Kind, []byte, error) {
	tag, hexPart, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, nil, errors.New("key must be formatted as <kind>:<hex>")
	}
	var kind Kind
	switch tag {
	case KindEd25519.String():
		kind = KindEd25519
	case KindECDSASecp256k1.String():
		kind = KindECDSASecp256k1
	default:
		return 0, nil, fmt.Errorf("unsupported key kind %q", tag)
	}
	raw, err := hex.DecodeString(hexPart)
	if err != nil {
		return 0, nil, err
	}
	return kind, raw, nil
}
