package keys

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xdao.co/ledgertx/model"
	"xdao.co/ledgertx/wire"
)

type deterministicReader struct{ b byte }

func (r *deterministicReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = r.b
		r.b++
	}
	return len(p), nil
}

func TestEd25519SignVerifies(t *testing.T) {
	key, err := GenerateEd25519(&deterministicReader{})
	require.NoError(t, err)

	msg := []byte("body bytes")
	sig := key.Sign(msg)
	assert.True(t, key.PublicKey().Verify(msg, sig))
	assert.False(t, key.PublicKey().Verify([]byte("other"), sig), "signature verified over a different message")
}

func TestECDSASignVerifies(t *testing.T) {
	key, err := GenerateECDSA()
	require.NoError(t, err)

	msg := []byte("body bytes")
	sig := key.Sign(msg)
	require.Len(t, sig, 64)
	assert.True(t, key.PublicKey().Verify(msg, sig))
	assert.Len(t, key.PublicKey().Bytes(), 33)
}

func TestECDSAFromBytesRejectsOutOfRangeScalars(t *testing.T) {
	order, err := hex.DecodeString("fffffffffffffffffffffffffffffffebaaedce6af48a03bbfd25e8cd0364141")
	require.NoError(t, err)

	bad := map[string][]byte{
		"zero":      make([]byte, 32),
		"order":     order,
		"all ones":  bytes.Repeat([]byte{0xff}, 32),
		"too short": make([]byte, 31),
	}
	for name, b := range bad {
		_, err := ECDSAFromBytes(b)
		assert.Error(t, err, name)
	}

	below := append([]byte(nil), order...)
	below[31]--
	key, err := ECDSAFromBytes(below)
	require.NoError(t, err)
	assert.Equal(t, KindECDSASecp256k1, key.Kind())

	one := make([]byte, 32)
	one[31] = 1
	_, err = ECDSAFromBytes(one)
	assert.NoError(t, err)
}

func TestPrivateKeyStringRoundTrip(t *testing.T) {
	for _, gen := range []func() (PrivateKey, error){
		func() (PrivateKey, error) { return GenerateEd25519(&deterministicReader{b: 7}) },
		GenerateECDSA,
	} {
		key, err := gen()
		require.NoError(t, err)

		parsed, err := ParsePrivateKey(key.String())
		require.NoError(t, err)
		assert.True(t, parsed.PublicKey().Equal(key.PublicKey()))

		pub, err := ParsePublicKey(key.PublicKey().String())
		require.NoError(t, err)
		assert.True(t, pub.Equal(key.PublicKey()))
	}
}

func TestSignaturePairTagsByAlgorithm(t *testing.T) {
	ed, err := GenerateEd25519(&deterministicReader{})
	require.NoError(t, err)
	ec, err := GenerateECDSA()
	require.NoError(t, err)

	edPair := SignWith(ed, []byte("m")).Wire()
	assert.Equal(t, wire.SignatureEd25519, edPair.Kind)
	assert.Equal(t, ed.PublicKey().Bytes(), edPair.PubKeyPrefix)

	ecPair := SignWith(ec, []byte("m")).Wire()
	assert.Equal(t, wire.SignatureECDSASecp256k1, ecPair.Kind)
	assert.Equal(t, ec.PublicKey().Bytes(), ecPair.PubKeyPrefix)
}

func TestSignerFunc(t *testing.T) {
	key, err := GenerateEd25519(&deterministicReader{})
	require.NoError(t, err)

	calls := 0
	s := SignerFunc(key.PublicKey(), func(m []byte) []byte {
		calls++
		return key.Sign(m)
	})
	sig := s.Sign([]byte("x"))
	assert.Equal(t, 1, calls)
	assert.True(t, s.PublicKey().Verify([]byte("x"), sig))
}

func TestKeyStoreSaveLoad(t *testing.T) {
	ks, err := OpenKeyStore(t.TempDir())
	require.NoError(t, err)

	key, err := GenerateEd25519(&deterministicReader{})
	require.NoError(t, err)
	account := model.NewAccountID(0, 0, 1001)

	_, err = ks.Save("operator", key, &account, false)
	require.NoError(t, err)
	_, err = ks.Save("operator", key, nil, false)
	require.Error(t, err, "existing key must not be replaced without overwrite")

	loaded, gotAccount, err := ks.Load("operator")
	require.NoError(t, err)
	assert.True(t, loaded.PublicKey().Equal(key.PublicKey()))
	require.NotNil(t, gotAccount)
	assert.Equal(t, account, *gotAccount)

	entries, err := ks.List()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "operator", entries[0].Name)

	require.Error(t, CheckKeyName("bad/name"))
}
