// Package keys provides the signing capabilities the engine consumes.
//
// A Signer is an opaque pair of public key and byte-signing function. Private
// keys in this package are one way to obtain a Signer; callers holding keys in
// an HSM or remote service wrap them with SignerFunc.
//
// Supported algorithms:
//   - Ed25519 (signature over the raw message)
//   - ECDSA secp256k1 (signature over keccak256(message), 64 byte r||s)
//
// The filesystem KeyStore is a local convenience for the CLI and is not
// required by the engine.
package keys
