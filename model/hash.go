package model

import "encoding/hex"

// TransactionHash is the SHA-384 digest of a signed transaction's bytes.
type TransactionHash [48]byte

func (h TransactionHash) String() string { return hex.EncodeToString(h[:]) }

// FixedFee caps one custom fee, in tinybars or, when DenominatingTokenID is
// set, in units of that token.
type FixedFee struct {
	Amount              uint64
	DenominatingTokenID *EntityID
}

// CustomFeeLimit is the most the payer accepts to pay in custom fees to one
// collector account.
type CustomFeeLimit struct {
	AccountID *AccountID
	Fees      []FixedFee
}
