package model

import "fmt"

// Status is a network response code, used both for precheck verdicts and
// for receipt (consensus) outcomes.
type Status int32

const (
	StatusOK                            Status = 0
	StatusInvalidTransaction            Status = 1
	StatusPayerAccountNotFound          Status = 2
	StatusInvalidNodeAccount            Status = 3
	StatusTransactionExpired            Status = 4
	StatusInvalidTransactionStart       Status = 5
	StatusInvalidTransactionDuration    Status = 6
	StatusInvalidSignature              Status = 7
	StatusMemoTooLong                   Status = 8
	StatusInsufficientTxFee             Status = 9
	StatusInsufficientPayerBalance      Status = 10
	StatusDuplicateTransaction          Status = 11
	StatusBusy                          Status = 12
	StatusNotSupported                  Status = 13
	StatusInvalidFileID                 Status = 14
	StatusInvalidAccountID              Status = 15
	StatusInvalidTransactionID          Status = 17
	StatusReceiptNotFound               Status = 18
	StatusUnknown                       Status = 21
	StatusSuccess                       Status = 22
	StatusInvalidAccountAmounts         Status = 48
	StatusInvalidTransactionBody        Status = 50
	StatusPlatformTransactionNotCreated Status = 64
	StatusPlatformNotActive             Status = 67
	StatusInvalidTopicID                Status = 150
	StatusInvalidChunkNumber            Status = 163
	StatusInvalidChunkTransactionID     Status = 164
)

var statusNames = map[Status]string{
	StatusOK:                            "OK",
	StatusInvalidTransaction:            "INVALID_TRANSACTION",
	StatusPayerAccountNotFound:          "PAYER_ACCOUNT_NOT_FOUND",
	StatusInvalidNodeAccount:            "INVALID_NODE_ACCOUNT",
	StatusTransactionExpired:            "TRANSACTION_EXPIRED",
	StatusInvalidTransactionStart:       "INVALID_TRANSACTION_START",
	StatusInvalidTransactionDuration:    "INVALID_TRANSACTION_DURATION",
	StatusInvalidSignature:              "INVALID_SIGNATURE",
	StatusMemoTooLong:                   "MEMO_TOO_LONG",
	StatusInsufficientTxFee:             "INSUFFICIENT_TX_FEE",
	StatusInsufficientPayerBalance:      "INSUFFICIENT_PAYER_BALANCE",
	StatusDuplicateTransaction:          "DUPLICATE_TRANSACTION",
	StatusBusy:                          "BUSY",
	StatusNotSupported:                  "NOT_SUPPORTED",
	StatusInvalidFileID:                 "INVALID_FILE_ID",
	StatusInvalidAccountID:              "INVALID_ACCOUNT_ID",
	StatusInvalidTransactionID:          "INVALID_TRANSACTION_ID",
	StatusReceiptNotFound:               "RECEIPT_NOT_FOUND",
	StatusUnknown:                       "UNKNOWN",
	StatusSuccess:                       "SUCCESS",
	StatusInvalidAccountAmounts:         "INVALID_ACCOUNT_AMOUNTS",
	StatusInvalidTransactionBody:        "INVALID_TRANSACTION_BODY",
	StatusPlatformTransactionNotCreated: "PLATFORM_TRANSACTION_NOT_CREATED",
	StatusPlatformNotActive:             "PLATFORM_NOT_ACTIVE",
	StatusInvalidTopicID:                "INVALID_TOPIC_ID",
	StatusInvalidChunkNumber:            "INVALID_CHUNK_NUMBER",
	StatusInvalidChunkTransactionID:     "INVALID_CHUNK_TRANSACTION_ID",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("STATUS(%d)", int32(s))
}
