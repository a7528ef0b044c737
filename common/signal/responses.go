/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package signal

import (
	"github.com/hyperledger/fabric-x-dagpool/common/types"
)

// TxResponse tells a transaction submitter the digest of the batch that absorbed its transaction.
type TxResponse = *Sender[types.BatchDigest]

// PrimaryResponse tells a worker that the primary durably recorded a batch reference.
// It is nil when nobody waits for that guarantee.
type PrimaryResponse = *Sender[struct{}]

// NewTxResponse creates the completion signal of an admitted transaction.
func NewTxResponse() (TxResponse, *Receiver[types.BatchDigest]) {
	return NewOneshot[types.BatchDigest]()
}

// NewPrimaryResponse creates an acknowledgment signal for a reported batch.
func NewPrimaryResponse() (PrimaryResponse, *Receiver[struct{}]) {
	return NewOneshot[struct{}]()
}
