/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package types

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// Transactions is the canonical ordered list of raw transactions in a batch.
type Transactions [][]byte

// Serialize returns the canonical encoding: every transaction prefixed by its 4 byte big endian length.
func (txs Transactions) Serialize() []byte {
	if len(txs) == 0 {
		return nil
	}

	size := 4 * len(txs)
	for _, tx := range txs {
		size += len(tx)
	}

	buff := make([]byte, size)

	var pos int
	for _, tx := range txs {
		binary.BigEndian.PutUint32(buff[pos:], uint32(len(tx)))
		pos += 4
		copy(buff[pos:], tx)
		pos += len(tx)
	}

	return buff
}

// Deserialize parses the canonical encoding produced by Serialize.
func (txs *Transactions) Deserialize(bytes []byte) error {
	*txs = Transactions{}
	if len(bytes) == 0 {
		return errors.Errorf("nil bytes")
	}
	for len(bytes) > 0 {
		if len(bytes) < 4 {
			return errors.Errorf("size of tx is not encoded correctly")
		}
		size := binary.BigEndian.Uint32(bytes[0:4])
		bytes = bytes[4:]
		if uint64(len(bytes)) < uint64(size) {
			return errors.Errorf("there is no tx with a size of %d", size)
		}
		*txs = append(*txs, bytes[0:size:size])
		bytes = bytes[size:]
	}

	return nil
}

// Digest returns the digest of the canonical encoding.
func (txs Transactions) Digest() BatchDigest {
	return ComputeDigest(txs.Serialize())
}
