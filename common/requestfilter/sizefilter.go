/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package requestfilter

import (
	"github.com/pkg/errors"
)

var (
	ErrEmptyTx  = errors.New("empty transaction")
	ErrTxTooBig = errors.New("transaction exceeds the batch size limit")
)

type MaxSizeFilter struct {
	maxSizeBytes int
}

func NewMaxSizeFilter(config FilterConfig) *MaxSizeFilter {
	return &MaxSizeFilter{maxSizeBytes: config.GetTxMaxBytes()}
}

// Verify checks that the size of the transaction does not exceed the maximal size in bytes.
func (ms *MaxSizeFilter) Verify(tx []byte) error {
	if len(tx) > ms.maxSizeBytes {
		return errors.Wrapf(ErrTxTooBig, "actual = %d, limit = %d", len(tx), ms.maxSizeBytes)
	}
	return nil
}

// TxNotEmptyRule - checks that the transaction carries at least one byte.
type TxNotEmptyRule struct{}

func (r TxNotEmptyRule) Verify(tx []byte) error {
	if len(tx) == 0 {
		return ErrEmptyTx
	}
	return nil
}
