/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package worker

import (
	"github.com/hyperledger/fabric-x-dagpool/common/requestfilter"
	"github.com/pkg/errors"
)

var (
	ErrPoolFull = errors.New("transaction pool is full")
	ErrStopped  = errors.New("batch maker stopped")
	ErrTxTooBig = requestfilter.ErrTxTooBig
	ErrEmptyTx  = requestfilter.ErrEmptyTx
)
