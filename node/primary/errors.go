/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package primary

import (
	"fmt"

	cerrors "github.com/cockroachdb/errors"
	"github.com/hyperledger/fabric-x-dagpool/common/types"
	"github.com/pkg/errors"
)

var (
	// ErrTransport marks every failure to exchange messages with a worker.
	ErrTransport     = errors.New("transport failure")
	ErrUnknownWorker = errors.New("unknown worker")
	ErrEmptyBatch    = errors.New("empty batch")
)

// TransportError is a terminal failure of a retrieval attempt, distinct from "not found".
type TransportError struct {
	Worker types.WorkerID
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport failure with worker %d: %v", e.Worker, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func newTransportError(worker types.WorkerID, err error) error {
	return cerrors.Mark(&TransportError{Worker: worker, Err: err}, ErrTransport)
}

// IsTransportError reports whether err, or any error it wraps, is a transport failure.
func IsTransportError(err error) bool {
	return cerrors.Is(err, ErrTransport)
}
