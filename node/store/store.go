/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package store

import (
	"github.com/hyperledger/fabric-x-dagpool/common/types"
	"github.com/pkg/errors"
)

var ErrStoreClosed = errors.New("batch store closed")

// BatchStore persists sealed batches by digest.
type BatchStore interface {
	// Get returns the batch stored under digest, or nil if there is none.
	Get(digest types.BatchDigest) (*types.Batch, error)
	// Put stores the batch under its digest and returns it.
	Put(batch *types.Batch) (types.BatchDigest, error)
	Has(digest types.BatchDigest) (bool, error)
	Delete(digests ...types.BatchDigest) error
	Close() error
}

// Open returns a LevelDB store at path, or an in-memory store when path is empty.
func Open(path string, logger types.Logger) (BatchStore, error) {
	if path == "" {
		logger.Infof("No store path configured, keeping batches in memory")
		return NewMemStore(), nil
	}
	s, err := NewLevelDBStore(path, logger)
	if err != nil {
		return nil, err
	}
	return s, nil
}
