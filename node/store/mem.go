/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package store

import (
	"sync"

	"github.com/hyperledger/fabric-x-dagpool/common/types"
)

// MemStore keeps batches in memory.
type MemStore struct {
	lock    sync.RWMutex
	batches map[types.BatchDigest]*types.Batch
	closed  bool
}

func NewMemStore() *MemStore {
	return &MemStore{batches: make(map[types.BatchDigest]*types.Batch)}
}

func (ms *MemStore) Get(digest types.BatchDigest) (*types.Batch, error) {
	ms.lock.RLock()
	defer ms.lock.RUnlock()
	if ms.closed {
		return nil, ErrStoreClosed
	}
	return ms.batches[digest], nil
}

func (ms *MemStore) Put(batch *types.Batch) (types.BatchDigest, error) {
	digest := batch.Digest()
	ms.lock.Lock()
	defer ms.lock.Unlock()
	if ms.closed {
		return digest, ErrStoreClosed
	}
	ms.batches[digest] = batch
	return digest, nil
}

func (ms *MemStore) Has(digest types.BatchDigest) (bool, error) {
	ms.lock.RLock()
	defer ms.lock.RUnlock()
	if ms.closed {
		return false, ErrStoreClosed
	}
	_, exists := ms.batches[digest]
	return exists, nil
}

func (ms *MemStore) Delete(digests ...types.BatchDigest) error {
	ms.lock.Lock()
	defer ms.lock.Unlock()
	if ms.closed {
		return ErrStoreClosed
	}
	for _, d := range digests {
		delete(ms.batches, d)
	}
	return nil
}

// Len returns the number of stored batches.
func (ms *MemStore) Len() int {
	ms.lock.RLock()
	defer ms.lock.RUnlock()
	return len(ms.batches)
}

func (ms *MemStore) Close() error {
	ms.lock.Lock()
	defer ms.lock.Unlock()
	ms.closed = true
	return nil
}
