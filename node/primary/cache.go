/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package primary

import (
	lru "github.com/hashicorp/golang-lru"
	"github.com/hyperledger/fabric-x-dagpool/common/types"
	"github.com/pkg/errors"
)

// BatchCache keeps recently validated batches in memory. A nil *BatchCache caches nothing.
type BatchCache struct {
	arc *lru.ARCCache
}

func NewBatchCache(size int) (*BatchCache, error) {
	arc, err := lru.NewARC(size)
	if err != nil {
		return nil, errors.Wrapf(err, "failed creating a batch cache of size %d", size)
	}
	return &BatchCache{arc: arc}, nil
}

// Add caches a batch under the given digest. Callers add only batches whose digest they verified.
func (c *BatchCache) Add(digest types.BatchDigest, batch *types.Batch) {
	if c == nil || batch == nil {
		return
	}
	c.arc.Add(digest, batch)
}

func (c *BatchCache) Get(digest types.BatchDigest) (*types.Batch, bool) {
	if c == nil {
		return nil, false
	}
	v, ok := c.arc.Get(digest)
	if !ok {
		return nil, false
	}
	return v.(*types.Batch), true
}

func (c *BatchCache) Len() int {
	if c == nil {
		return 0
	}
	return c.arc.Len()
}
