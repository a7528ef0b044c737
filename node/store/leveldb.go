/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package store

import (
	"github.com/hyperledger/fabric-x-dagpool/common/types"
	"github.com/hyperledger/fabric-x-dagpool/common/wire"
	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
)

const batchKeyPrefix = byte(0)

// LevelDBStore keeps batches in a leveldb database, keyed by digest.
type LevelDBStore struct {
	db     *leveldb.DB
	logger types.Logger
}

func NewLevelDBStore(path string, logger types.Logger) (*LevelDBStore, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "failed opening batch store at %s", path)
	}
	logger.Infof("Opened batch store at %s", path)
	return &LevelDBStore{db: db, logger: logger}, nil
}

func (s *LevelDBStore) Close() error {
	return s.db.Close()
}

func (s *LevelDBStore) Get(digest types.BatchDigest) (*types.Batch, error) {
	raw, err := s.db.Get(makeBatchKey(digest), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, s.translate(err)
	}

	batch, err := wire.UnmarshalBatch(raw)
	if err != nil {
		return nil, errors.Wrapf(err, "stored batch %s is corrupted", digest)
	}
	return batch, nil
}

func (s *LevelDBStore) Put(batch *types.Batch) (types.BatchDigest, error) {
	digest := batch.Digest()
	if err := s.db.Put(makeBatchKey(digest), wire.MarshalBatch(batch), nil); err != nil {
		return digest, s.translate(err)
	}
	s.logger.Debugf("Stored batch %s", types.BatchToString(batch))
	return digest, nil
}

func (s *LevelDBStore) Has(digest types.BatchDigest) (bool, error) {
	exists, err := s.db.Has(makeBatchKey(digest), nil)
	if err != nil {
		return false, s.translate(err)
	}
	return exists, nil
}

func (s *LevelDBStore) Delete(digests ...types.BatchDigest) error {
	batch := new(leveldb.Batch)
	for _, d := range digests {
		batch.Delete(makeBatchKey(d))
	}
	return s.translate(s.db.Write(batch, nil))
}

func (s *LevelDBStore) translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, leveldb.ErrClosed) {
		return ErrStoreClosed
	}
	return err
}

func makeBatchKey(digest types.BatchDigest) []byte {
	buff := make([]byte, types.DigestLength+1)
	buff[0] = batchKeyPrefix
	copy(buff[1:], digest[:])
	return buff
}
