/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package wire encodes the batch retrieval messages in protobuf wire format.
//
// Every top level message starts with a version field. Field numbers below are part of the
// protocol and must not be reused.
package wire

import (
	"math"

	"github.com/hyperledger/fabric-x-dagpool/common/types"
	"github.com/pkg/errors"
	"google.golang.org/protobuf/encoding/protowire"
)

// Version is the current encoding version.
const Version = 1

const (
	fieldVersion protowire.Number = 1

	// Batch
	fieldBatchTransactions protowire.Number = 1
	fieldBatchCreatedAt    protowire.Number = 2

	// WorkerBatchMessage, RequestBatchResponse
	fieldBatch protowire.Number = 2

	// RequestBatchRequest
	fieldDigest protowire.Number = 2

	// RequestBatchesRequest
	fieldDigests protowire.Number = 2

	// RequestBatchesResponse
	fieldBatches            protowire.Number = 2
	fieldIsSizeLimitReached protowire.Number = 3

	// SubmitTransactionRequest
	fieldTx protowire.Number = 2

	// SubmitTransactionResponse
	fieldSubmittedBatch protowire.Number = 2
)

// MarshalBatch encodes a batch.
func MarshalBatch(b *types.Batch) []byte {
	var buff []byte
	for _, tx := range b.Transactions {
		buff = protowire.AppendTag(buff, fieldBatchTransactions, protowire.BytesType)
		buff = protowire.AppendBytes(buff, tx)
	}
	if b.Metadata.CreatedAt != 0 {
		buff = protowire.AppendTag(buff, fieldBatchCreatedAt, protowire.VarintType)
		buff = protowire.AppendVarint(buff, uint64(b.Metadata.CreatedAt))
	}
	return buff
}

// TxSize is the number of bytes tx adds to an encoded batch.
func TxSize(tx []byte) int {
	return protowire.SizeTag(fieldBatchTransactions) + protowire.SizeBytes(len(tx))
}

// MaxMetadataSize bounds the number of bytes the metadata adds to an encoded batch.
func MaxMetadataSize() int {
	return protowire.SizeTag(fieldBatchCreatedAt) + protowire.SizeVarint(math.MaxUint64)
}

// BatchSize is the length of MarshalBatch(b), computed without encoding it.
func BatchSize(b *types.Batch) int {
	size := 0
	for _, tx := range b.Transactions {
		size += TxSize(tx)
	}
	if b.Metadata.CreatedAt != 0 {
		size += protowire.SizeTag(fieldBatchCreatedAt) + protowire.SizeVarint(uint64(b.Metadata.CreatedAt))
	}
	return size
}

// MaxTxLen is the length of the largest transaction that fits alone in a batch
// encoded within maxBatchBytes. It is not positive when no transaction fits.
func MaxTxLen(maxBatchBytes int) int {
	if maxBatchBytes <= 0 {
		return 0
	}
	return maxBatchBytes - MaxMetadataSize() - protowire.SizeTag(fieldBatchTransactions) - protowire.SizeVarint(uint64(maxBatchBytes))
}

// ResponseBatchSize is the number of bytes b adds to an encoded RequestBatchesResponse.
func ResponseBatchSize(b *types.Batch) int {
	return protowire.SizeTag(fieldBatches) + protowire.SizeBytes(BatchSize(b))
}

// ResponseOverhead is the size of an encoded RequestBatchesResponse without batches, size limit flag included.
func ResponseOverhead() int {
	return protowire.SizeTag(fieldVersion) + protowire.SizeVarint(Version) +
		protowire.SizeTag(fieldIsSizeLimitReached) + protowire.SizeVarint(protowire.EncodeBool(true))
}

// MaxSingleBatchMessageSize bounds the encoding of any message that carries one batch
// of at most maxBatchBytes encoded bytes.
func MaxSingleBatchMessageSize(maxBatchBytes int) int {
	return ResponseOverhead() + protowire.SizeTag(fieldBatches) + protowire.SizeBytes(maxBatchBytes)
}

// UnmarshalBatch decodes a batch encoded by MarshalBatch.
func UnmarshalBatch(raw []byte) (*types.Batch, error) {
	b := &types.Batch{Transactions: types.Transactions{}}
	err := consumeFields(raw, func(num protowire.Number, typ protowire.Type, value []byte) (int, error) {
		switch {
		case num == fieldBatchTransactions && typ == protowire.BytesType:
			tx, n := protowire.ConsumeBytes(value)
			if n < 0 {
				return 0, errors.Wrap(protowire.ParseError(n), "failed decoding transaction")
			}
			b.Transactions = append(b.Transactions, append([]byte{}, tx...))
			return n, nil
		case num == fieldBatchCreatedAt && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(value)
			if n < 0 {
				return 0, errors.Wrap(protowire.ParseError(n), "failed decoding creation time")
			}
			b.Metadata.CreatedAt = int64(v)
			return n, nil
		}
		return skip(num, typ, value)
	})
	if err != nil {
		return nil, errors.Wrap(err, "malformed batch")
	}
	return b, nil
}

// Marshal encodes one of the protocol messages, passed by pointer.
func Marshal(msg interface{}) ([]byte, error) {
	buff := protowire.AppendTag(nil, fieldVersion, protowire.VarintType)
	buff = protowire.AppendVarint(buff, Version)

	switch m := msg.(type) {
	case *types.WorkerBatchMessage:
		if m.Batch == nil {
			return nil, errors.New("worker batch message without a batch")
		}
		buff = appendBatch(buff, fieldBatch, m.Batch)
	case *types.RequestBatchRequest:
		buff = protowire.AppendTag(buff, fieldDigest, protowire.BytesType)
		buff = protowire.AppendBytes(buff, m.Batch[:])
	case *types.RequestBatchResponse:
		if m.Batch != nil {
			buff = appendBatch(buff, fieldBatch, m.Batch)
		}
	case *types.RequestBatchesRequest:
		for _, d := range m.BatchDigests {
			buff = protowire.AppendTag(buff, fieldDigests, protowire.BytesType)
			buff = protowire.AppendBytes(buff, d[:])
		}
	case *types.RequestBatchesResponse:
		for _, b := range m.Batches {
			if b == nil {
				return nil, errors.New("nil batch in response")
			}
			buff = appendBatch(buff, fieldBatches, b)
		}
		if m.IsSizeLimitReached {
			buff = protowire.AppendTag(buff, fieldIsSizeLimitReached, protowire.VarintType)
			buff = protowire.AppendVarint(buff, protowire.EncodeBool(true))
		}
	case *types.SubmitTransactionRequest:
		buff = protowire.AppendTag(buff, fieldTx, protowire.BytesType)
		buff = protowire.AppendBytes(buff, m.Tx)
	case *types.SubmitTransactionResponse:
		buff = protowire.AppendTag(buff, fieldSubmittedBatch, protowire.BytesType)
		buff = protowire.AppendBytes(buff, m.Batch[:])
	default:
		return nil, errors.Errorf("unsupported message type %T", msg)
	}

	return buff, nil
}

// Unmarshal decodes raw into one of the protocol messages, passed by pointer.
// Digests are decoded with types.DigestFromBytes, so a wrong width surfaces as a *types.DigestError.
func Unmarshal(raw []byte, msg interface{}) error {
	var version uint64
	var handle func(num protowire.Number, typ protowire.Type, value []byte) (int, error)

	switch m := msg.(type) {
	case *types.WorkerBatchMessage:
		*m = types.WorkerBatchMessage{}
		handle = batchField(fieldBatch, func(b *types.Batch) { m.Batch = b })
	case *types.RequestBatchRequest:
		*m = types.RequestBatchRequest{}
		handle = digestField(fieldDigest, func(d types.BatchDigest) { m.Batch = d })
	case *types.RequestBatchResponse:
		*m = types.RequestBatchResponse{}
		handle = batchField(fieldBatch, func(b *types.Batch) { m.Batch = b })
	case *types.RequestBatchesRequest:
		*m = types.RequestBatchesRequest{}
		handle = digestField(fieldDigests, func(d types.BatchDigest) { m.BatchDigests = append(m.BatchDigests, d) })
	case *types.RequestBatchesResponse:
		*m = types.RequestBatchesResponse{}
		batches := batchField(fieldBatches, func(b *types.Batch) { m.Batches = append(m.Batches, b) })
		handle = func(num protowire.Number, typ protowire.Type, value []byte) (int, error) {
			if num == fieldIsSizeLimitReached && typ == protowire.VarintType {
				v, n := protowire.ConsumeVarint(value)
				if n < 0 {
					return 0, errors.Wrap(protowire.ParseError(n), "failed decoding size limit flag")
				}
				m.IsSizeLimitReached = protowire.DecodeBool(v)
				return n, nil
			}
			return batches(num, typ, value)
		}
	case *types.SubmitTransactionRequest:
		*m = types.SubmitTransactionRequest{}
		handle = func(num protowire.Number, typ protowire.Type, value []byte) (int, error) {
			if num != fieldTx || typ != protowire.BytesType {
				return skip(num, typ, value)
			}
			tx, n := protowire.ConsumeBytes(value)
			if n < 0 {
				return 0, errors.Wrap(protowire.ParseError(n), "failed decoding transaction")
			}
			m.Tx = append([]byte{}, tx...)
			return n, nil
		}
	case *types.SubmitTransactionResponse:
		*m = types.SubmitTransactionResponse{}
		handle = digestField(fieldSubmittedBatch, func(d types.BatchDigest) { m.Batch = d })
	default:
		return errors.Errorf("unsupported message type %T", msg)
	}

	err := consumeFields(raw, func(num protowire.Number, typ protowire.Type, value []byte) (int, error) {
		if num == fieldVersion && typ == protowire.VarintType {
			v, n := protowire.ConsumeVarint(value)
			if n < 0 {
				return 0, errors.Wrap(protowire.ParseError(n), "failed decoding version")
			}
			version = v
			return n, nil
		}
		return handle(num, typ, value)
	})
	if err != nil {
		return errors.Wrapf(err, "failed decoding %T", msg)
	}
	if version > Version {
		return errors.Errorf("unsupported version %d of %T, expected at most %d", version, msg, Version)
	}
	return nil
}

func appendBatch(buff []byte, num protowire.Number, b *types.Batch) []byte {
	buff = protowire.AppendTag(buff, num, protowire.BytesType)
	return protowire.AppendBytes(buff, MarshalBatch(b))
}

func batchField(field protowire.Number, set func(*types.Batch)) func(protowire.Number, protowire.Type, []byte) (int, error) {
	return func(num protowire.Number, typ protowire.Type, value []byte) (int, error) {
		if num != field || typ != protowire.BytesType {
			return skip(num, typ, value)
		}
		raw, n := protowire.ConsumeBytes(value)
		if n < 0 {
			return 0, errors.Wrap(protowire.ParseError(n), "failed decoding batch")
		}
		b, err := UnmarshalBatch(raw)
		if err != nil {
			return 0, err
		}
		set(b)
		return n, nil
	}
}

func digestField(field protowire.Number, set func(types.BatchDigest)) func(protowire.Number, protowire.Type, []byte) (int, error) {
	return func(num protowire.Number, typ protowire.Type, value []byte) (int, error) {
		if num != field || typ != protowire.BytesType {
			return skip(num, typ, value)
		}
		raw, n := protowire.ConsumeBytes(value)
		if n < 0 {
			return 0, errors.Wrap(protowire.ParseError(n), "failed decoding digest")
		}
		d, err := types.DigestFromBytes(raw)
		if err != nil {
			return 0, err
		}
		set(d)
		return n, nil
	}
}

// consumeFields walks the fields of raw, handing each value to handle which returns the number of bytes it consumed.
func consumeFields(raw []byte, handle func(num protowire.Number, typ protowire.Type, value []byte) (int, error)) error {
	for len(raw) > 0 {
		num, typ, n := protowire.ConsumeTag(raw)
		if n < 0 {
			return errors.Wrap(protowire.ParseError(n), "failed decoding tag")
		}
		raw = raw[n:]
		m, err := handle(num, typ, raw)
		if err != nil {
			return err
		}
		raw = raw[m:]
	}
	return nil
}

// skip ignores fields this version does not know.
func skip(num protowire.Number, typ protowire.Type, value []byte) (int, error) {
	n := protowire.ConsumeFieldValue(num, typ, value)
	if n < 0 {
		return 0, errors.Wrapf(protowire.ParseError(n), "failed skipping field %d", num)
	}
	return n, nil
}
