/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package types_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/hyperledger/fabric-x-dagpool/common/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeDigest(t *testing.T) {
	b := types.NewBatch([][]byte{{1, 2}, {3, 4}}, 100)
	d1 := b.Digest()
	d2 := b.Digest()
	require.Equal(t, d1, d2)
	require.Len(t, d1.Bytes(), types.DigestLength)

	// metadata does not change the content address
	b2 := types.NewBatch([][]byte{{1, 2}, {3, 4}}, 200)
	require.Equal(t, d1, b2.Digest())

	b3 := types.NewBatch([][]byte{{1, 2}, {3, 5}}, 100)
	require.NotEqual(t, d1, b3.Digest())

	// the empty batch has the digest of empty bytes
	require.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", types.NewBatch(nil, 0).Digest().String())
}

func TestDigestFromBytes(t *testing.T) {
	b := types.NewBatch([][]byte{{7}}, 0)
	d := b.Digest()

	decoded, err := types.DigestFromBytes(d.Bytes())
	require.NoError(t, err)
	require.Equal(t, d, decoded)

	for _, size := range []int{0, 1, types.DigestLength - 1, types.DigestLength + 1, 64} {
		_, err := types.DigestFromBytes(make([]byte, size))
		require.Error(t, err)
		assert.True(t, errors.Is(err, types.ErrInvalidLength))
		assert.False(t, errors.Is(err, types.ErrInvalidArgument))
		assert.EqualError(t, err, "invalid length")
	}

	// any byte value is valid in a raw digest
	raw := make([]byte, types.DigestLength)
	for i := range raw {
		raw[i] = 0xff
	}
	_, err = types.DigestFromBytes(raw)
	require.NoError(t, err)
}

func TestDigestFromBytesCopies(t *testing.T) {
	raw := make([]byte, types.DigestLength)
	d, err := types.DigestFromBytes(raw)
	require.NoError(t, err)
	raw[0] = 9
	require.Equal(t, byte(0), d[0])
}

func TestDigestFromHex(t *testing.T) {
	d := types.NewBatch([][]byte{{1}, {2}}, 0).Digest()

	decoded, err := types.DigestFromHex(d.String())
	require.NoError(t, err)
	require.Equal(t, d, decoded)

	decoded, err = types.DigestFromHex(strings.ToUpper(d.String()))
	require.NoError(t, err)
	require.Equal(t, d, decoded)

	t.Run("bad length", func(t *testing.T) {
		_, err := types.DigestFromHex("abcd")
		require.ErrorIs(t, err, types.ErrInvalidLength)
	})

	t.Run("bad char", func(t *testing.T) {
		s := []byte(d.String())
		s[5] = 'x'
		s[9] = 'z'
		_, err := types.DigestFromHex(string(s))
		require.ErrorIs(t, err, types.ErrInvalidArgument)
		var de *types.DigestError
		require.True(t, errors.As(err, &de))
		require.Equal(t, 5, de.Index)
		require.EqualError(t, err, "invalid argument: invalid byte at 5")
	})
}

func TestDigestOrdering(t *testing.T) {
	a := types.BatchDigest{0x00, 0x01}
	b := types.BatchDigest{0x00, 0x02}
	require.True(t, a.Less(b))
	require.False(t, b.Less(a))
	require.Equal(t, 0, a.Compare(a))
	require.Equal(t, -1, a.Compare(b))
	require.True(t, types.BatchDigest{}.IsZero())
	require.False(t, a.IsZero())
	require.Equal(t, "00010000", a.Short())
}

func TestBatch(t *testing.T) {
	b := types.NewBatch([][]byte{{1, 2, 3}, {4}}, 5)
	require.False(t, b.IsEmpty())
	require.True(t, types.NewBatch(nil, 5).IsEmpty())
	var nilBatch *types.Batch
	require.True(t, nilBatch.IsEmpty())

	require.True(t, b.Equal(types.NewBatch([][]byte{{1, 2, 3}, {4}}, 5)))
	require.False(t, b.Equal(types.NewBatch([][]byte{{1, 2, 3}, {4}}, 6)))
	require.False(t, b.Equal(types.NewBatch([][]byte{{1, 2, 3}}, 5)))
	require.False(t, b.Equal(nil))
	require.True(t, nilBatch.Equal(nil))
}
