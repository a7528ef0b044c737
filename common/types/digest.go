/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package types

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/pkg/errors"
)

// DigestLength is the width in bytes of a BatchDigest.
const DigestLength = sha256.Size

// BatchDigest is the content address of a batch.
type BatchDigest [DigestLength]byte

var (
	ErrInvalidLength   = errors.New("invalid length")
	ErrInvalidArgument = errors.New("invalid argument")
)

// DigestErrorKind tells which check a digest failed when decoded from external bytes.
type DigestErrorKind int

const (
	InvalidLength DigestErrorKind = iota
	InvalidArgument
)

// DigestError is returned when external bytes cannot be decoded into a BatchDigest.
type DigestError struct {
	Kind DigestErrorKind
	// Index is the first offending position, only meaningful for InvalidArgument.
	Index int
}

func (e *DigestError) Error() string {
	if e.Kind == InvalidArgument {
		return fmt.Sprintf("invalid argument: invalid byte at %d", e.Index)
	}
	return "invalid length"
}

func (e *DigestError) Is(target error) bool {
	switch target {
	case ErrInvalidLength:
		return e.Kind == InvalidLength
	case ErrInvalidArgument:
		return e.Kind == InvalidArgument
	}
	return false
}

// ComputeDigest hashes the canonical encoding of a batch.
func ComputeDigest(canonical []byte) BatchDigest {
	return sha256.Sum256(canonical)
}

// DigestFromBytes decodes a raw digest, which must be exactly DigestLength bytes.
func DigestFromBytes(raw []byte) (BatchDigest, error) {
	var d BatchDigest
	if len(raw) != DigestLength {
		return d, &DigestError{Kind: InvalidLength}
	}
	copy(d[:], raw)
	return d, nil
}

// DigestFromHex decodes the hexadecimal representation of a digest.
// The first character that is not a hex digit is reported as an InvalidArgument at its index.
func DigestFromHex(s string) (BatchDigest, error) {
	var d BatchDigest
	for i := 0; i < len(s); i++ {
		if !isHexChar(s[i]) {
			return d, &DigestError{Kind: InvalidArgument, Index: i}
		}
	}
	if len(s) != 2*DigestLength {
		return d, &DigestError{Kind: InvalidLength}
	}
	if _, err := hex.Decode(d[:], []byte(s)); err != nil {
		return d, &DigestError{Kind: InvalidArgument}
	}
	return d, nil
}

func isHexChar(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}

// Bytes returns a copy of the digest as a slice.
func (d BatchDigest) Bytes() []byte {
	b := make([]byte, DigestLength)
	copy(b, d[:])
	return b
}

func (d BatchDigest) String() string {
	return hex.EncodeToString(d[:])
}

// Short returns the first 8 hex characters, for logs.
func (d BatchDigest) Short() string {
	return hex.EncodeToString(d[:4])
}

// Compare orders digests byte-wise.
func (d BatchDigest) Compare(o BatchDigest) int {
	return bytes.Compare(d[:], o[:])
}

func (d BatchDigest) Less(o BatchDigest) bool {
	return d.Compare(o) < 0
}

// IsZero reports whether the digest is all zeroes, which no batch hashes to in practice.
func (d BatchDigest) IsZero() bool {
	return d == BatchDigest{}
}
