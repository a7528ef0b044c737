/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package requestfilter

// Rule admits or refuses a single transaction.
type Rule interface {
	Verify(tx []byte) error
}

// FilterConfig is an interface that gives the necessary information to build rules.
type FilterConfig interface {
	GetTxMaxBytes() int
}
