/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package types

import (
	"fmt"
	"strings"
)

// DigestsToString renders a list of digests in their short form.
func DigestsToString(digests []BatchDigest) string {
	short := make([]string, 0, len(digests))
	for _, d := range digests {
		short = append(short, d.Short())
	}
	return "[" + strings.Join(short, " ") + "]"
}

// BatchToString describes a batch for logging.
func BatchToString(b *Batch) string {
	if b == nil {
		return "<nil>"
	}
	payload := 0
	for _, tx := range b.Transactions {
		payload += len(tx)
	}
	return fmt.Sprintf("Dg,Txs,Sz: <%s,%d,%d>", b.Digest().Short(), len(b.Transactions), payload)
}
