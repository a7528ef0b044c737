/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package primary

// RetrievalState is the phase of a batch retrieval.
// A retrieval goes Issued, AwaitingResponse, Resolved, then either Done or Retry which issues again.
type RetrievalState int

const (
	Issued RetrievalState = iota
	AwaitingResponse
	Resolved
	Retry
	Done
)

func (s RetrievalState) String() string {
	switch s {
	case Issued:
		return "Issued"
	case AwaitingResponse:
		return "AwaitingResponse"
	case Resolved:
		return "Resolved"
	case Retry:
		return "Retry"
	case Done:
		return "Done"
	default:
		return "Unknown"
	}
}

// next reports whether moving from s to to is a legal transition.
func (s RetrievalState) next(to RetrievalState) bool {
	switch s {
	case Issued:
		return to == AwaitingResponse
	case AwaitingResponse:
		return to == Resolved || to == Done
	case Resolved:
		return to == Retry || to == Done
	case Retry:
		return to == Issued || to == Done
	default:
		return false
	}
}
