/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package signal provides single use notifications between exactly one producer and one consumer.
package signal

import (
	"context"
	"sync/atomic"

	"github.com/pkg/errors"
)

var (
	// ErrAlreadyFired is returned when a sender is used after it fired or was closed.
	ErrAlreadyFired = errors.New("signal already fired")
	// ErrCancelled is observed by a receiver whose sender was closed without firing.
	ErrCancelled = errors.New("signal cancelled")
)

type slot[T any] struct {
	fired atomic.Bool
	// ch has room for the single value, so firing never blocks even if the receiver is gone.
	ch chan T
}

// Sender is the producing end of a oneshot signal.
// A nil *Sender is valid and means nobody listens: Send and Close on it are no-ops.
type Sender[T any] struct {
	s *slot[T]
}

// Receiver is the consuming end of a oneshot signal.
type Receiver[T any] struct {
	s *slot[T]
}

// NewOneshot creates a connected sender and receiver.
func NewOneshot[T any]() (*Sender[T], *Receiver[T]) {
	s := &slot[T]{ch: make(chan T, 1)}
	return &Sender[T]{s: s}, &Receiver[T]{s: s}
}

// Send delivers v to the receiver. Only the first call on a sender that was not closed succeeds.
func (snd *Sender[T]) Send(v T) error {
	if snd == nil {
		return nil
	}
	if !snd.s.fired.CompareAndSwap(false, true) {
		return ErrAlreadyFired
	}
	snd.s.ch <- v
	close(snd.s.ch)
	return nil
}

// Close drops the sender without firing. The receiver then observes ErrCancelled.
// Closing a sender that already fired does nothing.
func (snd *Sender[T]) Close() {
	if snd == nil {
		return
	}
	if snd.s.fired.CompareAndSwap(false, true) {
		close(snd.s.ch)
	}
}

// Fired reports whether the sender was used, either by Send or by Close.
func (snd *Sender[T]) Fired() bool {
	if snd == nil {
		return false
	}
	return snd.s.fired.Load()
}

// Wait blocks until the value is delivered, the sender is closed, or ctx is done.
// The value is handed out once; waiting again after receiving it returns ErrCancelled.
// Abandoning the wait through ctx leaves the sender usable and never blocks it.
func (rcv *Receiver[T]) Wait(ctx context.Context) (T, error) {
	var zero T
	select {
	case v, ok := <-rcv.s.ch:
		if !ok {
			return zero, ErrCancelled
		}
		return v, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
