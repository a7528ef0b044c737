/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package signal_test

import (
	"context"
	"sync"
	"time"

	"github.com/hyperledger/fabric-x-dagpool/common/signal"
	"github.com/hyperledger/fabric-x-dagpool/common/types"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Oneshot", func() {
	var (
		sender   *signal.Sender[int]
		receiver *signal.Receiver[int]
	)

	BeforeEach(func() {
		sender, receiver = signal.NewOneshot[int]()
	})

	It("delivers the value once", func() {
		Expect(sender.Send(7)).To(Succeed())
		Expect(sender.Fired()).To(BeTrue())

		v, err := receiver.Wait(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal(7))
	})

	It("rejects a second fire", func() {
		Expect(sender.Send(1)).To(Succeed())
		Expect(sender.Send(2)).To(MatchError(signal.ErrAlreadyFired))

		v, err := receiver.Wait(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal(1))
	})

	It("reports cancellation when the sender is dropped", func() {
		sender.Close()
		_, err := receiver.Wait(context.Background())
		Expect(err).To(MatchError(signal.ErrCancelled))
		Expect(sender.Send(3)).To(MatchError(signal.ErrAlreadyFired))
	})

	It("ignores close after send", func() {
		Expect(sender.Send(4)).To(Succeed())
		sender.Close()
		v, err := receiver.Wait(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal(4))
	})

	It("wakes up a blocked waiter", func() {
		result := make(chan int, 1)
		go func() {
			defer GinkgoRecover()
			v, err := receiver.Wait(context.Background())
			Expect(err).NotTo(HaveOccurred())
			result <- v
		}()

		Consistently(result, 50*time.Millisecond).ShouldNot(Receive())
		Expect(sender.Send(5)).To(Succeed())
		Eventually(result).Should(Receive(Equal(5)))
	})

	It("lets the waiter abandon without blocking the sender", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		_, err := receiver.Wait(ctx)
		Expect(err).To(MatchError(context.DeadlineExceeded))

		done := make(chan struct{})
		go func() {
			defer GinkgoRecover()
			defer close(done)
			Expect(sender.Send(6)).To(Succeed())
		}()
		Eventually(done).Should(BeClosed())
	})

	It("lets exactly one of many concurrent senders win", func() {
		var wg sync.WaitGroup
		var lock sync.Mutex
		var succeeded int
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				if sender.Send(i) == nil {
					lock.Lock()
					succeeded++
					lock.Unlock()
				}
			}(i)
		}
		wg.Wait()
		Expect(succeeded).To(Equal(1))
		_, err := receiver.Wait(context.Background())
		Expect(err).NotTo(HaveOccurred())
	})
})

var _ = Describe("Responses", func() {
	It("treats an absent primary response as a no-op", func() {
		var ack signal.PrimaryResponse
		Expect(ack.Send(struct{}{})).To(Succeed())
		ack.Close()
		Expect(ack.Fired()).To(BeFalse())
	})

	It("carries the batch digest to the submitter", func() {
		tx, rcv := signal.NewTxResponse()
		d := types.NewBatch([][]byte{{1}}, 0).Digest()
		Expect(tx.Send(d)).To(Succeed())
		got, err := rcv.Wait(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(got).To(Equal(d))
	})

	It("acknowledges the worker", func() {
		ack, rcv := signal.NewPrimaryResponse()
		Expect(ack.Send(struct{}{})).To(Succeed())
		_, err := rcv.Wait(context.Background())
		Expect(err).NotTo(HaveOccurred())
	})
})
