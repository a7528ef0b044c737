/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package utils

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/hyperledger/fabric-x-dagpool/common/types"
)

type NodeStopper interface {
	Stop()
}

// StopSignalListen stops node on SIGTERM or SIGINT, until stopChan is closed.
func StopSignalListen(stopChan <-chan struct{}, node NodeStopper, logger types.Logger, nodeAddr string) {
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		defer signal.Stop(signalChan)

		select {
		case sig := <-signalChan:
			logger.Infof("%s signal caught, the node listening on %s is about to shutdown", sig, nodeAddr)
			node.Stop()
		case <-stopChan:
			logger.Debugf("Exit StopSignalListen routine")
		}
	}()
}
