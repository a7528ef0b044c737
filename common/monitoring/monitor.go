/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package monitoring

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/hyperledger/fabric-x-dagpool/common/types"
	"github.com/pkg/errors"
)

// Monitor serves the metrics of a node over HTTP.
type Monitor struct {
	Provider *Provider
	logger   types.Logger
	address  string
	stop     context.CancelFunc
	done     chan struct{}
	listener net.Listener
	lock     sync.Mutex
}

// NewMonitor creates a monitor that will listen on address once started.
// An empty address disables the HTTP endpoint but keeps the provider usable.
func NewMonitor(address string, logger types.Logger) *Monitor {
	return &Monitor{Provider: NewProvider(logger), address: address, logger: logger}
}

// Start binds the listener and serves in the background.
func (m *Monitor) Start() error {
	if m.address == "" {
		m.logger.Infof("Monitoring endpoint disabled")
		return nil
	}

	listener, err := net.Listen("tcp", m.address)
	if err != nil {
		return errors.Wrapf(err, "failed to listen on %s", m.address)
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.lock.Lock()
	m.listener = listener
	m.stop = cancel
	m.done = make(chan struct{})
	m.lock.Unlock()

	go func() {
		defer close(m.done)
		if err := m.Provider.StartPrometheusServer(ctx, listener); err != nil {
			m.logger.Errorf("Monitoring server stopped: %v", err)
		}
	}()
	return nil
}

// Stop shuts the HTTP endpoint down and waits for it to exit.
func (m *Monitor) Stop() {
	m.lock.Lock()
	stop, done := m.stop, m.done
	m.stop = nil
	m.lock.Unlock()

	if stop == nil {
		return
	}
	stop()
	<-done
}

// Address returns the metrics URL, or an empty string if the monitor is not serving.
func (m *Monitor) Address() string {
	m.lock.Lock()
	defer m.lock.Unlock()
	if m.listener == nil {
		return ""
	}
	return fmt.Sprintf("http://%s%s", m.listener.Addr().String(), metricsSubPath)
}
