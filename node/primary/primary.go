/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package primary

import (
	"sync"

	"github.com/hyperledger/fabric-x-dagpool/common/monitoring"
	"github.com/hyperledger/fabric-x-dagpool/common/types"
	"github.com/hyperledger/fabric-x-dagpool/config"
	"github.com/hyperledger/fabric-x-dagpool/node/comm"
	"github.com/hyperledger/fabric-x-dagpool/node/store"
	"github.com/pkg/errors"
)

// Primary is a primary node: it records the batches its workers report and fetches batches from them.
type Primary struct {
	logger   types.Logger
	config   *config.NodeConfig
	store    store.BatchStore
	monitor  *monitoring.Monitor
	metrics  *PrimaryMetrics
	clients  []*comm.WorkerClient
	fetcher  *Fetcher
	intake   *Intake
	server   *comm.Server
	stopOnce sync.Once
	done     chan struct{}
}

// CreatePrimary builds a primary node from its configuration. Nothing is served until Start.
func CreatePrimary(conf *config.NodeConfig, logger types.Logger) (*Primary, error) {
	if conf.Primary == nil {
		return nil, errors.New("missing Primary section in the node configuration")
	}
	params := conf.Primary

	batchStore, err := store.Open(conf.StorePath, logger)
	if err != nil {
		return nil, err
	}

	monitor := monitoring.NewMonitor(conf.MonitoringListenAddress, logger)
	metrics := NewPrimaryMetrics(monitor.Provider, conf.ID, logger)

	p := &Primary{
		logger:  logger,
		config:  conf,
		store:   batchStore,
		monitor: monitor,
		metrics: metrics,
		intake:  NewIntake(batchStore, metrics, logger),
		done:    make(chan struct{}),
	}

	var cache *BatchCache
	if params.CacheSize > 0 {
		if cache, err = NewBatchCache(params.CacheSize); err != nil {
			p.closeResources()
			return nil, err
		}
	}

	requesters := make(map[types.WorkerID]BatchRequester, len(params.Workers))
	for id, endpoint := range params.Workers {
		client, err := comm.NewWorkerClient(endpoint, conf.MaxMessageBytes)
		if err != nil {
			p.closeResources()
			return nil, errors.Wrapf(err, "failed creating a client to worker %d", id)
		}
		p.clients = append(p.clients, client)
		requesters[id] = client
	}

	p.fetcher = NewFetcher(requesters, FetcherOptions{
		MaxRetries:     params.MaxRetries,
		RetryBackoff:   params.RetryBackoff,
		RequestTimeout: params.RequestTimeout,
	}, cache, metrics, logger)

	p.server, err = comm.NewServer(conf.ListenAddress, comm.ServerConfig{
		MaxRecvMsgSize: conf.MaxMessageBytes,
		MaxSendMsgSize: conf.MaxMessageBytes,
	}, logger)
	if err != nil {
		p.closeResources()
		return nil, err
	}
	p.server.RegisterPrimary(p.intake.Service())

	return p, nil
}

// Start serves in the background.
func (p *Primary) Start() error {
	if err := p.monitor.Start(); err != nil {
		return err
	}
	go func() {
		defer close(p.done)
		if err := p.server.Start(); err != nil {
			p.logger.Errorf("Primary %d stopped serving: %v", p.config.ID, err)
		}
	}()
	p.logger.Infof("Primary %d started on %s with %d workers", p.config.ID, p.Address(), len(p.clients))
	return nil
}

func (p *Primary) Stop() {
	p.stopOnce.Do(func() {
		p.logger.Infof("Stopping primary %d", p.config.ID)
		p.server.Stop()
		p.closeResources()
	})
}

// Done is closed once the server of a started primary returned.
func (p *Primary) Done() <-chan struct{} {
	return p.done
}

func (p *Primary) closeResources() {
	p.metrics.Stop()
	p.monitor.Stop()
	for _, c := range p.clients {
		if err := c.Close(); err != nil {
			p.logger.Warnf("Failed closing the connection to %s: %v", c.Endpoint(), err)
		}
	}
	if err := p.store.Close(); err != nil {
		p.logger.Warnf("Failed closing the batch store: %v", err)
	}
}

func (p *Primary) Address() string {
	return p.server.Address()
}

// MonitoringAddress returns the metrics URL, empty if monitoring is disabled.
func (p *Primary) MonitoringAddress() string {
	return p.monitor.Address()
}

func (p *Primary) Fetcher() *Fetcher {
	return p.fetcher
}

func (p *Primary) Intake() *Intake {
	return p.intake
}
