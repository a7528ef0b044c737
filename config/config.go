/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package config

import (
	"net"
	"os"
	"time"

	"github.com/hyperledger/fabric-x-dagpool/common/types"
	"github.com/hyperledger/fabric-x-dagpool/common/wire"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// NodeConfig controls the configuration of a dagpool node.
// A worker node fills the Worker section, a primary node fills the Primary section.
type NodeConfig struct {
	// ID identifies the node among its peers
	ID types.WorkerID `yaml:"ID,omitempty"`
	// ListenAddress is the host:port on which the gRPC server binds
	ListenAddress string `yaml:"ListenAddress,omitempty"`
	// MonitoringListenAddress is the host:port of the prometheus endpoint, empty disables it
	MonitoringListenAddress string `yaml:"MonitoringListenAddress,omitempty"`
	// LogSpec controls the logging level of the node
	LogSpec string `yaml:"LogSpec,omitempty"`
	// StorePath is the directory of the batch store, empty keeps batches in memory
	StorePath string `yaml:"StorePath,omitempty"`
	// MaxMessageBytes bounds the size of gRPC messages in both directions
	MaxMessageBytes int `yaml:"MaxMessageBytes,omitempty"`
	// Worker controls worker specific params
	Worker *WorkerParams `yaml:"Worker,omitempty"`
	// Primary controls primary specific params
	Primary *PrimaryParams `yaml:"Primary,omitempty"`
}

type WorkerParams struct {
	// BatchMaxCount is the number of transactions that seals a batch
	BatchMaxCount int `yaml:"BatchMaxCount,omitempty"`
	// BatchMaxBytes bounds the encoded size of a batch
	BatchMaxBytes int `yaml:"BatchMaxBytes,omitempty"`
	// BatchTimeout seals a non empty batch that did not fill up in time
	BatchTimeout time.Duration `yaml:"BatchTimeout,omitempty"`
	// PoolCapacity is the number of admitted transactions waiting to be sealed
	PoolCapacity int `yaml:"PoolCapacity,omitempty"`
	// MaxResponseBytes is the size ceiling of a multi batch response
	MaxResponseBytes int `yaml:"MaxResponseBytes,omitempty"`
	// PrimaryEndpoint is where sealed batches are reported, empty keeps them local
	PrimaryEndpoint string `yaml:"PrimaryEndpoint,omitempty"`
	// AckPrimary makes the worker wait for the primary to acknowledge each batch
	AckPrimary    bool          `yaml:"AckPrimary,omitempty"`
	ReportTimeout time.Duration `yaml:"ReportTimeout,omitempty"`
}

type PrimaryParams struct {
	// Workers maps worker ids to their endpoints
	Workers map[types.WorkerID]string `yaml:"Workers,omitempty"`
	// MaxRetries bounds the follow up requests of a multi batch fetch, zero disables retries
	MaxRetries int `yaml:"MaxRetries,omitempty"`
	// RetryBackoff is the pause between follow up requests
	RetryBackoff time.Duration `yaml:"RetryBackoff,omitempty"`
	// RequestTimeout bounds a single request to a worker
	RequestTimeout time.Duration `yaml:"RequestTimeout,omitempty"`
	// CacheSize is the number of validated batches kept in memory, a negative size disables the cache
	CacheSize int `yaml:"CacheSize,omitempty"`
}

// LoadNodeConfig reads the configuration at path, applies defaults and validates it.
func LoadNodeConfig(path string) (*NodeConfig, error) {
	if path == "" {
		return nil, errors.New("cannot load node configuration, path is empty")
	}
	conf := &NodeConfig{}
	if err := NodeConfigFromYAML(conf, path); err != nil {
		return nil, errors.Wrapf(err, "cannot load node configuration from %s", path)
	}
	conf.ApplyDefaults()
	if err := conf.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid node configuration in %s", path)
	}
	return conf, nil
}

// Validate checks the values of a configuration with defaults applied.
func (c *NodeConfig) Validate() error {
	if c.Worker == nil && c.Primary == nil {
		return errors.New("neither a Worker nor a Primary section is configured")
	}
	if _, _, err := net.SplitHostPort(c.ListenAddress); err != nil {
		return errors.Wrapf(err, "bad ListenAddress %q", c.ListenAddress)
	}
	if c.MonitoringListenAddress != "" {
		if _, _, err := net.SplitHostPort(c.MonitoringListenAddress); err != nil {
			return errors.Wrapf(err, "bad MonitoringListenAddress %q", c.MonitoringListenAddress)
		}
	}
	if c.MaxMessageBytes <= 0 {
		return errors.Errorf("MaxMessageBytes must be positive, got %d", c.MaxMessageBytes)
	}

	if w := c.Worker; w != nil {
		if w.BatchMaxCount <= 0 || w.BatchMaxBytes <= 0 || w.PoolCapacity <= 0 {
			return errors.Errorf("worker batch limits must be positive: count %d, bytes %d, pool %d", w.BatchMaxCount, w.BatchMaxBytes, w.PoolCapacity)
		}
		if w.BatchTimeout <= 0 {
			return errors.Errorf("worker BatchTimeout must be positive, got %s", w.BatchTimeout)
		}
		if wire.MaxTxLen(w.BatchMaxBytes) < 1 {
			return errors.Errorf("worker BatchMaxBytes %d leaves no room for a transaction", w.BatchMaxBytes)
		}
		// A batch is served alone when it exceeds the response ceiling, so it must fit a message by itself.
		if size := wire.MaxSingleBatchMessageSize(w.BatchMaxBytes); size > c.MaxMessageBytes {
			return errors.Errorf("worker BatchMaxBytes %d encodes into messages of up to %d bytes, more than MaxMessageBytes %d", w.BatchMaxBytes, size, c.MaxMessageBytes)
		}
		// The ceiling is measured on the encoded response, so it may reach MaxMessageBytes.
		if w.MaxResponseBytes < 0 || w.MaxResponseBytes > c.MaxMessageBytes {
			return errors.Errorf("worker MaxResponseBytes %d must be within [0, %d]", w.MaxResponseBytes, c.MaxMessageBytes)
		}
		if w.AckPrimary && w.PrimaryEndpoint == "" {
			return errors.New("worker AckPrimary requires a PrimaryEndpoint")
		}
	}

	if p := c.Primary; p != nil {
		if len(p.Workers) == 0 {
			return errors.New("primary has no workers configured")
		}
		for id, endpoint := range p.Workers {
			if _, _, err := net.SplitHostPort(endpoint); err != nil {
				return errors.Wrapf(err, "bad endpoint %q of worker %d", endpoint, id)
			}
		}
		if p.MaxRetries < 0 || p.RetryBackoff < 0 {
			return errors.Errorf("primary retry params must not be negative: retries %d, backoff %s", p.MaxRetries, p.RetryBackoff)
		}
		if p.RequestTimeout <= 0 {
			return errors.Errorf("primary RequestTimeout must be positive, got %s", p.RequestTimeout)
		}
	}

	return nil
}

func NodeConfigToYAML(config interface{}, path string) error {
	raw, err := yaml.Marshal(config)
	if err != nil {
		return err
	}

	return os.WriteFile(path, raw, 0o644)
}

func NodeConfigFromYAML(config interface{}, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	return yaml.Unmarshal(raw, config)
}
