/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package config

import "time"

const (
	DefaultLogSpec         = "info"
	DefaultMaxMessageBytes = 100 * 1024 * 1024
)

var DefaultWorkerParams = WorkerParams{
	BatchMaxCount:    1000,
	BatchMaxBytes:    1024 * 1024,
	BatchTimeout:     200 * time.Millisecond,
	PoolCapacity:     10000,
	MaxResponseBytes: 10 * 1024 * 1024,
	ReportTimeout:    10 * time.Second,
}

// DefaultPrimaryParams does not retry: follow up requests are opt-in.
var DefaultPrimaryParams = PrimaryParams{
	MaxRetries:     0,
	RetryBackoff:   0,
	RequestTimeout: 10 * time.Second,
	CacheSize:      1024,
}

// ApplyDefaults fills every unset field with its default.
func (c *NodeConfig) ApplyDefaults() {
	if c.LogSpec == "" {
		c.LogSpec = DefaultLogSpec
	}
	if c.MaxMessageBytes == 0 {
		c.MaxMessageBytes = DefaultMaxMessageBytes
	}

	if w := c.Worker; w != nil {
		d := DefaultWorkerParams
		setIfZero(&w.BatchMaxCount, d.BatchMaxCount)
		setIfZero(&w.BatchMaxBytes, d.BatchMaxBytes)
		setIfZero(&w.BatchTimeout, d.BatchTimeout)
		setIfZero(&w.PoolCapacity, d.PoolCapacity)
		setIfZero(&w.MaxResponseBytes, d.MaxResponseBytes)
		setIfZero(&w.ReportTimeout, d.ReportTimeout)
	}

	if p := c.Primary; p != nil {
		d := DefaultPrimaryParams
		setIfZero(&p.RequestTimeout, d.RequestTimeout)
		setIfZero(&p.CacheSize, d.CacheSize)
	}
}

func setIfZero[T comparable](field *T, value T) {
	var zero T
	if *field == zero {
		*field = value
	}
}
