/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hyperledger/fabric-x-dagpool/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const workerYAML = `
ID: 3
ListenAddress: 127.0.0.1:7050
MonitoringListenAddress: 127.0.0.1:7051
StorePath: /tmp/dagpool/worker3
Worker:
  BatchMaxCount: 50
  BatchTimeout: 1s
  PrimaryEndpoint: 127.0.0.1:7060
  AckPrimary: true
`

const primaryYAML = `
ID: 1
ListenAddress: 127.0.0.1:7060
LogSpec: debug
Primary:
  Workers:
    1: 127.0.0.1:7050
    2: 127.0.0.1:7052
  MaxRetries: 3
  RetryBackoff: 250ms
`

func writeConfig(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "node.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadWorkerConfig(t *testing.T) {
	conf, err := config.LoadNodeConfig(writeConfig(t, workerYAML))
	require.NoError(t, err)

	assert.EqualValues(t, 3, conf.ID)
	assert.Equal(t, "127.0.0.1:7050", conf.ListenAddress)
	assert.Equal(t, config.DefaultLogSpec, conf.LogSpec)
	assert.Equal(t, config.DefaultMaxMessageBytes, conf.MaxMessageBytes)
	assert.Nil(t, conf.Primary)

	require.NotNil(t, conf.Worker)
	assert.Equal(t, 50, conf.Worker.BatchMaxCount)
	assert.Equal(t, time.Second, conf.Worker.BatchTimeout)
	assert.Equal(t, config.DefaultWorkerParams.BatchMaxBytes, conf.Worker.BatchMaxBytes)
	assert.Equal(t, config.DefaultWorkerParams.MaxResponseBytes, conf.Worker.MaxResponseBytes)
	assert.True(t, conf.Worker.AckPrimary)
}

func TestLoadPrimaryConfig(t *testing.T) {
	conf, err := config.LoadNodeConfig(writeConfig(t, primaryYAML))
	require.NoError(t, err)

	require.NotNil(t, conf.Primary)
	assert.Equal(t, "debug", conf.LogSpec)
	assert.Len(t, conf.Primary.Workers, 2)
	assert.Equal(t, "127.0.0.1:7052", conf.Primary.Workers[2])
	assert.Equal(t, 3, conf.Primary.MaxRetries)
	assert.Equal(t, 250*time.Millisecond, conf.Primary.RetryBackoff)
	assert.Equal(t, config.DefaultPrimaryParams.RequestTimeout, conf.Primary.RequestTimeout)
	assert.Equal(t, config.DefaultPrimaryParams.CacheSize, conf.Primary.CacheSize)
}

func TestConfigRoundTrip(t *testing.T) {
	conf, err := config.LoadNodeConfig(writeConfig(t, primaryYAML))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "out.yaml")
	require.NoError(t, config.NodeConfigToYAML(conf, path))

	reloaded, err := config.LoadNodeConfig(path)
	require.NoError(t, err)
	assert.Equal(t, conf, reloaded)
}

func TestLoadNodeConfigErrors(t *testing.T) {
	_, err := config.LoadNodeConfig("")
	require.EqualError(t, err, "cannot load node configuration, path is empty")

	_, err = config.LoadNodeConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	_, err = config.LoadNodeConfig(writeConfig(t, "ListenAddress: [not, a, string"))
	require.Error(t, err)

	for name, content := range map[string]string{
		"no role":          "ListenAddress: 127.0.0.1:1\n",
		"bad address":      "ListenAddress: nowhere\nWorker: {}\n",
		"ack w/o primary":  "ListenAddress: 127.0.0.1:1\nWorker:\n  AckPrimary: true\n",
		"no workers":       "ListenAddress: 127.0.0.1:1\nPrimary:\n  MaxRetries: 1\n",
		"bad worker":       "ListenAddress: 127.0.0.1:1\nPrimary:\n  Workers:\n    1: nowhere\n",
		"negative retries": "ListenAddress: 127.0.0.1:1\nPrimary:\n  Workers:\n    1: 127.0.0.1:2\n  MaxRetries: -1\n",
		"huge response":    "ListenAddress: 127.0.0.1:1\nMaxMessageBytes: 10\nWorker:\n  MaxResponseBytes: 11\n",
		"huge batch":       "ListenAddress: 127.0.0.1:1\nMaxMessageBytes: 1000\nWorker:\n  BatchMaxBytes: 1000\n  MaxResponseBytes: 500\n",
		"tiny batch":       "ListenAddress: 127.0.0.1:1\nWorker:\n  BatchMaxBytes: 10\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := config.LoadNodeConfig(writeConfig(t, content))
			require.Error(t, err)
		})
	}
}

func TestWorkerMessageBounds(t *testing.T) {
	conf, err := config.LoadNodeConfig(writeConfig(t, "ListenAddress: 127.0.0.1:1\nMaxMessageBytes: 2000\nWorker:\n  BatchMaxBytes: 1000\n  MaxResponseBytes: 2000\n"))
	require.NoError(t, err)
	assert.Equal(t, 2000, conf.Worker.MaxResponseBytes)

	conf.Worker.BatchMaxBytes = conf.MaxMessageBytes
	require.ErrorContains(t, conf.Validate(), "more than MaxMessageBytes")

	conf.Worker.BatchMaxBytes = 1000
	conf.Worker.MaxResponseBytes = conf.MaxMessageBytes + 1
	require.ErrorContains(t, conf.Validate(), "MaxResponseBytes")
}
