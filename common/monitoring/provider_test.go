/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package monitoring_test

import (
	"io"
	"net/http"
	"testing"

	"github.com/hyperledger/fabric-lib-go/common/metrics"
	"github.com/hyperledger/fabric-x-dagpool/common/monitoring"
	"github.com/hyperledger/fabric-x-dagpool/testutil"
	"github.com/stretchr/testify/require"
)

func TestMonitorServesMetrics(t *testing.T) {
	logger := testutil.CreateLogger(t, 0)
	m := monitoring.NewMonitor("127.0.0.1:0", logger)

	c := m.Provider.NewCounter(metrics.CounterOpts{Subsystem: "test", Name: "things_total", Help: "things"})
	c.Add(3)

	require.NoError(t, m.Start())
	defer m.Stop()

	resp, err := http.Get(m.Address())
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "dagpool_test_things_total 3")
}

func TestCounterValue(t *testing.T) {
	logger := testutil.CreateLogger(t, 0)
	p := monitoring.NewProvider(logger)

	c := p.NewCounter(metrics.CounterOpts{Name: "plain_total", Help: "plain"})
	c.Add(2)
	c.Add(1)
	require.Equal(t, float64(3), monitoring.CounterValue(c, logger))

	labeled := p.NewCounter(metrics.CounterOpts{Name: "labeled_total", Help: "labeled", LabelNames: []string{"kind"}})
	labeled.With("kind", "a").Add(5)
	require.Equal(t, float64(5), monitoring.CounterValue(labeled.With("kind", "a"), logger))
	require.Equal(t, float64(0), monitoring.CounterValue(labeled.With("kind", "b"), logger))
}

func TestDisabledMonitor(t *testing.T) {
	m := monitoring.NewMonitor("", testutil.CreateLogger(t, 0))
	require.NoError(t, m.Start())
	require.Empty(t, m.Address())
	m.Stop()
}
