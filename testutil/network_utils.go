/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package testutil

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

// GetAvailablePort returns a free port along with the listener that holds it.
func GetAvailablePort(t *testing.T) (port string, ll net.Listener) {
	addr := "127.0.0.1:0"
	listenConfig := net.ListenConfig{}

	ll, err := listenConfig.Listen(context.Background(), "tcp", addr)
	require.NoError(t, err)

	endpoint := ll.Addr().String()
	_, portS, err := net.SplitHostPort(endpoint)
	require.NoError(t, err)

	return portS, ll
}

// GetAvailableAddress returns a local address that was free when the call returned.
// It lets nodes that must know each other's endpoints be configured before any of them starts.
func GetAvailableAddress(t *testing.T) string {
	port, ll := GetAvailablePort(t)
	require.NoError(t, ll.Close())
	return net.JoinHostPort("127.0.0.1", port)
}
