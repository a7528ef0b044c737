/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package testutil

import (
	"testing"

	"github.com/hyperledger/fabric-lib-go/common/flogging"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// CreateLogger returns a development logger tagged with the test name and a node id.
func CreateLogger(t testing.TB, i int) *flogging.FabricLogger {
	return CreateLoggerWithLevel(t, i, zapcore.InfoLevel)
}

func CreateLoggerWithLevel(t testing.TB, i int, level zapcore.Level) *flogging.FabricLogger {
	logConfig := zap.NewDevelopmentConfig()
	logConfig.Level.SetLevel(level)
	logger, _ := logConfig.Build()
	logger = logger.With(zap.String("t", t.Name())).With(zap.Int64("id", int64(i)))
	return flogging.NewFabricLogger(logger)
}
