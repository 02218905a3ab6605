/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package logtest

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/acronis/go-rpcinvoker/log"
)

func TestRecorder(t *testing.T) {
	logRecorder := NewRecorder()
	logRecorder.Warn("circuit breaker state changed", log.Int("failures", 5), log.String("to", "open"))
	logRecorder.Info("rpc call finished")

	require.Len(t, logRecorder.Entries(), 2)

	_, found := logRecorder.FindEntry("unknown")
	require.False(t, found)

	logEntry, found := logRecorder.FindEntry("circuit breaker state changed")
	require.True(t, found)
	require.Equal(t, log.LevelWarn, logEntry.Level)

	failures, found := logEntry.FindField("failures")
	require.True(t, found)
	require.Equal(t, 5, int(failures.Int))

	to, found := logEntry.FieldString("to")
	require.True(t, found)
	require.Equal(t, "open", to)

	_, found = logEntry.FieldString("from")
	require.False(t, found)
}

func TestRecorder_WithFields(t *testing.T) {
	logRecorder := NewRecorder()
	logger := logRecorder.With(log.String("service", "users.UserService"))
	logger.Info("rpc call finished", log.String("method", "GetUser"))
	logger.Info("rpc call finished", log.String("method", "ListUsers"))
	logRecorder.WithLevel(log.LevelError).Info("rpc call finished")

	entries := logRecorder.FindAllEntries("rpc call finished")
	require.Len(t, entries, 2)
	for _, entry := range entries {
		service, found := entry.FieldString("service")
		require.True(t, found)
		require.Equal(t, "users.UserService", service)
	}

	logRecorder.Reset()
	require.Empty(t, logRecorder.Entries())
}
