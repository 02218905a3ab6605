/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package logtest provides log.FieldLogger implementations for tests.
// Recorder keeps logged entries in memory so tests can assert on messages and fields,
// and NewLogger forwards entries to the test log.
package logtest
