/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package monitor collects observations of outgoing RPC calls.
// PrometheusMetrics exports them as Prometheus metrics, and Monitor additionally
// aggregates them per service method and flushes the aggregates to the log periodically.
package monitor
