// Package metrics provides Prometheus metrics for monitoring.
//
// Key metrics:
//   - Scheduled task runs, failures and durations
//   - Catalog refresh outcomes and catalog size
//   - FX update outcomes and rate count
//   - Publish cycle outcomes and broker receiver counts
//   - Active quote streams
//
// A nil *Metrics is valid and records nothing.
package metrics
