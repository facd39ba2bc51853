// Package metrics exposes the server's own Prometheus collectors.
//
// New() registers every collector on a private registry so tests can create
// as many instances as they like. Handler() serves that registry in the text
// exposition format and is mounted at /metrics by the server.
//
// All methods are safe to call on a nil *Metrics, which records nothing.
package metrics
