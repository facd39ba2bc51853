// Package scraper reads transaction and session counters from services that
// expose Prometheus text metrics.
//
// New(source) returns a Scraper bound to one config.Source. Scrape sums every
// series of the source's transactions_metric (and sessions_metric, when set)
// and returns the cumulative totals. Connectivity, status, parse and
// missing-metric failures are reported via Sample.Err rather than as a Go
// error, so the observe loop can keep polling.
//
// Authentication modes: apikey (header from key_env), bearer (token_env),
// basic (username + password_env), none.
package scraper
