// Package estimate holds the sample rate arithmetic shared by the advisor CLI
// and the server.
//
// estimate.go provides the pure Compute(Input) function:
//
//	estimated         = transactions_per_session * sessions_per_day
//	effective_ceiling = round(raw_ceiling * safety_margin)
//	sample_rate       = 1                                  if estimated <= effective_ceiling
//	                  = effective_ceiling / estimated      otherwise
//
// The raw ceiling is either a fixed daily cap or events_per_second * 86400.
//
// parse.go validates user text (non-negative integers only) and formats
// counts with thousands separators. explain.go turns a Result into ordered
// hints for display. presets.go lists the events-per-second presets offered
// by the form.
package estimate
