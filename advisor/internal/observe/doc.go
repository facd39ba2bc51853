// Package observe turns scraped counter totals into daily volumes and a
// sample rate recommendation.
//
// Engine keeps a per-source baseline. The first successful scrape of a source
// only records that baseline and returns Ready=false; every later scrape
// derives per-day rates from the counter delta:
//
//	per_day = max(0, current - previous) / elapsed_seconds * 86400
//
// A counter that goes backwards (process restart) yields a zero delta. A
// failed scrape does not advance the baseline, so the next success measures
// across the gap. Engine.Process takes the clock explicitly so tests are
// deterministic.
package observe
