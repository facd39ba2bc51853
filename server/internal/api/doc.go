// Package api implements the HTTP REST API for the samplerate server.
//
// New(ceiling, metrics) returns a Handler that serves:
//
//	GET /api/v1/health        liveness and the active effective ceiling
//	GET /api/v1/estimate      sample rate for the query inputs (EstimateResponse)
//	GET /api/v1/estimate.png  the same result rendered as image/png
//	GET /api/v1/presets       events/second presets with their daily ceilings
//	GET /api/v1/ceiling       the active ceiling (CeilingResponse)
//
// Estimate inputs are query parameters: transactions_per_session and
// sessions_per_day, plus optional events_per_second, daily_cap and
// safety_margin overrides. Empty inputs count as 0. Anything that is not a
// non-negative integer is answered with 400 and {"error", "field"}.
//
// All endpoints return 405 for non-GET methods. JSON types are defined in
// types.go. No external HTTP framework is used.
package api
