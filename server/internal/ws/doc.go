// Package ws implements the WebSocket form hub for the samplerate server.
//
// Every connected client owns its own form.Form. The client sends one change
// per message and the hub answers with the recomputed form state.
//
// New(ceiling, metrics) creates a Hub.
// Hub.Run(ctx) blocks until ctx is cancelled, then closes all active
// connections.
// Hub.ServeHTTP upgrades an HTTP connection to WebSocket and sends the
// initial (empty) form state immediately on connect.
// Hub.SetCeiling applies a new ceiling to every client's form and pushes the
// recomputed state to each of them.
//
// Client → server:
//
//	{"field": "transactions_per_session", "value": "1000"}
//
// Server → client:
//
//	{
//	  "event": "estimate",
//	  "data":  { /* form.Snapshot; "message" is set for rejected input */ }
//	}
//
// A malformed request or unknown field is answered with
// {"event": "error", "error": "..."} and leaves the form unchanged.
//
// The upgrader accepts all origins. Apply origin restrictions at the reverse
// proxy level. The endpoint is mounted at /ws/form by the server.
package ws
