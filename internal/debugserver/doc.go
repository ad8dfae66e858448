// Package debugserver serves local diagnostics for a running client:
//
//	GET /healthz   liveness probe
//	GET /status    session and playback snapshot as JSON
//	GET /metrics   Prometheus exposition
//
// It binds to a loopback address by default and is off unless debug.listen
// is set in kiai.json.
package debugserver
