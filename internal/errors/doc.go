// Package errors provides structured, actionable error messages for kiai.
//
// # Error Categories
//
// Errors are organized into categories:
//   - transport: websocket dial, read and write failures
//   - protocol: malformed or unknown packets
//   - auth: rejected or unanswered logins
//   - spectator: invalid spectate targets and missing maps
//   - resource: engine construction, map downloads, the map index
//   - config: kiai.json and KIAI_* environment problems
//   - cli: bad command-line usage
//
// # Error Codes
//
// Each error has a unique code (e.g., "E001") that maps to a short message,
// a detailed explanation and an optional hint.
//
// # Usage
//
//	err := errors.New(errors.CodeDialFailed).Wrap(dialErr)
//
//	fmt.Println(err.Format())
//	// Output:
//	// ERROR E001: Could not connect to the server
//	//
//	//   The websocket handshake with the server failed.
//	//
//	//   Cause: dial tcp 127.0.0.1:7270: connect: connection refused
//	//
//	//   Hint: Check server_url in kiai.json and that the server is reachable.
//
// KiaiError values compare equal under errors.Is when their codes match, so
// callers can test for a class of failure without inspecting messages.
package errors
