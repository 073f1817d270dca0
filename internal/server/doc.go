// Package server implements the formrelay HTTP surface.
//
// Endpoints:
//   - POST /submit-form relays a contact form to Discord, one submission per IP per cooldown
//   - POST /ping records that a named machine is alive
//   - GET /status/{pcName} reports whether a machine pinged recently
//   - GET /health reports tracker sizes for monitoring
//
// Every failure is answered with a single JSON body; internal error detail
// is logged and never returned to the client. The webhook call runs outside
// the limiter and tracker locks.
package server
