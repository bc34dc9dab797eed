// Package middleware provides the HTTP middleware chain: request
// logging, Prometheus metrics, and bearer-token authentication against
// a bcrypt API key hash. All wrappers pass http.Flusher through so
// progressive streaming keeps working underneath them.
package middleware
