// Package httputil provides shared HTTP response helpers for handlers.
//
// Every public endpoint answers with the same Envelope so that browsers
// posting forms can rely on one response shape for success and failure.
package httputil
