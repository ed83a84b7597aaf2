// Package api holds the error codes, the error response body and the response helpers shared by
// the HTTP handlers and middleware.
package api
