// Package server provides the HTTP server for the CoDi gateway.
//
// the server is configured through environment variables
// (see internal/config/config.go for details)
//
// Routes:
//   - POST /v1/webhook/{environment}: result notifications from the network
//   - POST /v1/qr, /v1/push, /v1/consulta: payment requests, protected by X-API-Key when CLIENT_API_KEY is set
//   - infrastructure handlers (health, version, jwks)
//
// handlers are in internal/server/handlers and middleware is in internal/server/middleware
package server
