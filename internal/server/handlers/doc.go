// Package handlers provides the HTTP handlers: the webhook that receives result notifications
// from the network, the payment routes (qr, push, consulta) and the general infrastructure
// handlers (health, version, jwks).
package handlers
