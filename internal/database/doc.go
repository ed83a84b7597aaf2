// Package database holds the sqlc generated queries for the audit log, the embedded goose
// migrations and the connection pool setup.
//
// To regenerate the queries after changing queries/*.sql or the migrations run
//
//	sqlc generate
//
// from the repository root.
package database
