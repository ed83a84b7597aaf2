package handlers

import (
	"context"
	"net/http"
)

// Pinger checks database connectivity. database.Queries implements it.
type Pinger interface {
	Ping(ctx context.Context) (int32, error)
}

// HandleHealth reports that the HTTP service is alive and responding.
func HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// HandleReadiness checks if the service is ready to accept traffic.
// When the audit log is kept in PostgreSQL the database must be reachable; db is nil otherwise.
func HandleReadiness(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		if db != nil {
			if _, err := db.Ping(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(`{"status":"not ready","reason":"database unavailable"}`))
				return
			}
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ready"}`))
	}
}
