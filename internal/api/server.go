package api

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"
)

// NewServer creates an HTTP server exposing the run trigger surface and the
// read-only record/run queries.
func NewServer(port string, runs RunService, records RecordLister, quotes QuoteLister, adminAPIKey string) *http.Server {
	handler := NewHandler(runs, records, quotes)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/runs/latest", handler.GetLatestRun)
	mux.HandleFunc("GET /api/v1/records", handler.ListRecords)
	mux.HandleFunc("GET /api/v1/quotes", handler.ListQuotes)

	trigger := http.HandlerFunc(handler.TriggerRun)
	if adminAPIKey != "" {
		mux.Handle("POST /api/v1/runs", requireAuth(adminAPIKey, trigger))
	} else {
		mux.Handle("POST /api/v1/runs", trigger)
	}

	return &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Minute, // a triggered run responds with its summary
		IdleTimeout:  60 * time.Second,
	}
}

func requireAuth(apiKey string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		token := strings.TrimPrefix(auth, "Bearer ")
		if !strings.HasPrefix(auth, "Bearer ") || subtle.ConstantTimeCompare([]byte(token), []byte(apiKey)) != 1 {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}
