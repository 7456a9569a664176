package main

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/MrEthical07/goIdentity/metrics/export/prometheus"
	"github.com/gorilla/mux"
)

func newRouter(e *env) http.Handler {
	r := mux.NewRouter()
	r.Handle("/metrics", prometheus.NewPrometheusExporter(e.manager).Handler()).Methods(http.MethodGet)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	}).Methods(http.MethodGet)
	r.HandleFunc("/audit", func(w http.ResponseWriter, req *http.Request) {
		count := int64(50)
		if raw := req.URL.Query().Get("count"); raw != "" {
			n, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || n <= 0 || n > 1000 {
				http.Error(w, "count must be between 1 and 1000", http.StatusBadRequest)
				return
			}
			count = n
		}
		events, err := e.stream.Read(req.Context(), count)
		if err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(events)
	}).Methods(http.MethodGet)
	return r
}
