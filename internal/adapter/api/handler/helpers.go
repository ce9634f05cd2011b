package handler

import (
	"encoding/json"
	"net"
	"net/http"

	"github.com/voxhive/backoffice/internal/adapter/api/middleware"
	"github.com/voxhive/backoffice/internal/usecase"
)

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondDetail(w http.ResponseWriter, status int, detail string) {
	middleware.WriteDetail(w, status, detail)
}

// requestInfo extracts the audit-relevant request attributes.
func requestInfo(r *http.Request) usecase.RequestInfo {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return usecase.RequestInfo{
		IPAddress: host,
		UserAgent: r.Header.Get("User-Agent"),
	}
}
