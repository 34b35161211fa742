package server

import (
	"net/http"
	"time"

	"github.com/fyltr/walletd/api"
)

// handleHealth pings the ledger and returns the result with this host's name.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	res, err := s.Ledger.Ping(r.Context())
	s.Metrics.RecordPing(err, time.Since(start))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	body := make(api.HealthResponse, len(res)+1)
	for k, v := range res {
		body[k] = v
	}
	body[api.HostnameKey] = s.Hostname
	jsonOK(w, body)
}
