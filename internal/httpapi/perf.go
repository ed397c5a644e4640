package httpapi

import "net/http"

func (s *Server) handlePerfCommands(w http.ResponseWriter, _ *http.Request) {
	if s.deps.Metrics == nil {
		respondJSON(w, http.StatusOK, map[string]any{
			"generated_at": "",
			"window_size":  0,
			"commands":     []any{},
		})
		return
	}
	respondJSON(w, http.StatusOK, s.deps.Metrics.SnapshotCommandLatency())
}

func (s *Server) handlePerfCommandsReset(w http.ResponseWriter, _ *http.Request) {
	if s.deps.Metrics != nil {
		s.deps.Metrics.ResetCommandLatency()
	}
	w.WriteHeader(http.StatusNoContent)
}
