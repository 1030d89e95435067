package adminhttp

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/karupanerura/loading-engine/engine"
)

type loadState struct {
	Key string `json:"key"`
	engine.LoadingState
}

type stats struct {
	engine.Metrics
	HitRatio float64 `json:"hitRatio"`
	Keys     int     `json:"keys"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleLoads(w http.ResponseWriter, _ *http.Request) {
	keys := s.engine.Keys()
	states := make([]loadState, 0, len(keys))
	for _, key := range keys {
		// the key may have been cleared since Keys returned
		if st, ok := s.engine.GetLoadingState(key); ok {
			states = append(states, loadState{Key: key, LoadingState: st})
		}
	}
	writeJSON(w, http.StatusOK, states)
}

func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	st, ok := s.engine.GetLoadingState(key)
	if !ok {
		http.Error(w, "key not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, loadState{Key: key, LoadingState: st})
}

func (s *Server) handleClearCache(w http.ResponseWriter, r *http.Request) {
	pattern := r.URL.Query().Get("pattern")
	if pattern == "" {
		s.engine.ClearCache()
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err := s.engine.ClearCacheMatching(pattern); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	m := s.engine.Metrics()
	writeJSON(w, http.StatusOK, stats{
		Metrics:  m,
		HitRatio: m.HitRatio(),
		Keys:     len(s.engine.Keys()),
	})
}
