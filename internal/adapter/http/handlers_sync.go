package adapthttp

import (
	"net/http"

	"lifesync/internal/domain"
)

func (s *Server) handleSyncStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, s.rec.Status(r.Context()))
}

func (s *Server) handleSyncNow(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	st, ran := s.scheduler.SyncNow(r.Context())
	writeJSON(w, http.StatusOK, syncResponse(st, ran))
}

func (s *Server) handleSyncForeground(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	st, ran := s.scheduler.Foreground(r.Context())
	writeJSON(w, http.StatusOK, syncResponse(st, ran))
}

func (s *Server) handleSyncPending(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	items, err := s.rec.Pending(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if limit := intQuery(r, "limit", 0); limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	if items == nil {
		items = []domain.PendingChange{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "count": len(items)})
}

func syncResponse(st domain.SyncStatus, ran bool) map[string]any {
	return map[string]any{"status": st, "ran": ran}
}
