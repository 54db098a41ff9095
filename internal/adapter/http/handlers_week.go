package adapthttp

import (
	"net/http"

	"lifesync/internal/domain"
)

func (s *Server) handleWeek(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	week, err := weekQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"week":  week,
		"dates": domain.WeekDayKeys(week),
	})
}
