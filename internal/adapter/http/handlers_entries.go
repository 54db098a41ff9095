package adapthttp

import (
	"errors"
	"net/http"

	"lifesync/internal/app"
	"lifesync/internal/domain"
)

var errIDRequired = errors.New("id is required")

// deleteRequest names an entry and the partition it lives in. Date is used
// by nutrition, Week by fitness and budget.
type deleteRequest struct {
	ID   string `json:"id"`
	Date string `json:"date,omitempty"`
	Week string `json:"week,omitempty"`
}

func writeCreated(w http.ResponseWriter, item any, res app.WriteResult) {
	status := http.StatusCreated
	if res.Queued {
		status = http.StatusAccepted
	}
	writeJSON(w, status, map[string]any{"item": item, "queued": res.Queued, "change": res.Change})
}

func writeWritten(w http.ResponseWriter, res app.WriteResult) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "queued": res.Queued, "coalesced": res.Coalesced, "discarded": res.Discarded})
}

func (s *Server) handleNutrition(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	switch r.Method {
	case http.MethodGet:
		date, err := dateQuery(r, "date")
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		day, err := s.nutrition.Day(ctx, date)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		writeJSON(w, http.StatusOK, day)

	case http.MethodPost:
		var body domain.NutritionEntry
		if err := parseJSON(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		entry, res, err := s.nutrition.AddEntry(ctx, body)
		if err != nil {
			writeFailure(w, err)
			return
		}
		writeCreated(w, entry, res)

	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleNutritionDelete(w http.ResponseWriter, r *http.Request) {
	req, ok := parseDelete(w, r)
	if !ok {
		return
	}
	if _, err := domain.ParseDayKey(req.Date); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	res, err := s.nutrition.DeleteEntry(r.Context(), req.ID, req.Date)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeWritten(w, res)
}

func (s *Server) handleFitness(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	switch r.Method {
	case http.MethodGet:
		week, err := weekQuery(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		writeJSON(w, http.StatusOK, s.fitness.Week(ctx, week))

	case http.MethodPost:
		var body domain.FitnessEntry
		if err := parseJSON(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		entry, res, err := s.fitness.AddEntry(ctx, body)
		if err != nil {
			writeFailure(w, err)
			return
		}
		writeCreated(w, entry, res)

	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleFitnessDelete(w http.ResponseWriter, r *http.Request) {
	req, ok := parseDelete(w, r)
	if !ok {
		return
	}
	if !domain.ValidWeekKey(req.Week) {
		writeError(w, http.StatusBadRequest, errors.New("invalid week"))
		return
	}
	res, err := s.fitness.DeleteEntry(r.Context(), req.ID, req.Week)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeWritten(w, res)
}

func (s *Server) handleBudget(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	switch r.Method {
	case http.MethodGet:
		week, err := weekQuery(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		writeJSON(w, http.StatusOK, s.budget.Week(ctx, week))

	case http.MethodPost:
		var body domain.BudgetEntry
		if err := parseJSON(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		entry, res, err := s.budget.AddEntry(ctx, body)
		if err != nil {
			writeFailure(w, err)
			return
		}
		writeCreated(w, entry, res)

	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleBudgetDelete(w http.ResponseWriter, r *http.Request) {
	req, ok := parseDelete(w, r)
	if !ok {
		return
	}
	if !domain.ValidWeekKey(req.Week) {
		writeError(w, http.StatusBadRequest, errors.New("invalid week"))
		return
	}
	res, err := s.budget.DeleteEntry(r.Context(), req.ID, req.Week)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeWritten(w, res)
}

func (s *Server) handleGoals(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	switch r.Method {
	case http.MethodGet:
		goals, cached := s.goals.List(ctx)
		writeJSON(w, http.StatusOK, map[string]any{"goals": goals, "cached": cached})

	case http.MethodPost:
		var body domain.Goal
		if err := parseJSON(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		goal, res, err := s.goals.Create(ctx, body)
		if err != nil {
			writeFailure(w, err)
			return
		}
		writeCreated(w, goal, res)

	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleGoalUpdate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var body domain.Goal
	if err := parseJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if body.ID == "" {
		writeError(w, http.StatusBadRequest, errIDRequired)
		return
	}
	goal, res, err := s.goals.Update(r.Context(), body)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"item": goal, "queued": res.Queued, "coalesced": res.Coalesced})
}

func (s *Server) handleGoalDelete(w http.ResponseWriter, r *http.Request) {
	req, ok := parseDelete(w, r)
	if !ok {
		return
	}
	res, err := s.goals.Delete(r.Context(), req.ID)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeWritten(w, res)
}

// parseDelete decodes a delete body. It writes the response and reports
// false when the request is unusable.
func parseDelete(w http.ResponseWriter, r *http.Request) (deleteRequest, bool) {
	var req deleteRequest
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return req, false
	}
	if err := parseJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return req, false
	}
	if req.ID == "" {
		writeError(w, http.StatusBadRequest, errIDRequired)
		return req, false
	}
	return req, true
}
