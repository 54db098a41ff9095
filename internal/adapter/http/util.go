package adapthttp

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"lifesync/internal/domain"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"error": err.Error()})
}

// writeFailure maps a service error to a response status.
func writeFailure(w http.ResponseWriter, err error) {
	var (
		remote  *domain.RemoteError
		invalid validator.ValidationErrors
	)
	switch {
	case errors.As(err, &invalid):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, domain.ErrOffline):
		writeError(w, http.StatusServiceUnavailable, err)
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.As(err, &remote) && remote.Status < 500:
		writeError(w, remote.Status, err)
	case errors.As(err, &remote):
		writeError(w, http.StatusBadGateway, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}

func parseJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid json: %w", err)
	}
	return nil
}

func intQuery(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

// dateQuery reads a YYYY-MM-DD query value, defaulting to today.
func dateQuery(r *http.Request, key string) (string, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return domain.DayKey(time.Now().In(time.Local)), nil
	}
	if _, err := domain.ParseDayKey(v); err != nil {
		return "", fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

// weekQuery reads a YYYY-Www query value. A date query is accepted in its
// place and mapped to its week; with neither, the current week is used.
func weekQuery(r *http.Request) (string, error) {
	if v := r.URL.Query().Get("week"); v != "" {
		if !domain.ValidWeekKey(v) {
			return "", fmt.Errorf("invalid week %q", v)
		}
		return v, nil
	}
	date, err := dateQuery(r, "date")
	if err != nil {
		return "", err
	}
	t, _ := domain.ParseDayKey(date)
	return domain.WeekKey(t), nil
}

func withNoCache(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

func methodNotAllowed(w http.ResponseWriter) {
	w.WriteHeader(http.StatusMethodNotAllowed)
}
