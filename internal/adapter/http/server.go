package adapthttp

import (
	"io"
	"net/http"

	"github.com/sirupsen/logrus"

	"lifesync/internal/app"
	"lifesync/internal/metrics"
)

// Services bundles the application services exposed over HTTP.
type Services struct {
	Nutrition  *app.NutritionService
	Fitness    *app.FitnessService
	Budget     *app.BudgetService
	Goals      *app.GoalService
	Reconciler *app.Reconciler
	Scheduler  *app.Scheduler
}

// Server is the driving HTTP adapter the local UI talks to.
type Server struct {
	nutrition *app.NutritionService
	fitness   *app.FitnessService
	budget    *app.BudgetService
	goals     *app.GoalService
	rec       *app.Reconciler
	scheduler *app.Scheduler
	metrics   *metrics.Collector
	log       logrus.FieldLogger
}

// New creates a Server. m and log may be nil.
func New(svc Services, m *metrics.Collector, log logrus.FieldLogger) *Server {
	if log == nil {
		l := logrus.New()
		l.Out = io.Discard
		log = l
	}
	return &Server{
		nutrition: svc.Nutrition,
		fitness:   svc.Fitness,
		budget:    svc.Budget,
		goals:     svc.Goals,
		rec:       svc.Reconciler,
		scheduler: svc.Scheduler,
		metrics:   m,
		log:       log.WithField("component", "http"),
	}
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	api.HandleFunc("/sync/status", s.handleSyncStatus)
	api.HandleFunc("/sync/now", s.handleSyncNow)
	api.HandleFunc("/sync/foreground", s.handleSyncForeground)
	api.HandleFunc("/sync/pending", s.handleSyncPending)

	api.HandleFunc("/nutrition", s.handleNutrition)
	api.HandleFunc("/nutrition/delete", s.handleNutritionDelete)
	api.HandleFunc("/fitness", s.handleFitness)
	api.HandleFunc("/fitness/delete", s.handleFitnessDelete)
	api.HandleFunc("/budget", s.handleBudget)
	api.HandleFunc("/budget/delete", s.handleBudgetDelete)
	api.HandleFunc("/goals", s.handleGoals)
	api.HandleFunc("/goals/update", s.handleGoalUpdate)
	api.HandleFunc("/goals/delete", s.handleGoalDelete)

	api.HandleFunc("/week", s.handleWeek)

	root := http.NewServeMux()
	root.Handle("/api/", http.StripPrefix("/api", api))
	root.Handle("/metrics", s.metrics.Handler())

	return s.loggingMiddleware(withNoCache(root))
}
