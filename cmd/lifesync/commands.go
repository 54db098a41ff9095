package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	adapthttp "lifesync/internal/adapter/http"
	"lifesync/internal/domain"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the background scheduler and the local API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		rt, err := setup(ctx)
		if err != nil {
			return err
		}
		defer rt.Close()

		if err := rt.scheduler.Start(ctx); err != nil {
			return err
		}
		defer rt.scheduler.Stop()

		h := adapthttp.New(adapthttp.Services{
			Nutrition:  rt.nutrition,
			Fitness:    rt.fitness,
			Budget:     rt.budget,
			Goals:      rt.goals,
			Reconciler: rt.rec,
			Scheduler:  rt.scheduler,
		}, rt.metrics, rt.log).Handler()

		srv := &http.Server{Addr: rt.cfg.HTTP.Addr, Handler: h, ReadHeaderTimeout: 10 * time.Second}
		errCh := make(chan error, 1)
		go func() {
			rt.log.WithField("addr", srv.Addr).Info("listening")
			errCh <- srv.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		case <-ctx.Done():
		}

		rt.log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Flush pending changes and refresh every cache once",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		defer rt.Close()

		st, _ := rt.scheduler.SyncNow(cmd.Context())
		return printJSON(st)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show connectivity, last sync and pending change count",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		defer rt.Close()
		return printJSON(rt.rec.Status(cmd.Context()))
	},
}

var pendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "List queued changes oldest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		defer rt.Close()

		items, err := rt.rec.Pending(cmd.Context())
		if err != nil {
			return err
		}
		if items == nil {
			items = []domain.PendingChange{}
		}
		return printJSON(items)
	},
}

var weekCmd = &cobra.Command{
	Use:   "week [date]",
	Short: "Print the ISO week key and dates of a day (default today)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return printJSON(weekInfo(args, time.Now()))
	},
}

type weekOutput struct {
	Week  string   `json:"week"`
	Dates []string `json:"dates"`
}

// weekInfo resolves the optional date argument. A YYYY-Www argument is
// taken as a week key; anything unparseable means the current week.
func weekInfo(args []string, now time.Time) weekOutput {
	key := domain.WeekKey(now)
	if len(args) == 1 {
		if t, err := domain.ParseDayKey(args[0]); err == nil {
			key = domain.WeekKey(t)
		} else if domain.ValidWeekKey(args[0]) {
			key = args[0]
		}
	}
	return weekOutput{Week: key, Dates: domain.WeekDayKeys(key)}
}
