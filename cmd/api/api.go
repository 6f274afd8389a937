package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/farxc/presupuestos-estudio/internal/auth"
	"github.com/farxc/presupuestos-estudio/internal/budget"
	"github.com/farxc/presupuestos-estudio/internal/export"
	"github.com/farxc/presupuestos-estudio/internal/logger"
	"github.com/farxc/presupuestos-estudio/internal/notify"
	"github.com/farxc/presupuestos-estudio/internal/report"
	"github.com/farxc/presupuestos-estudio/internal/store"
)

const version = "0.3.0"

type application struct {
	config config
	store  *store.Storage
	logger *logger.Logger

	budgets    *budget.Service
	dashboard  *report.Dashboard
	accounting *report.Accounting
	exporter   *export.Exporter
	importer   *export.Importer
	feed       *notify.Feed

	verifier *auth.Verifier
	sessions *auth.Resolver
	limiter  *limiter
}

type config struct {
	addr      string
	db        dbConfig
	auth      authConfig
	budget    budgetConfig
	cache     cacheConfig
	rateLimit rateLimitConfig
	logoPath  string
	logLevel  string
}

type dbConfig struct {
	driver       string
	addr         string
	maxOpenConns int
	maxIdleConns int
	maxIdleTime  string
	migrate      bool
}

type authConfig struct {
	secret string
	issuer string
}

type budgetConfig struct {
	usdToARS          float64
	marginDebounce    time.Duration
	reconcileDelay    time.Duration
	strictTransitions bool
}

type cacheConfig struct {
	dashboardTTL    time.Duration
	permissionTTL   time.Duration
	notificationTTL time.Duration
}

type rateLimitConfig struct {
	rps   float64
	burst int
}

func (app *application) mount() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)

	// Set a timeout value on the request context (ctx), that will signal
	// through ctx.Done() that the request has timed out and further
	// processing should be stopped.
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(app.rateLimit)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/health", app.healthCheckHandler)

		r.Group(func(r chi.Router) {
			r.Use(app.authenticate)

			r.Route("/budgets", func(r chi.Router) {
				r.Get("/", app.handleListBudgets)
				r.Post("/", app.handleCreateBudget)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", app.handleGetBudget)
					r.Delete("/", app.handleDeleteBudget)
					r.Post("/additionals", app.handleCreateAdditional)
					r.Patch("/status", app.handleUpdateStatus)
					r.Patch("/margin", app.handleUpdateMargin)
					r.Patch("/progress", app.handleUpdateProgress)

					r.Get("/items", app.handleListItems)
					r.Post("/items", app.handleAddItem)
					r.Post("/items/import", app.handleImportItems)

					r.Get("/movements", app.handleGetMovements)
					r.Post("/collections", app.handleAddCollection)
					r.Post("/expenses", app.handleAddExpense)

					r.Get("/export.{format}", app.handleExportBudget)
					r.Get("/summary.{format}", app.handleExportProject)
				})
			})

			r.Patch("/items/{id}/client-description", app.handleSetClientDescription)
			r.Delete("/collections/{id}", app.handleDeleteCollection)
			r.Delete("/expenses/{id}", app.handleDeleteExpense)

			r.Get("/projects/in-progress", app.handleGetInProgress)

			r.Route("/dashboard", func(r chi.Router) {
				r.Get("/", app.handleGetDashboard)
				r.Get("/export.{format}", app.handleExportDashboard)
			})

			r.Route("/accounting", func(r chi.Router) {
				r.Get("/", app.handleGetAccounting)
				r.Post("/payments", app.handleRegisterPayment)
				r.Patch("/payments/{id}", app.handleUpdatePayment)
				r.Delete("/payments/{id}", app.handleDeletePayment)
			})

			r.Get("/notifications", app.handleGetNotifications)
		})
	})

	return r
}

// run serves until SIGINT/SIGTERM, then drains in-flight requests and
// writes the margin and progress edits that are still waiting.
func (app *application) run(mux http.Handler) error {
	const component = "Server"

	srv := &http.Server{
		Addr:         app.config.addr,
		Handler:      mux,
		WriteTimeout: time.Second * 120,
		ReadTimeout:  time.Second * 40,
		IdleTimeout:  time.Minute,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		app.logger.Info(component, "Server started on %s", app.config.addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	app.logger.Info(component, "Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	err := srv.Shutdown(shutdownCtx)
	if cerr := app.budgets.Close(shutdownCtx); cerr != nil {
		app.logger.Error(component, "Pending edits were not written: %v", cerr)
		err = errors.Join(err, cerr)
	}
	return err
}
