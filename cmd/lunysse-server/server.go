package main

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/lunysse/lunysse/internal/config"
	"github.com/lunysse/lunysse/internal/domain/dashboard"
	"github.com/lunysse/lunysse/internal/domain/identity"
	"github.com/lunysse/lunysse/internal/domain/intake"
	"github.com/lunysse/lunysse/internal/domain/reporting"
	"github.com/lunysse/lunysse/internal/domain/roster"
	"github.com/lunysse/lunysse/internal/domain/scheduling"
	"github.com/lunysse/lunysse/internal/platform/auth"
	"github.com/lunysse/lunysse/internal/platform/breaker"
	"github.com/lunysse/lunysse/internal/platform/db"
	"github.com/lunysse/lunysse/internal/platform/events"
	"github.com/lunysse/lunysse/internal/platform/inflight"
	"github.com/lunysse/lunysse/internal/platform/middleware"
	"github.com/lunysse/lunysse/internal/platform/websocket"
)

const (
	livePath       = "/api/v1/dashboard/live"
	requestTimeout = 30 * time.Second
)

// stores is one complete set of repositories sharing a transactor.
type stores struct {
	driver        string
	pinger        db.Pinger
	tx            db.Transactor
	users         identity.UserRepository
	psychologists identity.PsychologistRepository
	patients      roster.PatientRepository
	appointments  scheduling.AppointmentRepository
	requests      intake.Repository
	alerts        reporting.AlertRepository
}

func memoryStores() *stores {
	users, psychologists := identity.NewMemoryRepos()
	return &stores{
		driver:        config.StoreDriverMemory,
		pinger:        db.MemoryPinger{},
		tx:            db.NewLocalTransactor(),
		users:         users,
		psychologists: psychologists,
		patients:      roster.NewPatientRepoMemory(),
		appointments:  scheduling.NewAppointmentRepoMemory(),
		requests:      intake.NewRepoMemory(),
		alerts:        reporting.NewAlertRepoMemory(),
	}
}

func postgresStores(pool *pgxpool.Pool) *stores {
	return &stores{
		driver:        config.StoreDriverPostgres,
		pinger:        pool,
		tx:            db.NewPoolTransactor(pool),
		users:         identity.NewUserRepoPG(pool),
		psychologists: identity.NewPsychologistRepoPG(pool),
		patients:      roster.NewPatientRepoPG(pool),
		appointments:  scheduling.NewAppointmentRepoPG(pool),
		requests:      intake.NewRepoPG(pool),
		alerts:        reporting.NewAlertRepoPG(pool),
	}
}

// infra holds the optional backends picked at startup.
type infra struct {
	guard     inflight.Guard
	publisher events.Publisher
	registry  *prometheus.Registry
}

// newServer builds the services over st and mounts every route.
func newServer(cfg *config.Config, logger zerolog.Logger, st *stores, in infra) (*echo.Echo, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	if in.registry == nil {
		in.registry = prometheus.NewRegistry()
	}

	jwtCfg := auth.JWTConfig{
		Issuer:     cfg.AuthIssuer,
		Audience:   cfg.AuthAudience,
		SigningKey: []byte(cfg.AuthSigningKey),
	}
	storeBreaker := breaker.New(breaker.Store, logger)
	hub := websocket.NewHub(logger)

	identitySvc := identity.NewService(st.users, st.psychologists, st.tx, auth.NewSigner(jwtCfg, cfg.TokenTTL), storeBreaker)
	rosterSvc := roster.NewService(st.patients, storeBreaker)

	schedulingSvc := scheduling.NewService(st.appointments, rosterSvc, st.tx, storeBreaker, loc)
	schedulingSvc.SetNotifier(hub)

	intakeSvc := intake.NewService(intake.Deps{
		Requests:  st.requests,
		Roster:    rosterSvc,
		Directory: identitySvc,
		Tx:        st.tx,
		Guard:     in.guard,
		Breaker:   storeBreaker,
		Publisher: in.publisher,
		Notifier:  hub,
		Metrics:   intake.NewMetrics(in.registry),
		Logger:    logger.With().Str("component", "intake").Logger(),
	})

	dashboardSvc := dashboard.NewService(schedulingSvc, rosterSvc, intakeSvc,
		dashboard.Options{UpcomingLimit: cfg.UpcomingLimit}, loc)
	reportingSvc := reporting.NewService(schedulingSvc, rosterSvc, st.alerts, storeBreaker,
		reporting.Options{WindowMonths: cfg.ReportWindowMonths}, loc)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderAuthorization, echo.HeaderContentType, middleware.RequestIDHeader},
	}))
	e.Use(middleware.NewHTTPMetrics(in.registry).Middleware())
	e.Use(middleware.RequestTimeout(requestTimeout, livePath))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/health/db", db.HealthHandler(st.driver, st.pinger))
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(in.registry, promhttp.HandlerOpts{})))

	public := e.Group("/api/v1")
	api := e.Group("/api/v1", auth.JWTMiddleware(jwtCfg))

	identity.NewHandler(identitySvc).RegisterRoutes(public, api)
	roster.NewHandler(rosterSvc).RegisterRoutes(api)
	scheduling.NewHandler(schedulingSvc).RegisterRoutes(api)
	intake.NewHandler(intakeSvc).RegisterRoutes(api)
	dashboard.NewHandler(dashboardSvc).RegisterRoutes(api)
	reporting.NewHandler(reportingSvc).RegisterRoutes(api)

	live := websocket.NewLiveHandler(hub, cfg.DashboardPollInterval,
		func(ctx context.Context, psychologistID int64) (interface{}, error) {
			return dashboardSvc.Load(ctx, psychologistID)
		}, cfg.CORSOrigins, logger)
	live.RegisterRoutes(api)

	logger.Debug().Int("routes", len(e.Routes())).Str("store", st.driver).Msg("routes mounted")
	return e, nil
}
