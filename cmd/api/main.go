package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/veletic/gatehouse/internal/http/handlers"
	gmw "github.com/veletic/gatehouse/internal/http/middleware"
	"github.com/veletic/gatehouse/internal/mailer"
	"github.com/veletic/gatehouse/internal/password"
	"github.com/veletic/gatehouse/internal/ratelimit"
	"github.com/veletic/gatehouse/internal/repository"
	"github.com/veletic/gatehouse/internal/search"
	"github.com/veletic/gatehouse/internal/service"
	"github.com/veletic/gatehouse/pkg/config"
	"github.com/veletic/gatehouse/pkg/database"
	"github.com/veletic/gatehouse/pkg/events"
	"github.com/veletic/gatehouse/pkg/logger"
	mw "github.com/veletic/gatehouse/pkg/middleware"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Startup gate: no traffic is served unless the database is reachable.
	pool, err := database.ConnectWithRetry(ctx, cfg.Database)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := database.Bootstrap(ctx, pool); err != nil {
		logger.Error("Failed to bootstrap schema", "error", err)
		os.Exit(1)
	}

	var eventBus events.EventBus
	if bus, err := events.NewNATSEventBus(cfg.NATS.URL); err != nil {
		logger.Warn("NATS unavailable, events disabled", "error", err)
		eventBus = events.NoopEventBus{}
	} else {
		eventBus = bus
	}
	defer eventBus.Close()

	// Audit trail: one replica per queue group logs every crossing event.
	if err := eventBus.QueueSubscribe("person.>", "gatehouse-audit", func(msg *events.Message) {
		logger.Info("Access event", "subject", msg.Subject, "payload", string(msg.Data))
	}); err != nil {
		logger.Warn("Failed to subscribe audit log", "error", err)
	}

	limiter, err := ratelimit.NewRedisLimiter(cfg.Redis.URL, cfg.Auth.LoginMaxAttempts, cfg.Auth.LoginWindow)
	if err != nil {
		logger.Error("Failed to configure rate limiter", "error", err)
		os.Exit(1)
	}
	defer limiter.Close()

	var mailSvc mailer.Service
	switch {
	case cfg.Email.DevMode:
		mailSvc = mailer.NewDevMailer()
	case cfg.Email.MailerSendKey != "":
		mailSvc = mailer.NewMailerSend(cfg.Email.MailerSendKey, "Gatehouse", cfg.Email.SMTPFrom)
	default:
		mailSvc = mailer.NewSMTPMailer(cfg.Email.SMTPHost, cfg.Email.SMTPPort, cfg.Email.SMTPFrom, cfg.Email.SMTPUser, cfg.Email.SMTPPass)
	}

	// Repositories
	userRepo := repository.NewUserRepository(pool)
	sessionRepo := repository.NewSessionRepository(pool)
	personRepo := repository.NewPersonRepository(pool)
	directoryRepo := repository.NewDirectoryRepository(pool)

	// Services
	hasher := password.NewHasher(cfg.Auth)
	breach := password.NewBreachChecker(cfg.BreachAPI)
	authService := service.NewAuthService(userRepo, sessionRepo, hasher, breach, limiter, eventBus, cfg.Auth)
	personService := service.NewPersonService(personRepo, directoryRepo, search.NewEngine(search.DefaultThresholds()), eventBus, mailSvc)
	directoryService := service.NewDirectoryService(directoryRepo)

	h := handlers.New(authService, personService, directoryService)

	r := chi.NewRouter()
	r.Use(mw.RequestID)
	r.Use(mw.Logging)
	r.Use(mw.Health)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Post("/auth/login", h.Login)
	r.Post("/auth/logout", h.Logout)

	r.Group(func(r chi.Router) {
		r.Use(gmw.RequireSession(authService))
		r.Get("/auth/me", h.Me)
		r.Get("/persons", h.ListPersons)
		r.Post("/persons", h.CreatePerson)
		r.Get("/persons/{id}", h.GetPerson)
		r.Post("/persons/{id}/toggle", h.TogglePerson)
		r.Get("/occupancy", h.Occupancy)
	})

	r.Post("/admin/login", h.AdminLogin)
	r.Post("/admin/logout", h.AdminLogout)

	r.Route("/admin", func(r chi.Router) {
		r.Use(gmw.RequireAdminSession(authService))
		r.Post("/users", h.RegisterUser)
		r.Get("/users", h.ListUsers)
		r.Post("/users/{id}/disable", h.SetUserDisabled(true))
		r.Post("/users/{id}/enable", h.SetUserDisabled(false))
		r.Patch("/users/{id}/schedule", h.UpdateUserSchedule)

		r.Post("/persons/{id}/ban", h.SetPersonBanned(true))
		r.Post("/persons/{id}/unban", h.SetPersonBanned(false))
		r.Delete("/persons/{id}", h.DeletePerson)

		r.Post("/buildings", h.CreateBuilding)
		r.Get("/buildings", h.ListBuildings)
		r.Delete("/buildings/{name}", h.DeleteBuilding)

		r.Post("/departments", h.CreateDepartment)
		r.Get("/departments", h.ListDepartments)
		r.Delete("/departments/{name}", h.DeleteDepartment)

		r.Post("/universities", h.CreateUniversity)
		r.Get("/universities", h.ListUniversities)
		r.Delete("/universities/{name}", h.DeleteUniversity)
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting gatehouse", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	// Periodic sweep of expired sessions; validation already deletes them
	// lazily, this keeps the table small.
	g.Go(func() error {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				if n, err := sessionRepo.DeleteExpired(gctx); err != nil {
					logger.Warn("Expired session sweep failed", "error", err)
				} else if n > 0 {
					logger.Info("Swept expired sessions", "deleted", n)
				}
			}
		}
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
}
