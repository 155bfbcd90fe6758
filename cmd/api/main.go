package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/chachabrian/mooveit-admin/internal/config"
	"github.com/chachabrian/mooveit-admin/internal/database"
	"github.com/chachabrian/mooveit-admin/internal/datasync"
	"github.com/chachabrian/mooveit-admin/internal/handlers"
	"github.com/chachabrian/mooveit-admin/internal/logging"
	"github.com/chachabrian/mooveit-admin/internal/middleware"
	"github.com/chachabrian/mooveit-admin/internal/models"
	"github.com/chachabrian/mooveit-admin/internal/services"
	"github.com/chachabrian/mooveit-admin/internal/store"
	"github.com/chachabrian/mooveit-admin/internal/verification"
	"github.com/chachabrian/mooveit-admin/pkg/utils"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

type backend interface {
	store.Collaborator
	store.Admins
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	logger := logging.New(cfg.Logging)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Auth.JWTSecret == "" {
		logger.Warn("JWT_SECRET not set. Using a random secret; sessions will not survive a restart")
		cfg.Auth.JWTSecret = uuid.NewString()
	}

	// Initialize the backend, falling back to placeholder data
	var (
		data        backend
		feed        store.ChangeFeed
		placeholder = cfg.Sync.Placeholder
	)
	if !placeholder {
		feed = openFeed(ctx, cfg.Feed, logger)
		db, err := database.InitDB(cfg.Database)
		if err != nil {
			logger.WithError(err).Error("Database unreachable, switching to placeholder mode")
			placeholder = true
		} else {
			if cfg.Auth.SeedEmail != "" {
				created, err := database.SeedAdmin(db, cfg.Auth.SeedEmail, cfg.Auth.SeedPassword)
				if err != nil {
					logger.WithError(err).Warn("Failed to seed admin account")
				} else if created {
					logger.WithField("email", cfg.Auth.SeedEmail).Info("Seeded admin account")
				}
			}
			data = database.NewStore(db, feed, logger)
		}
	}
	if placeholder {
		if feed != nil {
			_ = feed.Close()
			feed = nil
		}
		data = startPlaceholder(ctx, cfg, logger)
	}

	syncer := datasync.NewSyncer(data, datasync.Options{
		RideLimit:       cfg.Sync.RideLimit,
		RefreshInterval: cfg.Sync.RefreshInterval,
		Placeholder:     placeholder,
		Logger:          logger,
	})

	// Initialize Firebase (optional - logs a warning if not configured)
	firebase, err := services.NewFirebase(ctx, cfg.Firebase, logger)
	if err != nil {
		logger.WithError(err).Warn("Firebase initialization failed")
		firebase = nil
	}

	// Initialize document storage (S3 presigning or BASE_URL fallback)
	docs, err := services.NewDocumentStorage(cfg.Storage, cfg.HTTP.BaseURL, logger)
	if err != nil {
		logger.Fatalf("Failed to initialize storage: %v", err)
	}

	mailer := utils.NewMailer(cfg.Mail, cfg.HTTP.BaseURL)
	if !mailer.Enabled() {
		logger.Warn("SMTP not configured. Drivers will not be emailed verification decisions")
	}

	// Initialize WebSocket hub and the notifier feeding it
	hub := services.NewHub(logger)
	go hub.Run(ctx)

	var pusher services.AdminPusher
	if firebase.Enabled() {
		pusher = firebase
	}
	notifier := services.NewNotifier(hub, pusher, syncer, logger)
	unlisten := syncer.Listen(notifier.Handle)
	defer unlisten()
	if pusher != nil {
		go notifier.Run(ctx)
	}

	if err := syncer.Start(ctx); err != nil {
		logger.Fatalf("Failed to start data sync: %v", err)
	}

	// Initialize router
	r := gin.Default()

	corsConfig := cors.DefaultConfig()
	if slices.Contains(cfg.HTTP.AllowedOrigins, "*") {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = cfg.HTTP.AllowedOrigins
	}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	r.Use(cors.New(corsConfig))

	handlers.RegisterRoutes(r, handlers.Dependencies{
		Syncer:   syncer,
		Backend:  data,
		Workflow: verification.NewWorkflow(data, syncer, verification.WithLogger(logger)),
		Admins:   data,
		Auth:     middleware.NewAuthenticator(cfg.Auth.JWTSecret, firebase, data),
		AuthCfg:  cfg.Auth,
		Hub:      hub,
		Docs:     docs,
		Mailer:   mailer,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.WithFields(log.Fields{"port": cfg.HTTP.Port, "placeholder": placeholder}).Info("Admin dashboard API listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("HTTP shutdown did not complete")
	}
	if err := syncer.Stop(); err != nil {
		logger.WithError(err).Warn("Data sync stopped with errors")
	}
	if feed != nil {
		if err := feed.Close(); err != nil {
			logger.WithError(err).Warn("Failed to close change feed")
		}
	}
}

// openFeed connects the configured change feed. A broker that cannot be
// reached degrades to the in-process feed: the dashboard still refreshes on
// its own writes and on the periodic refresh.
func openFeed(ctx context.Context, cfg config.FeedConfig, logger *log.Logger) store.ChangeFeed {
	switch cfg.Kind {
	case "redis":
		client, err := services.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			logger.WithError(err).Warn("Redis unavailable, using in-process change feed")
			return store.NewLocalFeed()
		}
		return services.NewRedisChangeFeed(client, logger)
	case "amqp":
		feed, err := services.NewAMQPChangeFeed(cfg.AMQPURL, cfg.AMQPExchange, logger)
		if err != nil {
			logger.WithError(err).Warn("RabbitMQ unavailable, using in-process change feed")
			return store.NewLocalFeed()
		}
		return feed
	}
	return store.NewLocalFeed()
}

type placeholderBackend struct {
	*store.MemoryStore
	*store.MemoryAdmins
}

// startPlaceholder seeds the sample data and starts the simulated changes.
func startPlaceholder(ctx context.Context, cfg config.Config, logger *log.Logger) backend {
	m := store.NewMemoryStore()
	if err := services.SeedPlaceholder(ctx, m, time.Now()); err != nil {
		logger.Fatalf("Failed to seed placeholder data: %v", err)
	}

	admins := store.NewMemoryAdmins()
	if cfg.Auth.SeedEmail != "" {
		if err := admins.Add(models.Admin{
			FullName: "Admin",
			Email:    cfg.Auth.SeedEmail,
			Password: cfg.Auth.SeedPassword,
			Role:     models.RoleAdmin,
		}); err != nil {
			logger.WithError(err).Warn("Failed to register placeholder admin")
		}
	} else {
		logger.Warn("ADMIN_EMAIL not set. Password login is unavailable in placeholder mode")
	}

	sim := services.NewSimulator(m, time.Now, logger)
	go sim.Run(ctx, cfg.Sync.SimulateEvery)

	logger.WithField("every", cfg.Sync.SimulateEvery).Warn("Serving placeholder data")
	return placeholderBackend{MemoryStore: m, MemoryAdmins: admins}
}
